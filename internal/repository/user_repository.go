package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bsorms/bsorms-api/internal/models"
)

const userColumns = `u.id, u.email, u.password_hash, u.first_name, u.last_name, u.date_of_birth, u.role, u.creation_status, u.active_status, u.barangay_id, b.name AS barangay_name, u.valid_id_type_id, u.id_image_url, u.id_image_public_id, u.created_at, u.updated_at`

// UserRepository persists user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List returns users matching the filter plus the total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	base := "FROM users u LEFT JOIN barangays b ON b.id = u.barangay_id"
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Role != nil {
		where = append(where, fmt.Sprintf("u.role = $%d", len(args)+1))
		args = append(args, string(*filter.Role))
	}
	if filter.CreationStatus != nil {
		where = append(where, fmt.Sprintf("u.creation_status = $%d", len(args)+1))
		args = append(args, string(*filter.CreationStatus))
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(u.email ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY u.created_at DESC LIMIT %d OFFSET %d",
		userColumns, base, whereClause, limit, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users u LEFT JOIN barangays b ON b.id = u.barangay_id WHERE u.id = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users u LEFT JOIN barangays b ON b.id = u.barangay_id WHERE u.email = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns every user whose id appears in ids.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM users u LEFT JOIN barangays b ON b.id = u.barangay_id WHERE u.id = ANY($1)", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find users by ids: %w", err)
	}
	return users, nil
}

// CountByRole counts accounts holding the given role.
func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE role = $1", string(role)); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, email, password_hash, first_name, last_name, date_of_birth, role, creation_status, active_status, barangay_id, valid_id_type_id, id_image_url, id_image_public_id, created_at, updated_at)
VALUES (:id, :email, :password_hash, :first_name, :last_name, :date_of_birth, :role, :creation_status, :active_status, :barangay_id, :valid_id_type_id, :id_image_url, :id_image_public_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateStatus persists creation/active status changes.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, creation models.CreationStatus, active *models.ActiveStatus) error {
	const query = `UPDATE users SET creation_status = $2, active_status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, string(creation), active, time.Now().UTC()); err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

// Delete removes a user row. Owned reports are removed by the ON DELETE
// CASCADE constraint on reports.submitted_by_id.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ListActiveSecretaries returns approved, active barangay secretaries for
// the staff compose UI, sorted by last name.
func (r *UserRepository) ListActiveSecretaries(ctx context.Context) ([]models.Recipient, error) {
	const query = `SELECT u.id, u.first_name, u.last_name, u.email, b.name AS barangay_name
FROM users u LEFT JOIN barangays b ON b.id = u.barangay_id
WHERE u.role = $1 AND u.creation_status = $2 AND u.active_status = $3
ORDER BY u.last_name ASC`
	var recipients []models.Recipient
	if err := r.db.SelectContext(ctx, &recipients, query,
		string(models.RoleSecretary), string(models.CreationApproved), string(models.ActiveStatusActive)); err != nil {
		return nil, fmt.Errorf("list active secretaries: %w", err)
	}
	return recipients, nil
}
