package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bsorms/bsorms-api/internal/models"
)

const logColumns = `l.id, l.action, l.user_id, u.first_name || ' ' || u.last_name AS user_name, l.timestamp, l.details`

const logBase = `FROM logs l LEFT JOIN users u ON u.id = l.user_id`

// LogRepository persists the append-only audit trail.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository constructs the repository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Query returns a page of entries newest-first, the total count, and the
// distinct action codes seen across the whole table (for filter UIs).
func (r *LogRepository) Query(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, int, []string, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(l.action ILIKE $%d OR l.details ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Action != "" {
		where = append(where, fmt.Sprintf("l.action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.UserID != nil {
		where = append(where, fmt.Sprintf("l.user_id = $%d", len(args)+1))
		args = append(args, *filter.UserID)
	}
	if filter.StartDate != nil {
		where = append(where, fmt.Sprintf("l.timestamp >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		// exclusive day-after bound makes the end date inclusive-by-day
		where = append(where, fmt.Sprintf("l.timestamp < $%d", len(args)+1))
		args = append(args, filter.EndDate.AddDate(0, 0, 1))
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

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY l.timestamp DESC LIMIT %d OFFSET %d",
		logColumns, logBase, whereClause, limit, offset)
	var entries []models.LogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, nil, fmt.Errorf("query logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", logBase, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, nil, fmt.Errorf("count logs: %w", err)
	}

	var actions []string
	if err := r.db.SelectContext(ctx, &actions, "SELECT DISTINCT action FROM logs ORDER BY action ASC"); err != nil {
		return nil, 0, nil, fmt.Errorf("list log actions: %w", err)
	}
	return entries, total, actions, nil
}

// Create appends a log entry.
func (r *LogRepository) Create(ctx context.Context, entry *models.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO logs (id, action, user_id, timestamp, details)
VALUES (:id, :action, :user_id, :timestamp, :details)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create log entry: %w", err)
	}
	return nil
}

// DeleteRange removes entries with timestamp in [start, endExclusive) and
// returns how many rows were deleted.
func (r *LogRepository) DeleteRange(ctx context.Context, start, endExclusive time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM logs WHERE timestamp >= $1 AND timestamp < $2", start, endExclusive)
	if err != nil {
		return 0, fmt.Errorf("delete log range: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete log range rows affected: %w", err)
	}
	return deleted, nil
}
