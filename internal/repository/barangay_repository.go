package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bsorms/bsorms-api/internal/models"
)

// BarangayRepository reads the barangay list and report type catalog.
type BarangayRepository struct {
	db *sqlx.DB
}

// NewBarangayRepository constructs the repository.
func NewBarangayRepository(db *sqlx.DB) *BarangayRepository {
	return &BarangayRepository{db: db}
}

// ListBarangays returns all barangays ordered by name.
func (r *BarangayRepository) ListBarangays(ctx context.Context) ([]models.Barangay, error) {
	var barangays []models.Barangay
	if err := r.db.SelectContext(ctx, &barangays, "SELECT id, name FROM barangays ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("list barangays: %w", err)
	}
	return barangays, nil
}

// FindBarangay returns a barangay by id.
func (r *BarangayRepository) FindBarangay(ctx context.Context, id int64) (*models.Barangay, error) {
	var barangay models.Barangay
	if err := r.db.GetContext(ctx, &barangay, "SELECT id, name FROM barangays WHERE id = $1 LIMIT 1", id); err != nil {
		return nil, err
	}
	return &barangay, nil
}

// ListReportTypes returns the report type catalog ordered by short code.
func (r *BarangayRepository) ListReportTypes(ctx context.Context) ([]models.ReportType, error) {
	var types []models.ReportType
	if err := r.db.SelectContext(ctx, &types, "SELECT id, name, short_code FROM report_types ORDER BY short_code ASC"); err != nil {
		return nil, fmt.Errorf("list report types: %w", err)
	}
	return types, nil
}
