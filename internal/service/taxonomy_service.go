package service

import (
	"context"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
)

type taxonomyStore interface {
	ListBarangays(ctx context.Context) ([]models.Barangay, error)
	ListReportTypes(ctx context.Context) ([]models.ReportType, error)
}

// TaxonomyService serves the fixed barangay and report type catalogs.
type TaxonomyService struct {
	repo taxonomyStore
}

// NewTaxonomyService constructs the service.
func NewTaxonomyService(repo taxonomyStore) *TaxonomyService {
	return &TaxonomyService{repo: repo}
}

// Barangays returns every barangay sorted by name.
func (s *TaxonomyService) Barangays(ctx context.Context) ([]models.Barangay, error) {
	barangays, err := s.repo.ListBarangays(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list barangays")
	}
	return barangays, nil
}

// ReportTypes returns the report type catalog.
func (s *TaxonomyService) ReportTypes(ctx context.Context) ([]models.ReportType, error) {
	types, err := s.repo.ListReportTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report types")
	}
	return types, nil
}
