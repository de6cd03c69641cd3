package conformer

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"conformer-pipeline/feature/conformer/sink"
)

// Service answers read queries over the persisted run output tables.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new conformer query service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// GetOutcome returns the recorded outcome for one conformer id.
func (s *Service) GetOutcome(ctx context.Context, conformerID int64) (*sink.ConformerOutcomeRow, error) {
	var row sink.ConformerOutcomeRow
	err := s.db.WithContext(ctx).First(&row, "conformer_id = ?", conformerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading outcome for conformer %d", conformerID)
	}
	return &row, nil
}

// GetSummary returns the aggregated summary for one bond topology id.
func (s *Service) GetSummary(ctx context.Context, bondTopologyID int64) (*sink.SummaryRow, error) {
	var row sink.SummaryRow
	err := s.db.WithContext(ctx).First(&row, "bond_topology_id = ?", bondTopologyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading summary for topology %d", bondTopologyID)
	}
	return &row, nil
}

// ListOutcomesByTopology returns every conformer outcome recorded under one
// bond topology id, ordered by conformer id.
func (s *Service) ListOutcomesByTopology(ctx context.Context, bondTopologyID int64) ([]sink.ConformerOutcomeRow, error) {
	var rows []sink.ConformerOutcomeRow
	err := s.db.WithContext(ctx).
		Where("bond_topology_id = ?", bondTopologyID).
		Order("conformer_id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "listing outcomes for topology %d", bondTopologyID)
	}
	return rows, nil
}

// ListStats returns the full run stat table ordered by key pair.
func (s *Service) ListStats(ctx context.Context) ([]sink.StatRow, error) {
	var rows []sink.StatRow
	err := s.db.WithContext(ctx).
		Order("primary_key, secondary_key").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing run stats")
	}
	return rows, nil
}
