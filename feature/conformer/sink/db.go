package sink

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"conformer-pipeline/feature/conformer/aggregate"
	"conformer-pipeline/feature/conformer/models"
)

// ConformerOutcomeRow is the per-conformer outcome table.
type ConformerOutcomeRow struct {
	ConformerID    int64  `gorm:"column:conformer_id;primaryKey"`
	BondTopologyID int64  `gorm:"column:bond_topology_id;index"`
	Fate           string `gorm:"column:fate"`
	HasErrors      bool   `gorm:"column:has_errors"`
	DuplicatedBy   int64  `gorm:"column:duplicated_by"`
	DuplicateCount int    `gorm:"column:duplicate_count"`
	GeometryCount  int    `gorm:"column:geometry_count"`
}

func (ConformerOutcomeRow) TableName() string { return "conformer_outcomes" }

// SummaryRow is the per-topology summary table.
type SummaryRow struct {
	BondTopologyID                   int64  `gorm:"column:bond_topology_id;primaryKey"`
	Canonical                        string `gorm:"column:canonical"`
	CountAttemptedConformers         int64  `gorm:"column:count_attempted_conformers"`
	CountKeptGeometry                int64  `gorm:"column:count_kept_geometry"`
	CountDuplicatesSameTopology      int64  `gorm:"column:count_duplicates_same_topology"`
	CountDuplicatesDifferentTopology int64  `gorm:"column:count_duplicates_different_topology"`
	CountFailedGeometryOptimization  int64  `gorm:"column:count_failed_geometry_optimization"`
	CountMissingCalculation          int64  `gorm:"column:count_missing_calculation"`
	CountCalculationWithError        int64  `gorm:"column:count_calculation_with_error"`
	CountCalculationSuccess          int64  `gorm:"column:count_calculation_success"`
	CountDetectedMatchWithError      int64  `gorm:"column:count_detected_match_with_error"`
	CountDetectedMatchSuccess        int64  `gorm:"column:count_detected_match_success"`
}

func (SummaryRow) TableName() string { return "topology_summaries" }

// StatRow is the run stats table, keyed by the stat pair.
type StatRow struct {
	PrimaryKey   string `gorm:"column:primary_key;primaryKey"`
	SecondaryKey string `gorm:"column:secondary_key;primaryKey"`
	Count        int64  `gorm:"column:count"`
}

func (StatRow) TableName() string { return "run_stats" }

// Store persists run outputs to MySQL. Writes are idempotent upserts so a
// re-run replaces the previous rows for the same keys.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the output tables.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&ConformerOutcomeRow{}, &SummaryRow{}, &StatRow{})
	return errors.Wrap(err, "migrating output tables")
}

const insertBatchSize = 500

// SaveOutcomes upserts one outcome row per conformer.
func (s *Store) SaveOutcomes(ctx context.Context, conformers []models.Conformer) error {
	rows := make([]ConformerOutcomeRow, 0, len(conformers))
	for _, c := range conformers {
		rows = append(rows, ConformerOutcomeRow{
			ConformerID:    c.ConformerID,
			BondTopologyID: c.TopologyID(),
			Fate:           c.Fate.String(),
			HasErrors:      c.Errors.HasFault(),
			DuplicatedBy:   c.DuplicatedBy,
			DuplicateCount: len(c.DuplicateOf),
			GeometryCount:  len(c.InitialGeometries),
		})
	}
	return upsert(ctx, s.db, rows, "conformer outcomes")
}

// SaveSummaries upserts the combined per-topology summaries.
func (s *Store) SaveSummaries(ctx context.Context, summaries []models.TopologySummary) error {
	rows := make([]SummaryRow, 0, len(summaries))
	for _, sum := range summaries {
		rows = append(rows, SummaryRow{
			BondTopologyID:                   sum.BondTopology.BondTopologyID,
			Canonical:                        sum.BondTopology.Canonical,
			CountAttemptedConformers:         sum.CountAttemptedConformers,
			CountKeptGeometry:                sum.CountKeptGeometry,
			CountDuplicatesSameTopology:      sum.CountDuplicatesSameTopology,
			CountDuplicatesDifferentTopology: sum.CountDuplicatesDifferentTopology,
			CountFailedGeometryOptimization:  sum.CountFailedGeometryOptimization,
			CountMissingCalculation:          sum.CountMissingCalculation,
			CountCalculationWithError:        sum.CountCalculationWithError,
			CountCalculationSuccess:          sum.CountCalculationSuccess,
			CountDetectedMatchWithError:      sum.CountDetectedMatchWithError,
			CountDetectedMatchSuccess:        sum.CountDetectedMatchSuccess,
		})
	}
	return upsert(ctx, s.db, rows, "topology summaries")
}

// SaveStats upserts the aggregated run stats.
func (s *Store) SaveStats(ctx context.Context, stats []aggregate.StatCount) error {
	rows := make([]StatRow, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, StatRow{
			PrimaryKey:   st.Primary,
			SecondaryKey: st.Secondary,
			Count:        st.Count,
		})
	}
	return upsert(ctx, s.db, rows, "run stats")
}

func upsert[T any](ctx context.Context, db *gorm.DB, rows []T, what string) error {
	if len(rows) == 0 {
		return nil
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, insertBatchSize).Error
	return errors.Wrapf(err, "saving %s", what)
}
