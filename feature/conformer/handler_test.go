package conformer_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"conformer-pipeline/feature/conformer"
	"conformer-pipeline/feature/conformer/sink"
)

func setupApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	f := conformer.NewFeature(db, zap.NewNop())
	require.True(t, f.IsEnabled())

	app := fiber.New()
	require.NoError(t, f.Load(app))
	return app, mock
}

func decodeBody(t *testing.T, resp io.Reader, into any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp).Decode(into))
}

func TestHandleGetOutcome(t *testing.T) {
	app, mock := setupApp(t)

	cols := []string{
		"conformer_id", "bond_topology_id", "fate",
		"has_errors", "duplicated_by", "duplicate_count", "geometry_count",
	}
	mock.ExpectQuery("SELECT \\* FROM `conformer_outcomes`").
		WithArgs(int64(618451001)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(618451001, 618451, "FATE_SUCCESS", false, 0, 1, 2))

	req := httptest.NewRequest("GET", "/conformers/618451001", nil)
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var row sink.ConformerOutcomeRow
	decodeBody(t, resp.Body, &row)
	assert.Equal(t, int64(618451001), row.ConformerID)
	assert.Equal(t, "FATE_SUCCESS", row.Fate)
	assert.Equal(t, 1, row.DuplicateCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleGetOutcome_NotFound(t *testing.T) {
	app, mock := setupApp(t)

	mock.ExpectQuery("SELECT \\* FROM `conformer_outcomes`").
		WillReturnRows(sqlmock.NewRows([]string{"conformer_id"}))

	req := httptest.NewRequest("GET", "/conformers/999", nil)
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleGetOutcome_BadID(t *testing.T) {
	app, _ := setupApp(t)

	req := httptest.NewRequest("GET", "/conformers/not-a-number", nil)
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleGetSummary(t *testing.T) {
	app, mock := setupApp(t)

	cols := []string{
		"bond_topology_id", "canonical",
		"count_attempted_conformers", "count_kept_geometry",
		"count_duplicates_same_topology", "count_duplicates_different_topology",
		"count_failed_geometry_optimization", "count_missing_calculation",
		"count_calculation_with_error", "count_calculation_success",
		"count_detected_match_with_error", "count_detected_match_success",
	}
	mock.ExpectQuery("SELECT \\* FROM `topology_summaries`").
		WithArgs(int64(618451)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(618451, "c2h3|c-c,c-h,c-h,c-h", 2, 1, 1, 0, 0, 0, 0, 1, 0, 0))

	req := httptest.NewRequest("GET", "/topologies/618451/summary", nil)
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var row sink.SummaryRow
	decodeBody(t, resp.Body, &row)
	assert.Equal(t, int64(618451), row.BondTopologyID)
	assert.Equal(t, int64(2), row.CountAttemptedConformers)
	assert.Equal(t, int64(1), row.CountCalculationSuccess)
}

func TestHandleListOutcomes(t *testing.T) {
	app, mock := setupApp(t)

	cols := []string{"conformer_id", "bond_topology_id", "fate"}
	mock.ExpectQuery("SELECT \\* FROM `conformer_outcomes`").
		WithArgs(int64(618451)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(618451001, 618451, "FATE_SUCCESS").
			AddRow(618451002, 618451, "FATE_DUPLICATE_SAME_TOPOLOGY"))

	req := httptest.NewRequest("GET", "/topologies/618451/conformers", nil)
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rows []sink.ConformerOutcomeRow
	decodeBody(t, resp.Body, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(618451001), rows[0].ConformerID)
	assert.Equal(t, "FATE_DUPLICATE_SAME_TOPOLOGY", rows[1].Fate)
}

func TestHandleListStats(t *testing.T) {
	app, mock := setupApp(t)

	cols := []string{"primary_key", "secondary_key", "count"}
	mock.ExpectQuery("SELECT \\* FROM `run_stats`").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("fate", "FATE_SUCCESS", 1).
			AddRow("num_duplicates", "1", 1))

	req := httptest.NewRequest("GET", "/conformers/stats", nil)
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rows []sink.StatRow
	decodeBody(t, resp.Body, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "fate", rows[0].PrimaryKey)
	assert.Equal(t, int64(1), rows[1].Count)
}
