package sink

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"conformer-pipeline/core/storage/mocks"
	"conformer-pipeline/feature/conformer/aggregate"
	"conformer-pipeline/feature/conformer/chem"
	"conformer-pipeline/feature/conformer/merge"
	"conformer-pipeline/feature/conformer/models"
)

func testConformer(id int64, fate models.Fate) models.Conformer {
	props := models.Properties{}
	props.Set("single_point_energy_pbe0d3_6_311gd", -406.029)
	return models.Conformer{
		ConformerID: id,
		BondTopologies: []models.BondTopology{{
			BondTopologyID: models.TopologyIDFor(id),
			Atoms:          []models.Atom{models.AtomC, models.AtomH},
			Bonds:          []models.Bond{{AtomB: 1, Type: models.BondSingle}},
			Canonical:      "ch|c-h",
		}},
		InitialGeometries: []models.Geometry{
			{AtomPositions: []models.Position{{X: 1.5}, {Y: 2.5}}},
		},
		Properties: props,
		Errors:     models.NewStageErrorCodes(),
		Fate:       fate,
	}
}

func TestWriteConflictsCSV(t *testing.T) {
	var buf bytes.Buffer
	conflict := merge.Conflict{ConformerID: 618451001}

	require.NoError(t, WriteConflictsCSV(&buf, []merge.Conflict{conflict}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(merge.ConflictFields, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "618451001,"))
}

func TestWriteCanonicalCompareCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []CanonicalCompareRow{{
		ConformerID: 618451001,
		Result:      chem.CompareMismatch,
		Given:       "bogus",
		WithH:       "ch|c-h",
		WithoutH:    "c",
	}}

	require.NoError(t, WriteCanonicalCompareCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "conformer_id,compare,canonical_given,canonical_with_h,canonical_without_h", lines[0])
	assert.Equal(t, "618451001,MISMATCH,bogus,ch|c-h,c", lines[1])
}

func TestWriteStatsCSV(t *testing.T) {
	var buf bytes.Buffer
	stats := []aggregate.StatCount{
		{Primary: "fate", Secondary: "FATE_SUCCESS", Count: 2},
	}

	require.NoError(t, WriteStatsCSV(&buf, stats))
	assert.Equal(t, "primary_key,secondary_key,count\nfate,FATE_SUCCESS,2\n", buf.String())
}

func TestWriteSummariesCSV(t *testing.T) {
	var buf bytes.Buffer
	summaries := []models.TopologySummary{{
		BondTopology:             models.BondTopology{BondTopologyID: 618451},
		CountAttemptedConformers: 3,
		CountCalculationSuccess:  2,
	}}

	require.NoError(t, WriteSummariesCSV(&buf, summaries))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "bond_topology_id,"+strings.Join(models.SummaryCounterNames, ","), lines[0])
	assert.Equal(t, "618451,3,0,0,0,0,0,0,2,0,0", lines[1])
}

func TestRecordRoundTrip(t *testing.T) {
	records := []models.Conformer{
		testConformer(618451001, models.FateSuccess),
		testConformer(618451002, models.FateDuplicateSameTopology),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))

	got, err := ReadRecords(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(618451001), got[0].ConformerID)
	assert.Equal(t, models.FateDuplicateSameTopology, got[1].Fate)

	energy, ok := got[0].Properties.Get("single_point_energy_pbe0d3_6_311gd")
	require.True(t, ok)
	assert.Equal(t, -406.029, energy)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestStoreSaveStats(t *testing.T) {
	db, dbMock := setupMockDB(t)

	dbMock.ExpectBegin()
	dbMock.ExpectExec("INSERT INTO `run_stats`").
		WillReturnResult(sqlmock.NewResult(0, 2))
	dbMock.ExpectCommit()

	store := NewStore(db)
	err := store.SaveStats(context.Background(), []aggregate.StatCount{
		{Primary: "fate", Secondary: "FATE_SUCCESS", Count: 2},
		{Primary: "fate", Secondary: "FATE_DUPLICATE_SAME_TOPOLOGY", Count: 1},
	})
	require.NoError(t, err)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestStoreSaveOutcomes(t *testing.T) {
	db, dbMock := setupMockDB(t)

	dbMock.ExpectBegin()
	dbMock.ExpectExec("INSERT INTO `conformer_outcomes`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	store := NewStore(db)
	err := store.SaveOutcomes(context.Background(), []models.Conformer{
		testConformer(618451001, models.FateSuccess),
	})
	require.NoError(t, err)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestStoreSaveNothing(t *testing.T) {
	db, dbMock := setupMockDB(t)

	store := NewStore(db)
	require.NoError(t, store.SaveSummaries(context.Background(), nil))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

func TestUploadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(dir, "summaries.csv", "bond_topology_id\n"))
	require.NoError(t, writeFile(dir, "standard.json.gz", "gz"))

	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "conformer-artifacts").Return(true, nil)
	client.On("PutObject", mock.Anything, "conformer-artifacts", "run-1/summaries.csv",
		mock.Anything, int64(17), mock.Anything).Return(minio.UploadInfo{}, nil)
	client.On("PutObject", mock.Anything, "conformer-artifacts", "run-1/standard.json.gz",
		mock.Anything, int64(2), mock.Anything).Return(minio.UploadInfo{}, nil)

	u := NewUploader(client, "conformer-artifacts", zap.NewNop())
	require.NoError(t, u.UploadDir(context.Background(), dir, "run-1"))
	client.AssertExpectations(t)
}

func TestUploadDir_CreatesBucket(t *testing.T) {
	dir := t.TempDir()

	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "conformer-artifacts").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "conformer-artifacts", mock.Anything).Return(nil)

	u := NewUploader(client, "conformer-artifacts", zap.NewNop())
	require.NoError(t, u.UploadDir(context.Background(), dir, "run-1"))
	client.AssertExpectations(t)
}
