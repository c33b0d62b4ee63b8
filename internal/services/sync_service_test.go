package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/audit"
	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/database"
	"github.com/mrlokans/scalesync/internal/database/runs"
	"github.com/mrlokans/scalesync/internal/entities"
	"github.com/mrlokans/scalesync/internal/miall"
	"github.com/mrlokans/scalesync/internal/reconcile"
)

const testCategory = "099 生鲜（电子秤）"

// createScaleDB writes a scale software database with the given rows.
func createScaleDB(t *testing.T, rows ...[3]any) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "scale.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t_base_merchandise (mname1 TEXT, mprice, mcode TEXT)`)
	require.NoError(t, err)
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES (?, ?, ?)`, r[0], r[1], r[2])
		require.NoError(t, err)
	}
	return dbPath
}

// createStagingMiAll prepares a sqlite MiAll with the scale category.
func createStagingMiAll(t *testing.T) config.MiAll {
	t.Helper()
	ctx := context.Background()
	cfg := config.MiAll{
		Dialect:          config.DialectSQLite,
		ConnectionString: filepath.Join(t.TempDir(), "miall.db"),
		CategoryName:     testCategory,
		CommandTimeout:   5 * time.Second,
		MaxConns:         1,
	}

	repo, err := miall.Open(ctx, cfg)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.CreateCategory(ctx, "099", testCategory))
	return cfg
}

func testConfig(t *testing.T, scalePath string, target config.MiAll) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Scale.Kind = config.ScaleKindSQLite
	cfg.Scale.DBPath = scalePath
	cfg.MiAll = target
	cfg.Reports.Dir = filepath.Join(t.TempDir(), "reports")
	return cfg
}

func setupJournal(t *testing.T) *runs.Repository {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "journal.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return runs.NewRepository(db.DB)
}

func stagedGoods(t *testing.T, cfg config.MiAll) []miall.Goods {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(cfg.ConnectionString), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var rows []miall.Goods
	require.NoError(t, db.Order("goodsno").Find(&rows).Error)
	return rows
}

func TestSyncService_Run_InsertsNewProduct(t *testing.T) {
	scalePath := createScaleDB(t, [3]any{"Apple", 12.50, "AB12345"})
	target := createStagingMiAll(t)
	cfg := testConfig(t, scalePath, target)
	journal := setupJournal(t)

	svc := NewSyncService(journal, zerolog.Nop())
	out, err := svc.Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Result.Total)
	assert.Equal(t, 1, out.Result.Inserted)
	assert.Equal(t, 0, out.Result.Updated)

	rows := stagedGoods(t, target)
	require.Len(t, rows, 1)
	assert.Equal(t, "12345", rows[0].Barcode)
	assert.Equal(t, "Apple", rows[0].GoodsName)
	assert.Equal(t, "099", rows[0].GoodsTypeNo)
	assert.Equal(t, miall.SalesTypeByUnit, rows[0].SalesType)
	assert.InDelta(t, 12.50, rows[0].SRefPrice, 0.0001)

	run, err := journal.GetRun(out.Result.RunID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Inserted)
	assert.Equal(t, scalePath, run.SourcePath)
	assert.Equal(t, filepath.Base(out.ReportFile), run.ReportFile)
}

func TestSyncService_Run_SecondRunUpdates(t *testing.T) {
	scalePath := createScaleDB(t,
		[3]any{"Apple", 12.50, "AB12345"},
		[3]any{"Pear", "3.2", "CD54321"},
	)
	target := createStagingMiAll(t)
	cfg := testConfig(t, scalePath, target)
	svc := NewSyncService(nil, zerolog.Nop())

	_, err := svc.Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	out, err := svc.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Result.Updated)
	assert.Equal(t, 0, out.Result.Inserted)
	assert.Len(t, stagedGoods(t, target), 2)
}

func TestSyncService_Run_WritesReport(t *testing.T) {
	scalePath := createScaleDB(t, [3]any{"Apple", 12.50, "AB12345"})
	target := createStagingMiAll(t)
	cfg := testConfig(t, scalePath, target)

	out, err := NewSyncService(nil, zerolog.Nop()).Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, out.ReportFile)

	data, err := os.ReadFile(out.ReportFile)
	require.NoError(t, err)
	var report audit.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, out.Result.RunID, report.RunID)
	assert.Equal(t, 1, report.Totals.Inserted)
	assert.Equal(t, testCategory, report.Settings.CategoryName)
}

func TestSyncService_Run_ReportsDisabled(t *testing.T) {
	scalePath := createScaleDB(t, [3]any{"Apple", 12.50, "AB12345"})
	cfg := testConfig(t, scalePath, createStagingMiAll(t))
	cfg.Reports.Enabled = false

	out, err := NewSyncService(nil, zerolog.Nop()).Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, out.ReportFile)
	_, err = os.Stat(cfg.Reports.Dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSyncService_Run_DryRun(t *testing.T) {
	scalePath := createScaleDB(t, [3]any{"Apple", 12.50, "AB12345"})
	target := createStagingMiAll(t)
	cfg := testConfig(t, scalePath, target)
	cfg.Sync.DryRun = true

	out, err := NewSyncService(nil, zerolog.Nop()).Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, out.Result.DryRun)
	assert.Equal(t, 1, out.Result.Total)
	assert.Empty(t, stagedGoods(t, target))
}

func TestSyncService_Run_InvalidBarcodeWritesNothing(t *testing.T) {
	scalePath := createScaleDB(t,
		[3]any{"Apple", 12.50, "AB12345"},
		[3]any{"Broken", 1, "AB1234"},
	)
	target := createStagingMiAll(t)
	cfg := testConfig(t, scalePath, target)

	out, err := NewSyncService(nil, zerolog.Nop()).Run(context.Background(), cfg, nil)

	assert.Nil(t, out)
	var valErr *apperr.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Empty(t, stagedGoods(t, target))
}

func TestSyncService_Run_InvalidConfig(t *testing.T) {
	cfg := config.New()

	_, err := NewSyncService(nil, zerolog.Nop()).Run(context.Background(), cfg, nil)

	var cfgErr *apperr.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Msg, "scale.db_path is required")
}

type stubSource struct {
	goods []entities.Good
	calls int
}

func (s *stubSource) ReadAll(ctx context.Context) ([]entities.Good, error) {
	s.calls++
	return s.goods, nil
}

func TestSyncService_Run_ReadsScaleBeforeConnecting(t *testing.T) {
	src := &stubSource{goods: []entities.Good{{Name: "Apple", Barcode: "12345", Price: decimal.NewFromInt(1)}}}
	connectErr := errors.New("login failed for user 'sa'")

	svc := NewSyncService(nil, zerolog.Nop())
	svc.newReader = func(config.Scale) (reconcile.Source, error) { return src, nil }
	svc.openTarget = func(context.Context, config.MiAll) (Target, error) {
		assert.Equal(t, 1, src.calls, "scale must be read before MiAll is contacted")
		return nil, connectErr
	}

	cfg := testConfig(t, "scale.db", config.MiAll{
		Dialect:          config.DialectSQLServer,
		ConnectionString: "Server=.;Database=miall",
		CategoryName:     testCategory,
		CommandTimeout:   time.Second,
		MaxConns:         1,
	})

	var phases []reconcile.Phase
	_, err := svc.Run(context.Background(), cfg, func(ev reconcile.ProgressEvent) {
		phases = append(phases, ev.Phase)
	})

	assert.ErrorIs(t, err, connectErr)
	assert.Equal(t, []reconcile.Phase{reconcile.PhaseReading, reconcile.PhaseResolving, reconcile.PhaseFailed}, phases)
}

func TestSyncService_Check(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		scalePath := createScaleDB(t)
		cfg := testConfig(t, scalePath, createStagingMiAll(t))

		results, ok := NewSyncService(nil, zerolog.Nop()).Check(context.Background(), cfg)

		assert.True(t, ok)
		require.Len(t, results, 4)
		assert.Equal(t, "category", results[3].Name)
		assert.Contains(t, results[3].Detail, "-> 099")
	})

	t.Run("missing scale file and category", func(t *testing.T) {
		target := createStagingMiAll(t)
		target.CategoryName = "no such category"
		cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.db"), target)

		results, ok := NewSyncService(nil, zerolog.Nop()).Check(context.Background(), cfg)

		assert.False(t, ok)
		require.Len(t, results, 4)
		assert.True(t, results[0].OK)
		assert.False(t, results[1].OK)
		assert.True(t, results[2].OK)
		assert.False(t, results[3].OK)
		assert.NotEmpty(t, results[3].Hint)
	})

	t.Run("unreachable MiAll skips category", func(t *testing.T) {
		svc := NewSyncService(nil, zerolog.Nop())
		svc.openTarget = func(context.Context, config.MiAll) (Target, error) {
			return nil, errors.New("connection refused")
		}
		cfg := testConfig(t, createScaleDB(t), createStagingMiAll(t))

		results, ok := svc.Check(context.Background(), cfg)

		assert.False(t, ok)
		require.Len(t, results, 3)
		assert.Contains(t, results[2].Detail, "connection refused")
	})
}

func TestReportSettings_MasksPassword(t *testing.T) {
	cfg := config.New()
	cfg.MiAll.ConnectionString = "Server=db;User Id=sa;Password=secret;"

	s := ReportSettings(cfg)
	assert.NotContains(t, s.ConnectionString, "secret")
}
