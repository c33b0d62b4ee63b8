package scale

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/config"
)

// createScaleDB builds a scale software database with the given insert
// statements. mprice has no declared type so every value keeps its storage class.
func createScaleDB(t *testing.T, inserts ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "scale.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t_base_merchandise (
		mid INTEGER PRIMARY KEY,
		mname1 TEXT,
		mprice,
		mcode TEXT
	)`)
	require.NoError(t, err)

	for _, stmt := range inserts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return dbPath
}

func TestSQLiteReader_ReadAll(t *testing.T) {
	dbPath := createScaleDB(t,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Apple', 12.5, 'AB12345')`,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Pear', 3, ' 0012346 ')`,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Melon', '7.80', 'XY98765')`,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Free sample', NULL, '1234567')`,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Cherry', X'392E3939', '9900001')`,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Grape', 0.1, '9900002')`,
	)

	reader := NewSQLiteReader(dbPath, time.Second)
	goods, err := reader.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, goods, 6)

	expected := []struct {
		name    string
		barcode string
		price   string
	}{
		{"Apple", "12345", "12.5"},
		{"Pear", "12346", "3"},
		{"Melon", "98765", "7.8"},
		{"Free sample", "34567", "0"},
		{"Cherry", "00001", "9.99"},
		{"Grape", "00002", "0.1"},
	}
	for i, want := range expected {
		assert.Equal(t, want.name, goods[i].Name)
		assert.Equal(t, want.barcode, goods[i].Barcode)
		assert.True(t, decimal.RequireFromString(want.price).Equal(goods[i].Price),
			"%s: want price %s, got %s", want.name, want.price, goods[i].Price)
	}
}

func TestSQLiteReader_EmptyTable(t *testing.T) {
	dbPath := createScaleDB(t)

	goods, err := NewSQLiteReader(dbPath, time.Second).ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, goods)
}

func TestSQLiteReader_InvalidBarcodeIsValidationError(t *testing.T) {
	dbPath := createScaleDB(t,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Apple', 1, 'AB12345')`,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Broken', 1, '123')`,
	)

	_, err := NewSQLiteReader(dbPath, time.Second).ReadAll(context.Background())
	require.Error(t, err)

	var valErr *apperr.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "Broken", valErr.Label)

	var readErr *apperr.SourceReadError
	assert.False(t, errors.As(err, &readErr), "validation errors must not be reported as read errors")
}

func TestSQLiteReader_NullBarcode(t *testing.T) {
	dbPath := createScaleDB(t,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Ghost', 1, NULL)`,
	)

	_, err := NewSQLiteReader(dbPath, time.Second).ReadAll(context.Background())

	var valErr *apperr.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Contains(t, err.Error(), "barcode is empty")
}

func TestSQLiteReader_UnparseablePrice(t *testing.T) {
	dbPath := createScaleDB(t,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Apple', 'twelve', 'AB12345')`,
	)

	_, err := NewSQLiteReader(dbPath, time.Second).ReadAll(context.Background())

	var valErr *apperr.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "Apple", valErr.Label)
	assert.Contains(t, err.Error(), "twelve")
}

func TestSQLiteReader_MissingTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "other.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE unrelated (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewSQLiteReader(dbPath, time.Second).ReadAll(context.Background())
	require.Error(t, err)

	var readErr *apperr.SourceReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "SQLite", readErr.Source)
	assert.Contains(t, err.Error(), "t_base_merchandise")
	assert.Contains(t, err.Error(), "mname1/mprice/mcode")
	assert.Contains(t, err.Error(), "no such table")
}

func TestSQLiteReader_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("this is definitely not an sqlite database file"), 0o644))

	_, err := NewSQLiteReader(path, time.Second).ReadAll(context.Background())

	var readErr *apperr.SourceReadError
	require.True(t, errors.As(err, &readErr))
}

func TestSQLiteReader_Preconditions(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteReader("", time.Second).ReadAll(context.Background())

		var cfgErr *apperr.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "scale.db_path", cfgErr.Setting)
	})

	t.Run("missing file", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.db")
		_, err := NewSQLiteReader(missing, time.Second).ReadAll(context.Background())

		var nf *apperr.NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, missing, nf.Path)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := NewSQLiteReader(t.TempDir(), time.Second).ReadAll(context.Background())

		var nf *apperr.NotFoundError
		require.True(t, errors.As(err, &nf))
	})
}

func TestSQLiteReader_Cancelled(t *testing.T) {
	dbPath := createScaleDB(t,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Apple', 1, 'AB12345')`,
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSQLiteReader(dbPath, time.Second).ReadAll(ctx)

	require.Error(t, err)
	assert.True(t, apperr.IsCancelled(err))
}

func TestSQLiteReader_DoesNotModifyFile(t *testing.T) {
	dbPath := createScaleDB(t,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('Apple', 1, 'AB12345')`,
	)
	before, err := os.ReadFile(dbPath)
	require.NoError(t, err)

	_, err = NewSQLiteReader(dbPath, time.Second).ReadAll(context.Background())
	require.NoError(t, err)

	after, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSQLiteReader_LegacyEncoding(t *testing.T) {
	// 苹果 in GBK
	dbPath := createScaleDB(t,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES (X'C6BBB9FB', 8.8, '1234567')`,
		`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES ('香蕉', 5, '7654321')`,
	)

	reader, err := NewReader(config.Scale{
		Kind:        config.ScaleKindSQLite,
		DBPath:      dbPath,
		Encoding:    config.EncodingGBK,
		BusyTimeout: time.Second,
	})
	require.NoError(t, err)

	goods, err := reader.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, goods, 2)
	assert.Equal(t, "苹果", goods[0].Name)
	assert.Equal(t, "香蕉", goods[1].Name, "valid UTF-8 is kept as is")
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:/data/scale.db?mode=ro&_busy_timeout=5000", sqliteDSN("/data/scale.db", 5*time.Second))
	assert.Equal(t, "file:/data/odd%3fname%23.db?mode=ro&_busy_timeout=0", sqliteDSN("/data/odd?name#.db", 0))
}

func TestNewReader(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		r, err := NewReader(config.Scale{Kind: config.ScaleKindSQLite, DBPath: "x.db"})
		require.NoError(t, err)
		assert.IsType(t, &SQLiteReader{}, r)
	})

	t.Run("access", func(t *testing.T) {
		r, err := NewReader(config.Scale{Kind: config.ScaleKindAccess, DBPath: "mscale.mdb"})
		require.NoError(t, err)
		assert.IsType(t, &AccessReader{}, r)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := NewReader(config.Scale{Kind: "csv"})

		var cfgErr *apperr.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "scale.kind", cfgErr.Setting)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := NewReader(config.Scale{Kind: config.ScaleKindSQLite, Encoding: "ebcdic"})

		var cfgErr *apperr.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "scale.encoding", cfgErr.Setting)
	})
}

func TestCheckSource(t *testing.T) {
	dbPath := createScaleDB(t)

	assert.NoError(t, CheckSource(config.Scale{Kind: config.ScaleKindSQLite, DBPath: dbPath}))

	err := CheckSource(config.Scale{Kind: config.ScaleKindAccess, DBPath: filepath.Join(t.TempDir(), "mscale.mdb")})
	var nf *apperr.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Contains(t, nf.What, "Access")
}
