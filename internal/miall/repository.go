// Package miall writes scale products into the MiAll retail database.
//
// Every product is filed under one category (jbgoodstype). Upsert updates
// the price and name of an existing product with the same barcode in that
// category, or inserts a new product with the next free goods number.
//
// # Dialects
//
// MiAll runs on SQL Server. Postgres is supported for installations that
// migrated, and sqlite serves as a local staging target:
//
//	repo, err := miall.Open(ctx, cfg.MiAll)
//	code, err := repo.ResolveCategory(ctx)
//	res, err := repo.Upsert(ctx, good, code, false)
package miall

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/entities"
	"github.com/mrlokans/scalesync/internal/logging"
)

const (
	selectCategory = `select goodstypeno from jbgoodstype where goodstypename = ?`

	updateGoods = `update jbgoods set srefprice = ?, goodsname = ? where barcode = ? and goodstypeno = ?`

	insertGoods = `insert into jbgoods(goodsno, goodscode, goodsname, goodstypeno, barcode, srefprice, salestype)
values(?, ?, ?, ?, ?, ?, ?)`
)

// UpsertResult tells which branch an upsert took. Both flags are false for a
// dry run.
type UpsertResult struct {
	Updated  bool
	Inserted bool
}

// Label is the short result text shown to operators.
func (r UpsertResult) Label() string {
	switch {
	case r.Inserted:
		return "inserted"
	case r.Updated:
		return "updated"
	default:
		return "no-op"
	}
}

// Repository performs MiAll reads and writes through gorm.
type Repository struct {
	db             *gorm.DB
	dialect        string
	categoryName   string
	commandTimeout time.Duration
	closers        []func() error
	log            zerolog.Logger
}

// NewRepository wraps an existing gorm connection.
func NewRepository(db *gorm.DB, cfg config.MiAll) *Repository {
	dialect := cfg.Dialect
	if dialect == "" {
		dialect = db.Dialector.Name()
	}
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Repository{
		db:             db,
		dialect:        dialect,
		categoryName:   cfg.CategoryName,
		commandTimeout: timeout,
		log:            zerolog.Nop(),
	}
}

// SetLogger routes repository and gorm logs to l.
func (r *Repository) SetLogger(l zerolog.Logger) {
	r.log = l
	r.db = r.db.Session(&gorm.Session{Logger: logging.Gorm(l)})
}

// ResolveCategory looks up the code of the configured category.
func (r *Repository) ResolveCategory(ctx context.Context) (string, error) {
	if strings.TrimSpace(r.categoryName) == "" {
		return "", &apperr.ConfigurationError{
			Setting: "miall.category_name",
			Msg:     "category name is not configured",
			Hint:    "set it to the MiAll category scale products belong to",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	rows, err := r.db.WithContext(ctx).Raw(selectCategory, r.categoryName).Rows()
	if err != nil {
		return "", fmt.Errorf("failed to look up category %q: %w", r.categoryName, err)
	}
	defer rows.Close()

	var code sql.NullString
	if rows.Next() {
		if err := rows.Scan(&code); err != nil {
			return "", fmt.Errorf("failed to read category %q: %w", r.categoryName, err)
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to look up category %q: %w", r.categoryName, err)
	}

	if c := strings.TrimSpace(code.String); c != "" {
		return c, nil
	}
	return "", &apperr.ConfigurationError{
		Setting: "miall.category_name",
		Msg:     fmt.Sprintf("category %q does not exist in MiAll", r.categoryName),
		Hint:    fmt.Sprintf("create the category %q in the MiAll back office first", r.categoryName),
	}
}

// Upsert writes good under categoryCode in a single serializable transaction.
// A dry run touches nothing and reports neither update nor insert.
func (r *Repository) Upsert(ctx context.Context, good entities.Good, categoryCode string, dryRun bool) (UpsertResult, error) {
	if dryRun {
		return UpsertResult{}, nil
	}
	if strings.TrimSpace(categoryCode) == "" {
		return UpsertResult{}, &apperr.UpsertError{Barcode: good.Barcode, Err: errors.New("category code is empty")}
	}

	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var result UpsertResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(updateGoods, good.Price, good.Name, good.Barcode, categoryCode)
		if res.Error != nil {
			return fmt.Errorf("failed to update: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			result.Updated = true
			return nil
		}

		next, err := r.nextGoodsNo(tx)
		if err != nil {
			return err
		}

		res = tx.Exec(insertGoods, next, next, good.Name, categoryCode, good.Barcode, good.Price, SalesTypeByUnit)
		if res.Error != nil {
			return fmt.Errorf("failed to insert goodsno %s: %w", next, res.Error)
		}
		result.Inserted = true
		return nil
	}, r.txOptions())
	if err != nil {
		return UpsertResult{}, &apperr.UpsertError{Barcode: good.Barcode, Err: err}
	}

	r.log.Debug().
		Str("barcode", good.Barcode).
		Str("result", result.Label()).
		Msg("Upserted product")
	return result, nil
}

// nextGoodsNo computes max(goodsno)+1 while holding a lock that keeps
// concurrent writers from picking the same number until commit.
func (r *Repository) nextGoodsNo(tx *gorm.DB) (string, error) {
	query := `select coalesce(max(cast(goodsno as int)), 0) + 1 from jbgoods`
	switch r.dialect {
	case config.DialectSQLServer:
		query = `select coalesce(max(cast(goodsno as int)), 0) + 1 from jbgoods with (updlock, holdlock)`
	case config.DialectPostgres:
		if err := tx.Exec(`lock table jbgoods in share row exclusive mode`).Error; err != nil {
			return "", fmt.Errorf("failed to lock jbgoods: %w", err)
		}
	}

	var next sql.NullInt64
	if err := tx.Raw(query).Row().Scan(&next); err != nil {
		return "", fmt.Errorf("failed to compute next goodsno: %w", err)
	}
	if !next.Valid || next.Int64 <= 0 {
		return "", errors.New("failed to compute next goodsno: max+1 returned no value")
	}
	return strconv.FormatInt(next.Int64, 10), nil
}

// txOptions requests serializable isolation where the driver supports
// choosing it. sqlite transactions are always serializable.
func (r *Repository) txOptions() *sql.TxOptions {
	if r.dialect == config.DialectSQLite {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

// Ping verifies the connection within the command timeout.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close releases the connection and any pool opened by Open.
func (r *Repository) Close() error {
	var errs []error
	sqlDB, err := r.db.DB()
	if err == nil {
		errs = append(errs, sqlDB.Close())
	} else {
		errs = append(errs, err)
	}
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
