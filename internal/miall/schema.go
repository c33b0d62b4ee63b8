package miall

import (
	"context"
	"fmt"

	"github.com/mrlokans/scalesync/internal/config"
)

// Goods mirrors the columns of jbgoods that scalesync reads or writes.
// MiAll owns the real table; the model is only migrated for sqlite staging
// databases.
type Goods struct {
	GoodsNo     string  `gorm:"column:goodsno;primaryKey;size:50"`
	GoodsCode   string  `gorm:"column:goodscode;size:50"`
	GoodsName   string  `gorm:"column:goodsname;size:200"`
	GoodsTypeNo string  `gorm:"column:goodstypeno;size:50;index"`
	Barcode     string  `gorm:"column:barcode;size:50;index"`
	SRefPrice   float64 `gorm:"column:srefprice;type:decimal(18,4)"`
	SalesType   int     `gorm:"column:salestype"`
}

func (Goods) TableName() string {
	return "jbgoods"
}

// GoodsType mirrors jbgoodstype, the MiAll category table.
type GoodsType struct {
	GoodsTypeNo   string `gorm:"column:goodstypeno;primaryKey;size:50"`
	GoodsTypeName string `gorm:"column:goodstypename;size:100;uniqueIndex"`
}

func (GoodsType) TableName() string {
	return "jbgoodstype"
}

// SalesTypeByUnit marks products sold per piece. Scale products are priced by
// the scale itself, so MiAll only needs the unit flag.
const SalesTypeByUnit = 0

// EnsureSchema creates jbgoods and jbgoodstype on a sqlite staging database.
// Other dialects point at a live MiAll installation whose schema is managed
// by MiAll, so they are refused.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r.dialect != config.DialectSQLite {
		return fmt.Errorf("refusing to migrate %s database: the MiAll schema is managed by MiAll", r.dialect)
	}
	if err := r.db.WithContext(ctx).AutoMigrate(&GoodsType{}, &Goods{}); err != nil {
		return fmt.Errorf("failed to migrate staging schema: %w", err)
	}
	return nil
}

// CreateCategory adds a category to a sqlite staging database.
func (r *Repository) CreateCategory(ctx context.Context, code, name string) error {
	if r.dialect != config.DialectSQLite {
		return fmt.Errorf("refusing to create category in %s database: use the MiAll back office", r.dialect)
	}
	err := r.db.WithContext(ctx).Create(&GoodsType{GoodsTypeNo: code, GoodsTypeName: name}).Error
	if err != nil {
		return fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return nil
}
