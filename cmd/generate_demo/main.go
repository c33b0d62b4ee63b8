// Command generate_demo creates a demo scale database and an empty sqlite
// staging MiAll so a sync can be tried without scale software or a MiAll server.
// Usage: go run ./cmd/generate_demo [-dir ./demo] [-broken]
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/miall"
)

const defaultDemoDir = "./demo"

type demoProduct struct {
	Name  string
	Price any
	Code  string
}

func main() {
	dir := flag.String("dir", defaultDemoDir, "directory for scale.db and miall.db")
	broken := flag.Bool("broken", false, "add a product with a malformed code so the sync is rejected")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("Failed to create demo directory: %v", err)
	}

	scalePath := filepath.Join(*dir, "scale.db")
	miallPath := filepath.Join(*dir, "miall.db")

	products := demoProducts()
	if *broken {
		products = append(products, demoProduct{Name: "Broken code", Price: 1, Code: "XX12"})
	}

	log.Printf("Generating scale database at %s...", scalePath)
	if err := writeScaleDB(scalePath, products); err != nil {
		log.Fatalf("Failed to write scale database: %v", err)
	}
	log.Printf("Saved %d products", len(products))

	log.Printf("Generating staging MiAll at %s...", miallPath)
	if err := writeStagingMiAll(miallPath); err != nil {
		log.Fatalf("Failed to write staging MiAll: %v", err)
	}

	log.Println("Demo databases generated successfully! Try:")
	log.Printf("  SCALESYNC_SCALE_DB_PATH=%s SCALESYNC_MIALL_DIALECT=sqlite SCALESYNC_MIALL_CONNECTION_STRING=%s scalesync sync", scalePath, miallPath)
}

func writeScaleDB(path string, products []demoProduct) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE t_base_merchandise (mname1 TEXT, mprice, mcode TEXT)`); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, p := range products {
		if _, err := tx.Exec(`INSERT INTO t_base_merchandise (mname1, mprice, mcode) VALUES (?, ?, ?)`,
			p.Name, p.Price, p.Code); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func writeStagingMiAll(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := miall.Open(ctx, config.MiAll{
		Dialect:          config.DialectSQLite,
		ConnectionString: path,
		CategoryName:     config.DefaultCategoryName,
		CommandTimeout:   10 * time.Second,
		MaxConns:         1,
	})
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	return repo.CreateCategory(ctx, "099", config.DefaultCategoryName)
}

// demoProducts mirrors what scale software exports: prices as numbers or
// text, codes with a two letter prefix.
func demoProducts() []demoProduct {
	return []demoProduct{
		{Name: "红富士苹果", Price: 12.8, Code: "PL10001"},
		{Name: "香蕉", Price: 6.5, Code: "PL10002"},
		{Name: "砂糖橘", Price: "9.90", Code: "PL10003"},
		{Name: "西红柿", Price: 5.2, Code: "VG20001"},
		{Name: "黄瓜", Price: "4", Code: "VG20002"},
		{Name: "土豆", Price: 3.6, Code: "VG20003"},
		{Name: "猪里脊", Price: 32, Code: "MT30001"},
		{Name: "牛腩", Price: 68.8, Code: "MT30002"},
		{Name: "鲈鱼", Price: 45, Code: "FS40001"},
		{Name: "散装大米", Price: "", Code: "GR50001"},
	}
}
