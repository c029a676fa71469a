package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type table struct {
	name string
	ddl  string
}

// tables in creation order; the statements are valid on both Postgres and SQLite.
var tables = []table{
	{"produtos", `CREATE TABLE IF NOT EXISTS produtos (
	product_id INTEGER NOT NULL PRIMARY KEY,
	asin VARCHAR(10) NOT NULL UNIQUE,
	title VARCHAR(500),
	product_group VARCHAR(50),
	salesrank INTEGER,
	review_total INTEGER DEFAULT 0,
	review_downloaded INTEGER DEFAULT 0,
	review_avg FLOAT DEFAULT 0.0
)`},
	{"produtos_similares", `CREATE TABLE IF NOT EXISTS produtos_similares (
	product_asin VARCHAR(10) NOT NULL,
	similar_asin VARCHAR(10) NOT NULL,
	PRIMARY KEY (product_asin, similar_asin),
	FOREIGN KEY (product_asin) REFERENCES produtos(asin)
)`},
	{"categoria", `CREATE TABLE IF NOT EXISTS categoria (
	category_id INTEGER NOT NULL PRIMARY KEY,
	name VARCHAR(220),
	parent_id INTEGER,
	FOREIGN KEY (parent_id) REFERENCES categoria(category_id)
)`},
	{"produto_categoria", `CREATE TABLE IF NOT EXISTS produto_categoria (
	product_id INTEGER NOT NULL,
	category_id INTEGER NOT NULL,
	PRIMARY KEY (product_id, category_id),
	FOREIGN KEY (product_id) REFERENCES produtos(product_id),
	FOREIGN KEY (category_id) REFERENCES categoria(category_id)
)`},
	{"avaliacoes", `CREATE TABLE IF NOT EXISTS avaliacoes (
	product_id INTEGER NOT NULL,
	customer_id VARCHAR(16) NOT NULL,
	review_date DATE NOT NULL,
	rating INTEGER DEFAULT 0,
	votes INTEGER DEFAULT 0,
	helpful INTEGER DEFAULT 0,
	PRIMARY KEY (product_id, customer_id, review_date),
	FOREIGN KEY (product_id) REFERENCES produtos(product_id)
)`},
	{"cliente", `CREATE TABLE IF NOT EXISTS cliente (
	customer_id VARCHAR(16) NOT NULL PRIMARY KEY
)`},
}

// Tables returns the catalog table names in creation order.
func Tables() []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.name
	}
	return names
}

// CreateSchema creates any missing catalog table. Existing tables are left untouched.
func CreateSchema(ctx context.Context, gdb *gorm.DB) error {

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Exec(t.ddl).Error; err != nil {
				return fmt.Errorf("create table %s: %w", t.name, err)
			}
			syslog(fmt.Sprintf("table %s ready", t.name))
		}
		return nil
	})
}
