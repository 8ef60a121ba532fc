package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/click-n-sip/internal/core/domain"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS categories (
	id          VARCHAR(64)  PRIMARY KEY,
	title       VARCHAR(128) NOT NULL,
	icon        VARCHAR(16)  NOT NULL,
	description VARCHAR(255) NOT NULL,
	position    INT          NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS products (
	id              VARCHAR(64)   PRIMARY KEY,
	name            VARCHAR(255)  NOT NULL,
	price           DECIMAL(10,2) NOT NULL,
	alcohol_percent DECIMAL(5,2)  NULL,
	brand           VARCHAR(255)  NOT NULL,
	category_id     VARCHAR(64)   NOT NULL,
	image_url       VARCHAR(255)  NOT NULL,
	position        INT           NOT NULL DEFAULT 0
)`

// MySQLAdapter reads the catalog from the products and categories tables.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the catalog tables. The DSN must enable multiStatements.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, catalogSchema); err != nil {
		return fmt.Errorf("create catalog schema: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) LoadCatalog(ctx context.Context) ([]domain.Product, []domain.Category, error) {
	categories, err := m.loadCategories(ctx)
	if err != nil {
		return nil, nil, err
	}
	products, err := m.loadProducts(ctx)
	if err != nil {
		return nil, nil, err
	}
	return products, categories, nil
}

func (m *MySQLAdapter) loadCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, title, icon, description
		FROM categories ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Icon, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (m *MySQLAdapter) loadProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, price, alcohol_percent, brand, category_id, image_url
		FROM products ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.AlcoholPercent, &p.Brand, &p.Category, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// SeedCatalog upserts products and categories in one transaction, keeping
// the given order as display position.
func (m *MySQLAdapter) SeedCatalog(ctx context.Context, products []domain.Product, categories []domain.Category) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, c := range categories {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO categories (id, title, icon, description, position)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE title = VALUES(title), icon = VALUES(icon),
				description = VALUES(description), position = VALUES(position)`,
			c.ID, c.Title, c.Icon, c.Description, i,
		)
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", c.ID, err)
		}
	}

	for i, p := range products {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (id, name, price, alcohol_percent, brand, category_id, image_url, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE name = VALUES(name), price = VALUES(price),
				alcohol_percent = VALUES(alcohol_percent), brand = VALUES(brand),
				category_id = VALUES(category_id), image_url = VALUES(image_url), position = VALUES(position)`,
			p.ID, p.Name, p.Price, p.AlcoholPercent, p.Brand, p.Category, p.ImageURL, i,
		)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}
