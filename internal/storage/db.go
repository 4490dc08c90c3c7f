package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tradecatalog/internal"
)

// Timestamps are stored in a fixed-width UTC layout so text order is time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// DB keeps each product as a JSON document plus the columns it is filtered
// and ordered by. Every listing reads the whole table; the catalog engine
// filters in memory, which only suits catalogs of modest size.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  referencia TEXT NOT NULL DEFAULT '',
  fabrica TEXT NOT NULL DEFAULT '',
  marca TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1,
  doc TEXT NOT NULL,
  createdAt TEXT NOT NULL,
  updatedAt TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_referencia ON products(referencia);
CREATE INDEX IF NOT EXISTS idx_products_fabrica ON products(fabrica);
CREATE INDEX IF NOT EXISTS idx_products_createdAt ON products(createdAt);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) Create(ctx context.Context, p internal.Product) (string, error) {
	now := d.now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = &now
	p.UpdatedAt = &now

	doc, err := json.Marshal(p)
	if err != nil {
		return "", &internal.GatewayError{Op: "create", Err: err}
	}
	_, err = d.conn.ExecContext(ctx, `
INSERT INTO products (id, referencia, fabrica, marca, active, doc, createdAt, updatedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Referencia, p.Fabrica, p.Marca, p.IsActive(), string(doc),
		now.Format(tsLayout), now.Format(tsLayout),
	)
	if err != nil {
		return "", &internal.GatewayError{Op: "create", Err: err}
	}
	return p.ID, nil
}

func (d *DB) Get(ctx context.Context, id string) (internal.Product, error) {
	p, err := getDoc(ctx, d.conn, id)
	if err != nil {
		return internal.Product{}, &internal.GatewayError{Op: "get", ID: id, Err: err}
	}
	return p, nil
}

func (d *DB) Update(ctx context.Context, id string, patch internal.Patch) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return &internal.GatewayError{Op: "update", ID: id, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	p, err := getDoc(ctx, tx, id)
	if err != nil {
		return &internal.GatewayError{Op: "update", ID: id, Err: err}
	}
	if err := internal.ApplyPatch(&p, patch); err != nil {
		return err
	}
	now := d.now().UTC()
	p.UpdatedAt = &now

	doc, err := json.Marshal(p)
	if err != nil {
		return &internal.GatewayError{Op: "update", ID: id, Err: err}
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE products
SET referencia = ?, fabrica = ?, marca = ?, active = ?, doc = ?, updatedAt = ?
WHERE id = ?`,
		p.Referencia, p.Fabrica, p.Marca, p.IsActive(), string(doc), now.Format(tsLayout), id,
	); err != nil {
		return &internal.GatewayError{Op: "update", ID: id, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &internal.GatewayError{Op: "update", ID: id, Err: err}
	}
	return nil
}

func (d *DB) Delete(ctx context.Context, id string) error {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return &internal.GatewayError{Op: "delete", ID: id, Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &internal.GatewayError{Op: "delete", ID: id, Err: internal.ErrNotFound}
	}
	return nil
}

// ListAll returns the products matching filter, most recently created first.
func (d *DB) ListAll(ctx context.Context, filter internal.StoreFilter) ([]internal.Product, error) {
	where, args := filterClause(filter)
	rows, err := d.conn.QueryContext(ctx, `SELECT doc FROM products`+where+` ORDER BY createdAt DESC, rowid DESC`, args...)
	if err != nil {
		return nil, &internal.GatewayError{Op: "list", Err: err}
	}
	defer rows.Close()

	out := []internal.Product{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, &internal.GatewayError{Op: "list", Err: err}
		}
		var p internal.Product
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, &internal.GatewayError{Op: "list", Err: err}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &internal.GatewayError{Op: "list", Err: err}
	}
	return out, nil
}

func (d *DB) ListReferences(ctx context.Context, filter internal.StoreFilter) (map[string]struct{}, error) {
	where, args := filterClause(filter)
	if where == "" {
		where = " WHERE referencia <> ''"
	} else {
		where += " AND referencia <> ''"
	}
	rows, err := d.conn.QueryContext(ctx, `SELECT DISTINCT referencia FROM products`+where, args...)
	if err != nil {
		return nil, &internal.GatewayError{Op: "references", Err: err}
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, &internal.GatewayError{Op: "references", Err: err}
		}
		out[ref] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, &internal.GatewayError{Op: "references", Err: err}
	}
	return out, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDoc(ctx context.Context, q queryer, id string) (internal.Product, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT doc FROM products WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Product{}, internal.ErrNotFound
	}
	if err != nil {
		return internal.Product{}, err
	}
	var p internal.Product
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return internal.Product{}, err
	}
	return p, nil
}

func filterClause(filter internal.StoreFilter) (string, []any) {
	conds := []string{}
	args := []any{}
	if filter.Fabrica != "" {
		conds = append(conds, "fabrica = ?")
		args = append(args, filter.Fabrica)
	}
	if filter.Marca != "" {
		conds = append(conds, "marca = ?")
		args = append(args, filter.Marca)
	}
	if filter.Active != nil {
		conds = append(conds, "active = ?")
		args = append(args, *filter.Active)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
