package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a SQLite database. Run scopes map onto
// SQL transactions, which gives the all-or-nothing commit guarantee.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS assets (
	id        TEXT PRIMARY KEY,
	type      TEXT NOT NULL,
	w         REAL NOT NULL,
	h         REAL NOT NULL,
	mime_type TEXT NOT NULL,
	name      TEXT NOT NULL,
	src       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS shapes (
	id       TEXT PRIMARY KEY,
	type     TEXT NOT NULL,
	x        REAL NOT NULL,
	y        REAL NOT NULL,
	rotation REAL NOT NULL,
	opacity  REAL NOT NULL,
	asset_id TEXT NOT NULL,
	w        REAL NOT NULL,
	h        REAL NOT NULL,
	alt_text TEXT NOT NULL,
	url      TEXT NOT NULL
);
`

// NewSQLiteStore opens (and migrates) a SQLite-backed document at path.
// Use ":memory:" for an ephemeral document.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("document: sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer keeps SQLite happy under concurrent Run scopes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, w, h, mime_type, name, src FROM assets WHERE id = ?
	`, QualifyAssetID(id))

	var asset Asset
	err := row.Scan(&asset.ID, &asset.Type, &asset.W, &asset.H, &asset.MimeType, &asset.Name, &asset.Src)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &asset, nil
}

func (s *SQLiteStore) GetShape(ctx context.Context, id string) (*Shape, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, x, y, rotation, opacity, asset_id, w, h, alt_text, url
		FROM shapes WHERE id = ?
	`, QualifyShapeID(id))

	var shape Shape
	err := row.Scan(
		&shape.ID, &shape.Type, &shape.X, &shape.Y, &shape.Rotation, &shape.Opacity,
		&shape.Props.AssetID, &shape.Props.W, &shape.Props.H, &shape.Props.AltText, &shape.Props.URL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shape: %w", err)
	}
	return &shape, nil
}

func (s *SQLiteStore) Run(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqliteTx{ctx: ctx, tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqliteTx) HasAsset(id string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(t.ctx, `SELECT 1 FROM assets WHERE id = ?`, QualifyAssetID(id)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has asset: %w", err)
	}
	return true, nil
}

func (t *sqliteTx) CreateAssets(assets []Asset) error {
	for _, asset := range assets {
		if asset.ID == "" {
			return ErrInvalidID
		}
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO assets (id, type, w, h, mime_type, name, src)
			VALUES (?,?,?,?,?,?,?)
		`, QualifyAssetID(asset.ID), asset.Type, asset.W, asset.H, asset.MimeType, asset.Name, asset.Src)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint") {
				return ErrAlreadyExists
			}
			return fmt.Errorf("create asset: %w", err)
		}
	}
	return nil
}

func (t *sqliteTx) CreateShape(shape Shape) error {
	if shape.ID == "" {
		return ErrInvalidID
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO shapes (id, type, x, y, rotation, opacity, asset_id, w, h, alt_text, url)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`,
		QualifyShapeID(shape.ID), shape.Type, shape.X, shape.Y, shape.Rotation, shape.Opacity,
		shape.Props.AssetID, shape.Props.W, shape.Props.H, shape.Props.AltText, shape.Props.URL,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create shape: %w", err)
	}
	return nil
}

func (t *sqliteTx) DeleteShape(id string) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM shapes WHERE id = ?`, QualifyShapeID(id))
	if err != nil {
		return fmt.Errorf("delete shape: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
