package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS document_type (
	id             INTEGER PRIMARY KEY,
	type_name      TEXT NOT NULL,
	prefix         TEXT NOT NULL DEFAULT '',
	slug           TEXT NOT NULL DEFAULT '',
	display_format TEXT NOT NULL DEFAULT '',
	sort_order     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS product_document (
	id               INTEGER PRIMARY KEY,
	model_number     TEXT NOT NULL,
	document_type_id INTEGER NOT NULL,
	file_name        TEXT NOT NULL,
	storage_url      TEXT NOT NULL,
	file_size        INTEGER NOT NULL DEFAULT 0,
	mime_type        TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	is_primary       INTEGER NOT NULL DEFAULT 0,
	display_order    INTEGER NOT NULL DEFAULT 0,
	extracted_text   TEXT,
	page_count       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_product_document_model ON product_document(model_number);
`

// SQLiteStore reads the catalogue from a SQLite database.
type SQLiteStore struct {
	DB *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &SQLiteStore{DB: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error { return s.DB.Close() }

// Migrate creates missing tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PutType inserts or replaces a document type.
func (s *SQLiteStore) PutType(ctx context.Context, t DocumentType) error {
	_, err := s.DB.ExecContext(ctx, `INSERT OR REPLACE INTO document_type
		(id, type_name, prefix, slug, display_format, sort_order) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Prefix, t.Slug, t.DisplayFormat, t.SortOrder)
	if err != nil {
		return fmt.Errorf("put type %d: %w", t.ID, err)
	}
	return nil
}

// PutDocument inserts or replaces a document. A zero ID lets SQLite assign
// one; the assigned ID is returned.
func (s *SQLiteStore) PutDocument(ctx context.Context, d SourceDocument) (int64, error) {
	var id any
	if d.ID != 0 {
		id = d.ID
	}
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var text any
	if d.ExtractedText != nil {
		text = *d.ExtractedText
	}
	res, err := s.DB.ExecContext(ctx, `INSERT OR REPLACE INTO product_document
		(id, model_number, document_type_id, file_name, storage_url, file_size, mime_type,
		 created_at, is_primary, display_order, extracted_text, page_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, d.ModelNumber, d.DocumentTypeID, d.FileName, d.StorageURL, d.FileSize, d.MimeType,
		created.UTC().Format(time.RFC3339Nano), d.IsPrimary, d.DisplayOrder, text, d.PageCount)
	if err != nil {
		return 0, fmt.Errorf("put document %q: %w", d.FileName, err)
	}
	return res.LastInsertId()
}

// Documents implements Store.
func (s *SQLiteStore) Documents(ctx context.Context, modelNumber string) ([]SourceDocument, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, model_number, document_type_id, file_name,
		storage_url, file_size, mime_type, created_at, is_primary, display_order,
		extracted_text, page_count
		FROM product_document WHERE model_number = ? ORDER BY id`, modelNumber)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()
	var out []SourceDocument
	for rows.Next() {
		var (
			d       SourceDocument
			created string
			text    sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.ModelNumber, &d.DocumentTypeID, &d.FileName,
			&d.StorageURL, &d.FileSize, &d.MimeType, &created, &d.IsPrimary, &d.DisplayOrder,
			&text, &d.PageCount); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("document %d created_at %q: %w", d.ID, created, err)
		}
		if text.Valid {
			s := text.String
			d.ExtractedText = &s
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DocumentTypes implements Store.
func (s *SQLiteStore) DocumentTypes(ctx context.Context) ([]DocumentType, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, type_name, prefix, slug, display_format, sort_order
		FROM document_type ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query document types: %w", err)
	}
	defer rows.Close()
	var out []DocumentType
	for rows.Next() {
		var t DocumentType
		if err := rows.Scan(&t.ID, &t.Name, &t.Prefix, &t.Slug, &t.DisplayFormat, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
