// Package catalog holds the document listing and type reference data the
// aggregator consumes, and a SQLite-backed store for them.
package catalog

import (
	"context"
	"time"
)

// SourceDocument is one uploaded file attached to a product.
type SourceDocument struct {
	ID             int64
	ModelNumber    string
	DocumentTypeID int
	FileName       string
	StorageURL     string
	FileSize       int64
	MimeType       string
	CreatedAt      time.Time
	IsPrimary      bool
	DisplayOrder   int
	// ExtractedText is nil when the document was never extracted.
	ExtractedText *string
	// PageCount is zero when unknown.
	PageCount int
}

// Display formats a DocumentType may hint at.
const (
	FormatBullets = "bullets"
	FormatColumns = "columns"
)

// DocumentType is static reference data describing a document class.
type DocumentType struct {
	ID            int
	Name          string
	Prefix        string
	Slug          string
	DisplayFormat string
	SortOrder     int
}

// Store is the catalogue query surface.
type Store interface {
	// Documents lists the documents attached to a product, in no
	// particular order.
	Documents(ctx context.Context, modelNumber string) ([]SourceDocument, error)
	DocumentTypes(ctx context.Context) ([]DocumentType, error)
}
