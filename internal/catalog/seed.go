package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Seed is a catalogue snapshot in YAML (or JSON) form, used to load a
// development database.
type Seed struct {
	Types     []SeedType     `yaml:"types"`
	Documents []SeedDocument `yaml:"documents"`
}

// SeedType is one document_type row.
type SeedType struct {
	ID            int    `yaml:"id"`
	Name          string `yaml:"name"`
	Prefix        string `yaml:"prefix"`
	Slug          string `yaml:"slug"`
	DisplayFormat string `yaml:"displayFormat"`
	SortOrder     int    `yaml:"sortOrder"`
}

// SeedDocument is one product_document row.
type SeedDocument struct {
	ID            int64     `yaml:"id"`
	ModelNumber   string    `yaml:"modelNumber"`
	TypeID        int       `yaml:"typeId"`
	FileName      string    `yaml:"fileName"`
	URL           string    `yaml:"url"`
	FileSize      int64     `yaml:"fileSize"`
	MimeType      string    `yaml:"mimeType"`
	CreatedAt     time.Time `yaml:"createdAt"`
	Primary       bool      `yaml:"primary"`
	DisplayOrder  int       `yaml:"displayOrder"`
	ExtractedText *string   `yaml:"extractedText"`
	PageCount     int       `yaml:"pageCount"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (Seed, error) {
	var s Seed
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return s, nil
}

// Import writes every type and document of seed, replacing rows with the
// same id. It returns the number of documents written.
func (s *SQLiteStore) Import(ctx context.Context, seed Seed) (int, error) {
	for _, t := range seed.Types {
		if err := s.PutType(ctx, DocumentType{
			ID: t.ID, Name: t.Name, Prefix: t.Prefix, Slug: t.Slug,
			DisplayFormat: t.DisplayFormat, SortOrder: t.SortOrder,
		}); err != nil {
			return 0, err
		}
	}
	n := 0
	for _, d := range seed.Documents {
		if d.ModelNumber == "" || d.URL == "" {
			return n, fmt.Errorf("seed document %q: modelNumber and url are required", d.FileName)
		}
		if _, err := s.PutDocument(ctx, SourceDocument{
			ID: d.ID, ModelNumber: d.ModelNumber, DocumentTypeID: d.TypeID, FileName: d.FileName,
			StorageURL: d.URL, FileSize: d.FileSize, MimeType: d.MimeType, CreatedAt: d.CreatedAt,
			IsPrimary: d.Primary, DisplayOrder: d.DisplayOrder, ExtractedText: d.ExtractedText,
			PageCount: d.PageCount,
		}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
