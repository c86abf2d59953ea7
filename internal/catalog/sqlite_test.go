package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, dt := range []DocumentType{
		{ID: 10, Name: "Specifications", Prefix: "10", Slug: "specifications", DisplayFormat: FormatColumns, SortOrder: 2},
		{ID: 7, Name: "Key Features", Prefix: "07", Slug: "key-features", DisplayFormat: FormatBullets, SortOrder: 1},
	} {
		if err := s.PutType(ctx, dt); err != nil {
			t.Fatal(err)
		}
	}
	text := "• Waterproof housing rated IP67"
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.PutDocument(ctx, SourceDocument{
		ModelNumber: "RT-10", DocumentTypeID: 7, FileName: "kf.pdf", StorageURL: "https://cdn/kf.pdf",
		FileSize: 1234, MimeType: "application/pdf", CreatedAt: created, IsPrimary: true,
		DisplayOrder: 1, ExtractedText: &text, PageCount: 2,
	})
	if err != nil || id == 0 {
		t.Fatalf("put: id=%d err=%v", id, err)
	}
	if _, err := s.PutDocument(ctx, SourceDocument{ModelNumber: "RT-10", DocumentTypeID: 10, FileName: "spec.pdf", StorageURL: "https://cdn/spec.pdf"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PutDocument(ctx, SourceDocument{ModelNumber: "OTHER", DocumentTypeID: 10, FileName: "x.pdf", StorageURL: "https://cdn/x.pdf"}); err != nil {
		t.Fatal(err)
	}

	docs, err := s.Documents(ctx, "RT-10")
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	kf := docs[0]
	if kf.ID != id || !kf.IsPrimary || kf.PageCount != 2 || !kf.CreatedAt.Equal(created) {
		t.Fatalf("unexpected document %+v", kf)
	}
	if kf.ExtractedText == nil || *kf.ExtractedText != text {
		t.Fatalf("extracted text lost: %v", kf.ExtractedText)
	}
	if docs[1].ExtractedText != nil {
		t.Fatalf("expected nil extracted text for unextracted document")
	}

	types, err := s.DocumentTypes(ctx)
	if err != nil {
		t.Fatalf("types: %v", err)
	}
	if len(types) != 2 || types[0].ID != 7 || types[1].DisplayFormat != FormatColumns {
		t.Fatalf("unexpected types %+v", types)
	}
}

func TestSQLiteStore_UnknownProduct(t *testing.T) {
	s := openTestStore(t)
	docs, err := s.Documents(context.Background(), "NOPE")
	if err != nil || len(docs) != 0 {
		t.Fatalf("docs=%v err=%v", docs, err)
	}
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
