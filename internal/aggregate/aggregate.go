// Package aggregate groups a product's documents by type and attaches the
// segmented text of each group's representative document.
package aggregate

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/docsections/internal/catalog"
	"github.com/hyperifyio/docsections/internal/extract"
	"github.com/hyperifyio/docsections/internal/segment"
)

// Defaults for a zero Aggregator.
const (
	DefaultRepresentatives = 1
	DefaultMaxConcurrent   = 4
)

// TextExtractor turns a document URL into text. extract.Extractor
// implements it.
type TextExtractor interface {
	Extract(ctx context.Context, url string) (extract.Result, error)
}

// Segmenter splits text into sections. segment.Segmenter implements it.
type Segmenter interface {
	Segment(text string) []segment.Section
}

// DocumentView is the public face of a SourceDocument. Storage internals
// stay out of it.
type DocumentView struct {
	ID        int64     `json:"id"`
	FileName  string    `json:"file_name"`
	URL       string    `json:"url"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// AdditionalSections carries the sections of a representative after the
// first when more than one is configured.
type AdditionalSections struct {
	DocumentID        int64             `json:"document_id"`
	FormattedSections []segment.Section `json:"formatted_sections"`
}

// Group is one document type with its ordered documents. ExtractedText,
// FormattedSections and PageCount describe the first document only and are
// absent when its extraction failed or was not attempted.
type Group struct {
	TypeID        int            `json:"type_id"`
	TypeName      string         `json:"type_name"`
	Prefix        string         `json:"prefix"`
	Slug          string         `json:"slug"`
	DisplayFormat string         `json:"display_format"`
	SortOrder     int            `json:"sort_order"`
	Documents     []DocumentView `json:"documents"`

	ExtractedText      *string              `json:"extracted_text,omitempty"`
	FormattedSections  []segment.Section    `json:"formatted_sections,omitempty"`
	PageCount          int                  `json:"page_count,omitempty"`
	AdditionalSections []AdditionalSections `json:"additional_sections,omitempty"`

	docs []catalog.SourceDocument
}

// Aggregator assembles typed groups. The zero value segments with the
// default rules and extracts one representative per group.
type Aggregator struct {
	Extractor TextExtractor
	Segmenter Segmenter
	// Representatives is how many leading documents per group are
	// segmented. Zero means DefaultRepresentatives.
	Representatives int
	// MaxConcurrent bounds groups processed at once. Zero means
	// DefaultMaxConcurrent.
	MaxConcurrent int
	// ExtractSlugs limits segmentation to these type slugs. Empty means
	// every type.
	ExtractSlugs []string
}

// Aggregate groups docs by type, orders groups and documents, and fills in
// representative sections. It never fails: a representative that cannot be
// extracted is logged and left without sections.
func (a *Aggregator) Aggregate(ctx context.Context, docs []catalog.SourceDocument, types []catalog.DocumentType) []Group {
	groups := group(docs, types)
	var g errgroup.Group
	g.SetLimit(a.maxConcurrent())
	for i := range groups {
		if !a.wants(groups[i].Slug) {
			continue
		}
		grp := &groups[i]
		g.Go(func() error {
			a.fill(ctx, grp)
			return nil
		})
	}
	_ = g.Wait()
	return groups
}

func (a *Aggregator) maxConcurrent() int {
	if a.MaxConcurrent > 0 {
		return a.MaxConcurrent
	}
	return DefaultMaxConcurrent
}

func (a *Aggregator) representatives() int {
	if a.Representatives > 0 {
		return a.Representatives
	}
	return DefaultRepresentatives
}

func (a *Aggregator) wants(slug string) bool {
	if len(a.ExtractSlugs) == 0 {
		return true
	}
	for _, s := range a.ExtractSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

func (a *Aggregator) segment(text string) []segment.Section {
	if a.Segmenter != nil {
		return a.Segmenter.Segment(text)
	}
	return segment.Segment(text)
}

// fill writes only to grp.
func (a *Aggregator) fill(ctx context.Context, grp *Group) {
	n := a.representatives()
	if n > len(grp.docs) {
		n = len(grp.docs)
	}
	for i := 0; i < n; i++ {
		doc := grp.docs[i]
		text, pages, err := a.textOf(ctx, doc)
		if err != nil {
			log.Warn().Err(err).Int64("document_id", doc.ID).Str("url", doc.StorageURL).Int("type_id", grp.TypeID).Msg("representative extraction failed")
			continue
		}
		sections := a.segment(text)
		if sections == nil {
			sections = []segment.Section{}
		}
		if i == 0 {
			grp.ExtractedText = &text
			grp.FormattedSections = sections
			grp.PageCount = pages
			continue
		}
		grp.AdditionalSections = append(grp.AdditionalSections, AdditionalSections{DocumentID: doc.ID, FormattedSections: sections})
	}
}

// textOf prefers text extracted at upload time over a fresh download.
func (a *Aggregator) textOf(ctx context.Context, doc catalog.SourceDocument) (string, int, error) {
	if doc.ExtractedText != nil {
		return *doc.ExtractedText, doc.PageCount, nil
	}
	if a.Extractor == nil {
		return "", 0, &extract.Error{Op: "fetch", URL: doc.StorageURL, Err: errNoExtractor}
	}
	res, err := a.Extractor.Extract(ctx, doc.StorageURL)
	if err != nil {
		return "", 0, err
	}
	return res.Text, res.PageCount, nil
}

func group(docs []catalog.SourceDocument, types []catalog.DocumentType) []Group {
	meta := make(map[int]catalog.DocumentType, len(types))
	for _, t := range types {
		meta[t.ID] = t
	}
	byType := map[int]*Group{}
	var order []int
	for _, d := range docs {
		grp, ok := byType[d.DocumentTypeID]
		if !ok {
			grp = newGroup(d.DocumentTypeID, meta)
			byType[d.DocumentTypeID] = grp
			order = append(order, d.DocumentTypeID)
		}
		grp.docs = append(grp.docs, d)
	}
	out := make([]Group, 0, len(order))
	for _, id := range order {
		grp := byType[id]
		sortDocuments(grp.docs)
		grp.Documents = make([]DocumentView, len(grp.docs))
		for i, d := range grp.docs {
			grp.Documents[i] = view(d)
		}
		out = append(out, *grp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].TypeID < out[j].TypeID
	})
	return out
}

// newGroup attaches type metadata, synthesizing it from the id when the type
// is unknown or partially filled.
func newGroup(id int, meta map[int]catalog.DocumentType) *Group {
	t, ok := meta[id]
	n := strconv.Itoa(id)
	grp := &Group{
		TypeID:        id,
		TypeName:      t.Name,
		Prefix:        t.Prefix,
		Slug:          t.Slug,
		DisplayFormat: t.DisplayFormat,
		SortOrder:     t.SortOrder,
	}
	if grp.TypeName == "" {
		grp.TypeName = "Type " + n
	}
	if grp.Prefix == "" {
		grp.Prefix = "0" + n
	}
	if grp.Slug == "" {
		grp.Slug = "type-" + n
	}
	if !ok {
		grp.SortOrder = id
	}
	return grp
}

func sortDocuments(docs []catalog.SourceDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if a.IsPrimary != b.IsPrimary {
			return a.IsPrimary
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func view(d catalog.SourceDocument) DocumentView {
	return DocumentView{
		ID:        d.ID,
		FileName:  d.FileName,
		URL:       d.StorageURL,
		FileSize:  d.FileSize,
		MimeType:  d.MimeType,
		CreatedAt: d.CreatedAt,
	}
}
