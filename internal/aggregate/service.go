package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperifyio/docsections/internal/catalog"
)

var errNoExtractor = errors.New("no extractor configured")

// Response is the documents-by-type payload for one product.
type Response struct {
	ModelNumber     string  `json:"model_number"`
	TotalDocuments  int     `json:"total_documents"`
	DocumentsByType []Group `json:"documents_by_type"`
}

// Service answers product document queries from a catalogue store.
type Service struct {
	Store      catalog.Store
	Aggregator *Aggregator
}

// ProductDocuments loads and aggregates the documents of one product. Only
// store failures are returned; extraction problems stay inside the groups.
func (s *Service) ProductDocuments(ctx context.Context, modelNumber string) (*Response, error) {
	docs, err := s.Store.Documents(ctx, modelNumber)
	if err != nil {
		return nil, fmt.Errorf("list documents for %s: %w", modelNumber, err)
	}
	types, err := s.Store.DocumentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	agg := s.Aggregator
	if agg == nil {
		agg = &Aggregator{}
	}
	groups := agg.Aggregate(ctx, docs, types)
	if groups == nil {
		groups = []Group{}
	}
	return &Response{ModelNumber: modelNumber, TotalDocuments: len(docs), DocumentsByType: groups}, nil
}
