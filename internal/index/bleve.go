package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/meetprep/internal/corpus"
	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/text"
)

// Boosts applied per field at query time.
var fieldBoost = map[Field]float64{
	FieldTitle:   2.0,
	FieldContent: 1.0,
	FieldTags:    1.5,
}

// BleveIndex is an in-memory bleve index over title, content and tags.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// bleveDocument is the document structure for bleve indexing.
type bleveDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

// NewBleveIndex creates an empty in-memory index.
func NewBleveIndex() (*BleveIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, meeterrors.IndexError("create index mapping", err)
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, meeterrors.IndexError("create index", err)
	}
	return &BleveIndex{index: idx}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": TokenizerName,
		"token_filters": []string{
			lowercase.Name,
			StopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = AnalyzerName

	docMapping := bleve.NewDocumentMapping()
	for _, f := range AllFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = AnalyzerName
		fm.Store = false
		fm.IncludeInAll = false
		fm.IncludeTermVectors = true
		docMapping.AddFieldMappingsAt(string(f), fm)
	}
	indexMapping.DefaultMapping = docMapping

	return indexMapping, nil
}

func toBleve(doc *corpus.Document) bleveDocument {
	return bleveDocument{
		Title:   doc.Title,
		Content: doc.Body,
		Tags:    strings.Join(doc.Tags, " "),
	}
}

// Add indexes one document.
func (b *BleveIndex) Add(ctx context.Context, doc *corpus.Document) error {
	return b.AddBatch(ctx, []*corpus.Document{doc})
}

// Update replaces one document.
func (b *BleveIndex) Update(ctx context.Context, doc *corpus.Document) error {
	return b.AddBatch(ctx, []*corpus.Document{doc})
}

// Remove deletes one document.
func (b *BleveIndex) Remove(ctx context.Context, id string) error {
	return b.RemoveBatch(ctx, []string{id})
}

// AddBatch indexes docs in a single bleve batch.
func (b *BleveIndex) AddBatch(ctx context.Context, docs []*corpus.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return meeterrors.IndexError("index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if doc == nil || doc.ID == "" {
			continue
		}
		if err := batch.Index(doc.ID, toBleve(doc)); err != nil {
			slog.Warn("document_skipped", meeterrors.LogAttrs(meeterrors.DocumentReadError(doc.ID, err))...)
			continue
		}
	}
	if batch.Size() == 0 {
		return nil
	}

	if err := b.index.Batch(batch); err != nil {
		return meeterrors.IndexError("execute batch", err)
	}
	return nil
}

// RemoveBatch deletes ids in a single bleve batch.
func (b *BleveIndex) RemoveBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return meeterrors.IndexError("index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return meeterrors.IndexError("delete documents", err)
	}
	return nil
}

// Query runs a disjunction of per-field match queries.
func (b *BleveIndex) Query(ctx context.Context, terms string, fields []Field, limit int) ([]Hit, error) {
	tokens := text.Tokenize(terms)
	if len(tokens) == 0 {
		return []Hit{}, nil
	}
	if len(fields) == 0 {
		fields = AllFields
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, meeterrors.IndexError("index is closed", nil)
	}

	analyzed := strings.Join(tokens, " ")
	disjuncts := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(analyzed)
		mq.SetField(string(f))
		mq.Analyzer = AnalyzerName
		if boost, ok := fieldBoost[f]; ok {
			mq.SetBoost(boost)
		}
		disjuncts = append(disjuncts, mq)
	}

	size := limit
	if size <= 0 {
		count, err := b.index.DocCount()
		if err != nil {
			return nil, meeterrors.IndexError("count documents", err)
		}
		size = int(count)
	}
	if size == 0 {
		return []Hit{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(disjuncts...), size, 0, false)
	req.SortBy([]string{"-_score", "_id"})
	req.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, meeterrors.IndexError("search", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, Hit{
			DocID:        h.ID,
			Score:        h.Score,
			MatchedTerms: matchedTerms(h, fields),
		})
	}
	return hits, nil
}

// matchedTerms collects the distinct terms that hit in the queried fields.
func matchedTerms(hit *search.DocumentMatch, fields []Field) []string {
	seen := make(map[string]struct{})
	for _, f := range fields {
		for term := range hit.Locations[string(f)] {
			seen[term] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for term := range seen {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of indexed documents.
func (b *BleveIndex) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}
	n, err := b.index.DocCount()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close releases the index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

var _ TokenIndex = (*BleveIndex)(nil)
