// Package index provides the multi-field lexical token index.
package index

import (
	"context"

	"github.com/Aman-CERP/meetprep/internal/corpus"
)

// Field names an indexed document field.
type Field string

const (
	FieldTitle   Field = "title"
	FieldContent Field = "content"
	FieldTags    Field = "tags"
)

// AllFields lists every searchable field.
var AllFields = []Field{FieldTitle, FieldContent, FieldTags}

// Hit is one scored query result.
type Hit struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// TokenIndex is a keyword index with a built-in relevance score.
// Mutations are only applied to an index that readers cannot see.
type TokenIndex interface {
	// Add indexes a document, replacing any previous entry with the same ID.
	Add(ctx context.Context, doc *corpus.Document) error
	// Update is Add for a document known to be indexed already.
	Update(ctx context.Context, doc *corpus.Document) error
	// Remove deletes a document. Removing an unknown ID is a no-op.
	Remove(ctx context.Context, id string) error

	// AddBatch indexes docs in one batch. Documents that cannot be mapped are
	// skipped and logged; the returned error is for the batch as a whole.
	AddBatch(ctx context.Context, docs []*corpus.Document) error
	RemoveBatch(ctx context.Context, ids []string) error

	// Query tokenizes terms and searches the given fields, returning hits
	// ordered by score descending then DocID ascending. limit <= 0 returns
	// every match.
	Query(ctx context.Context, terms string, fields []Field, limit int) ([]Hit, error)

	Count() int
	Close() error
}
