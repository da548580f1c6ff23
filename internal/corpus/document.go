// Package corpus defines the documents the engine indexes and the sources
// that supply them.
package corpus

import (
	"context"
	"slices"
	"time"
)

// Document is one note in the corpus. Documents are immutable once a source
// hands them out; a changed file produces a new *Document.
type Document struct {
	// ID is the stable key, the slash-separated path for directory sources.
	ID    string
	Title string
	Body  string
	Tags  []string

	// Links holds outbound references to other document IDs.
	Links []string

	// Attendees comes from front matter and feeds the attendees signal.
	Attendees []string

	CreatedAt  time.Time
	ModifiedAt time.Time
	Size       int64
}

// SameRevision reports whether o is an unchanged read of d: same file
// metadata and same content.
func (d *Document) SameRevision(o *Document) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	return d.ID == o.ID && d.Size == o.Size && d.ModifiedAt.Equal(o.ModifiedAt) &&
		d.Title == o.Title && d.Body == o.Body &&
		slices.Equal(d.Tags, o.Tags) && slices.Equal(d.Attendees, o.Attendees) &&
		slices.Equal(d.Links, o.Links) && d.CreatedAt.Equal(o.CreatedAt)
}

// ChangeKind classifies a corpus change.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeRemoved
	// ChangeRescan asks the consumer to re-list the whole source, used when a
	// directory moved and individual file events are unreliable.
	ChangeRescan
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	case ChangeRescan:
		return "rescan"
	default:
		return "unknown"
	}
}

// Change is one corpus change event. Document is set for added and modified.
type Change struct {
	Kind     ChangeKind
	ID       string
	Document *Document
}

// Source enumerates documents.
type Source interface {
	// List returns every readable document. Unreadable documents are
	// skipped; an error means the corpus as a whole could not be listed.
	List(ctx context.Context) ([]*Document, error)

	// Load reads a single document by ID.
	Load(ctx context.Context, id string) (*Document, error)
}

// Watchable is implemented by sources that can stream changes.
type Watchable interface {
	// Watch streams change batches until ctx ends. Batches preserve the order
	// in which changes happened.
	Watch(ctx context.Context) (<-chan []Change, error)
}

// ListReport describes what the last listing skipped, as DocumentReadErrors.
type ListReport struct {
	Skipped []error
}

// Reporter is implemented by sources that keep a report of the last listing.
type Reporter interface {
	LastReport() ListReport
}
