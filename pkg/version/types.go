// ABOUTME: Revision data model for prompt history
// ABOUTME: Revisions pair an immutable snapshot with author, time and milestone flag

package version

import (
	"errors"
	"time"

	"github.com/nainya/promptvault/pkg/diff"
)

// DefaultRetentionLimit is the number of non-milestone revisions kept per prompt
const DefaultRetentionLimit = 50

// ErrRevisionNotFound is returned when a revision ID is not in the collection
var ErrRevisionNotFound = errors.New("revision not found")

// Revision is a stored snapshot of a prompt
type Revision struct {
	ID          string        `json:"id" yaml:"id"`                     // Unique revision identifier
	Sequence    int64         `json:"sequence" yaml:"sequence"`         // Insertion order within the collection
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`     // Capture time
	Author      string        `json:"author" yaml:"author"`             // Free-text author
	IsMilestone bool          `json:"is_milestone" yaml:"is_milestone"` // Milestones are never pruned
	Snapshot    diff.Snapshot `json:"snapshot" yaml:"snapshot"`         // Captured content
}

// newerThan orders by creation time, then by insertion order
func (r *Revision) newerThan(o *Revision) bool {
	if !r.CreatedAt.Equal(o.CreatedAt) {
		return r.CreatedAt.After(o.CreatedAt)
	}
	return r.Sequence > o.Sequence
}

// Snapshotter is anything whose current content can be captured
type Snapshotter interface {
	Snapshot() diff.Snapshot
}

// Collection holds the revisions owned by one prompt. Implementations need
// not be safe for concurrent use; callers serialize writes per prompt.
type Collection interface {
	List() []*Revision
	Insert(r *Revision)
	Delete(id string)
}

// Sorter is implemented by collections that can persist an ordering
type Sorter interface {
	SortNewestFirst()
}

// AuthorProvider supplies the author used when a capture names none
type AuthorProvider interface {
	DefaultAuthor() string
}

// AuthorFunc adapts a function to AuthorProvider
type AuthorFunc func() string

// DefaultAuthor implements AuthorProvider
func (f AuthorFunc) DefaultAuthor() string { return f() }

// StaticAuthor is an AuthorProvider returning a fixed name
type StaticAuthor string

// DefaultAuthor implements AuthorProvider
func (a StaticAuthor) DefaultAuthor() string { return string(a) }

// Observer receives revision store events, e.g. for metrics
type Observer interface {
	RevisionCaptured(milestone bool)
	CaptureSkipped()
	RevisionsPruned(n int)
}
