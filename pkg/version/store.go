// ABOUTME: Revision store implementation with retention pruning
// ABOUTME: Captures changed snapshots, protects milestones, lists newest first

package version

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nainya/promptvault/pkg/diff"
)

// Store manages prompt revisions. It holds no per-prompt state; every call
// takes the prompt's Collection explicitly.
type Store struct {
	now       func() time.Time
	newID     func() string
	authors   AuthorProvider
	retention int
	observer  Observer
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the revision ID generator
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithAuthorProvider sets the fallback author source
func WithAuthorProvider(p AuthorProvider) Option {
	return func(s *Store) { s.authors = p }
}

// WithRetentionLimit sets the default retention limit used by Capture
func WithRetentionLimit(limit int) Option {
	return func(s *Store) { s.retention = limit }
}

// WithObserver registers an event observer
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// NewStore creates a revision store
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:       time.Now,
		newID:     uuid.NewString,
		authors:   StaticAuthor(""),
		retention: DefaultRetentionLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CaptureOption configures a single Capture call
type CaptureOption func(*captureConfig)

type captureConfig struct {
	author    *string
	milestone bool
	retention *int
}

// ByAuthor sets the revision author
func ByAuthor(author string) CaptureOption {
	return func(c *captureConfig) { c.author = &author }
}

// AsMilestone marks the new revision as a milestone
func AsMilestone() CaptureOption {
	return func(c *captureConfig) { c.milestone = true }
}

// Retain overrides the retention limit; limit <= 0 disables pruning
func Retain(limit int) CaptureOption {
	return func(c *captureConfig) { c.retention = &limit }
}

// EnsureBaseline creates a milestone revision from doc when revs is empty.
// It returns the new revision, or nil when revs already has revisions.
func (s *Store) EnsureBaseline(doc Snapshotter, revs Collection, opts ...CaptureOption) *Revision {
	if len(revs.List()) > 0 {
		return nil
	}

	cfg := s.captureConfig(opts)
	r := s.insert(doc.Snapshot(), revs, cfg.authorOr(s.authors), true)
	if s.observer != nil {
		s.observer.RevisionCaptured(true)
	}
	return r
}

// Capture stores doc's current snapshot unless it equals the latest revision.
// After inserting it prunes old non-milestone revisions and re-sorts revs
// newest first. It returns nil when nothing was captured.
func (s *Store) Capture(doc Snapshotter, revs Collection, opts ...CaptureOption) *Revision {
	cfg := s.captureConfig(opts)
	snap := doc.Snapshot()

	if latest := s.Latest(revs); latest != nil && latest.Snapshot.Equal(snap) {
		if s.observer != nil {
			s.observer.CaptureSkipped()
		}
		return nil
	}

	r := s.insert(snap, revs, cfg.authorOr(s.authors), cfg.milestone)
	if s.observer != nil {
		s.observer.RevisionCaptured(cfg.milestone)
	}

	limit := s.retention
	if cfg.retention != nil {
		limit = *cfg.retention
	}
	s.Prune(revs, limit)

	if sorter, ok := revs.(Sorter); ok {
		sorter.SortNewestFirst()
	}
	return r
}

// Prune deletes non-milestone revisions beyond the newest limit ones and
// returns how many were deleted. Milestones never count against the limit.
func (s *Store) Prune(revs Collection, limit int) int {
	if limit <= 0 {
		return 0
	}

	var regular []*Revision
	for _, r := range revs.List() {
		if !r.IsMilestone {
			regular = append(regular, r)
		}
	}
	if len(regular) <= limit {
		return 0
	}

	sortNewestFirst(regular)
	stale := regular[limit:]
	for _, r := range stale {
		revs.Delete(r.ID)
	}

	if s.observer != nil {
		s.observer.RevisionsPruned(len(stale))
	}
	return len(stale)
}

// Revisions returns revisions newest first; limit > 0 caps the result
func (s *Store) Revisions(revs Collection, limit int) []*Revision {
	list := revs.List()
	sortNewestFirst(list)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// Latest returns the most recently created revision, or nil
func (s *Store) Latest(revs Collection) *Revision {
	var latest *Revision
	for _, r := range revs.List() {
		if latest == nil || r.newerThan(latest) {
			latest = r
		}
	}
	return latest
}

// Find returns the revision with the given ID
func (s *Store) Find(revs Collection, id string) (*Revision, error) {
	for _, r := range revs.List() {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, id)
}

// SetMilestone sets the milestone flag of a revision. It reports false when
// the revision does not exist.
func (s *Store) SetMilestone(revs Collection, id string, milestone bool) bool {
	r, err := s.Find(revs, id)
	if err != nil {
		return false
	}
	r.IsMilestone = milestone
	return true
}

// DiffAgainstLatest diffs the latest revision against snap. With no
// revisions the older side is an empty snapshot.
func (s *Store) DiffAgainstLatest(revs Collection, snap diff.Snapshot) diff.PromptDiff {
	var older diff.Snapshot
	if latest := s.Latest(revs); latest != nil {
		older = latest.Snapshot
	}
	return diff.Snapshots(older, snap)
}

// Diff compares two stored revisions
func (s *Store) Diff(revs Collection, olderID, newerID string) (diff.PromptDiff, error) {
	older, err := s.Find(revs, olderID)
	if err != nil {
		return diff.PromptDiff{}, err
	}
	newer, err := s.Find(revs, newerID)
	if err != nil {
		return diff.PromptDiff{}, err
	}
	return diff.Snapshots(older.Snapshot, newer.Snapshot), nil
}

// Helper functions

func (s *Store) captureConfig(opts []CaptureOption) captureConfig {
	var cfg captureConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c captureConfig) authorOr(p AuthorProvider) string {
	if c.author != nil {
		return *c.author
	}
	if p == nil {
		return ""
	}
	return p.DefaultAuthor()
}

func (s *Store) insert(snap diff.Snapshot, revs Collection, author string, milestone bool) *Revision {
	var seq int64
	for _, r := range revs.List() {
		if r.Sequence > seq {
			seq = r.Sequence
		}
	}

	r := &Revision{
		ID:          s.newID(),
		Sequence:    seq + 1,
		CreatedAt:   s.now(),
		Author:      author,
		IsMilestone: milestone,
		Snapshot:    snap.Clone(),
	}
	revs.Insert(r)
	return r
}
