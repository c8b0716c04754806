// ABOUTME: In-memory prompt library
// ABOUTME: Serializes access per prompt and cascades revision deletion

package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nainya/promptvault/pkg/version"
)

var (
	// ErrPromptNotFound is returned for unknown prompt IDs
	ErrPromptNotFound = errors.New("prompt not found")
	// ErrPromptExists is returned when creating a prompt with a taken ID
	ErrPromptExists = errors.New("prompt already exists")
)

// entry guards one prompt; all reads and writes of the prompt hold mu
type entry struct {
	mu     sync.Mutex
	prompt *Prompt
}

// PromptStore manages prompts in memory
type PromptStore struct {
	mu      sync.RWMutex
	prompts map[string]*entry
	now     func() time.Time
}

// NewPromptStore creates an empty prompt store
func NewPromptStore() *PromptStore {
	return &PromptStore{
		prompts: make(map[string]*entry),
		now:     time.Now,
	}
}

// CreatePrompt stores a new prompt, assigning an ID when empty
func (ps *PromptStore) CreatePrompt(p *Prompt) (string, error) {
	return ps.CreatePromptWith(p, nil)
}

// CreatePromptWith stores a new prompt and runs init with exclusive access
// before any other caller can read or write it. If init fails the prompt is
// removed again and the error returned.
func (ps *PromptStore) CreatePromptWith(p *Prompt, init func(*Prompt) error) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Revisions == nil {
		p.Revisions = version.NewMemoryCollection()
	}

	now := ps.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	e := &entry{prompt: p}
	e.mu.Lock()
	defer e.mu.Unlock()

	ps.mu.Lock()
	if _, ok := ps.prompts[p.ID]; ok {
		ps.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrPromptExists, p.ID)
	}
	ps.prompts[p.ID] = e
	ps.mu.Unlock()

	if init == nil {
		return p.ID, nil
	}
	if err := init(p); err != nil {
		ps.mu.Lock()
		if ps.prompts[p.ID] == e {
			delete(ps.prompts, p.ID)
		}
		ps.mu.Unlock()
		return "", err
	}
	return p.ID, nil
}

// View runs fn with exclusive access to the prompt
func (ps *PromptStore) View(id string, fn func(*Prompt) error) error {
	e, err := ps.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.prompt)
}

// Update runs fn with exclusive access to the prompt and bumps UpdatedAt
// when fn succeeds
func (ps *PromptStore) Update(id string, fn func(*Prompt) error) error {
	e, err := ps.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.prompt); err != nil {
		return err
	}
	e.prompt.UpdatedAt = ps.now()
	return nil
}

// DeletePrompt removes a prompt together with its revisions
func (ps *PromptStore) DeletePrompt(id string) error {
	ps.mu.Lock()
	e, ok := ps.prompts[id]
	if !ok {
		ps.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}
	delete(ps.prompts, id)
	ps.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.prompt.Revisions.List() {
		e.prompt.Revisions.Delete(r.ID)
	}
	return nil
}

// ListPrompts returns summaries ordered by most recent update
func (ps *PromptStore) ListPrompts(limit int) []Summary {
	return ps.list(limit, func(*Prompt) bool { return true })
}

// ListPromptsByTag returns summaries of prompts carrying tag (case-insensitive)
func (ps *PromptStore) ListPromptsByTag(tag string, limit int) []Summary {
	return ps.list(limit, func(p *Prompt) bool {
		for _, t := range p.Tags {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
		return false
	})
}

// Helper functions

func (ps *PromptStore) lookup(id string) (*entry, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	e, ok := ps.prompts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}
	return e, nil
}

func (ps *PromptStore) list(limit int, match func(*Prompt) bool) []Summary {
	ps.mu.RLock()
	entries := make([]*entry, 0, len(ps.prompts))
	for _, e := range ps.prompts {
		entries = append(entries, e)
	}
	ps.mu.RUnlock()

	var summaries []Summary
	for _, e := range entries {
		e.mu.Lock()
		if match(e.prompt) {
			summaries = append(summaries, Summary{
				ID:            e.prompt.ID,
				Title:         e.prompt.Title,
				Tags:          append([]string(nil), e.prompt.Tags...),
				RevisionCount: e.prompt.Revisions.Len(),
				UpdatedAt:     e.prompt.UpdatedAt,
			})
		}
		e.mu.Unlock()
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}
