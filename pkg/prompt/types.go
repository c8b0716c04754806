// ABOUTME: Prompt document data model
// ABOUTME: Title, body template, tags, parameters and owned revision history

package prompt

import (
	"time"

	"github.com/nainya/promptvault/pkg/diff"
	"github.com/nainya/promptvault/pkg/template"
	"github.com/nainya/promptvault/pkg/version"
)

// Parameter holds the value for one placeholder of the prompt body
type Parameter struct {
	Key          string        `json:"key" yaml:"key"`
	Value        string        `json:"value" yaml:"value"`
	DefaultValue *string       `json:"default_value,omitempty" yaml:"default,omitempty"`
	Kind         template.Kind `json:"-" yaml:"-"`
	Options      []string      `json:"options,omitempty" yaml:"options,omitempty"`
}

// Prompt is a templated prompt and its revision history
type Prompt struct {
	ID         string
	Title      string
	Body       string
	Tags       []string
	Parameters []Parameter
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Revisions  *version.MemoryCollection // Owned; deleted with the prompt
}

// New creates a prompt with an empty revision history
func New(id, title, body string, tags ...string) *Prompt {
	return &Prompt{
		ID:        id,
		Title:     title,
		Body:      body,
		Tags:      tags,
		Revisions: version.NewMemoryCollection(),
	}
}

// Snapshot captures the current content. The result shares no memory with p.
func (p *Prompt) Snapshot() diff.Snapshot {
	snap := diff.Snapshot{Title: p.Title, Body: p.Body, Tags: p.Tags}
	if len(p.Parameters) > 0 {
		snap.Params = make([]diff.Param, len(p.Parameters))
		for i, param := range p.Parameters {
			snap.Params[i] = diff.Param{Key: param.Key, Value: param.Value, DefaultValue: param.DefaultValue}
		}
	}
	return snap.Clone()
}

// Summary is a lightweight listing entry
type Summary struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Tags          []string  `json:"tags" yaml:"tags"`
	RevisionCount int       `json:"revision_count" yaml:"revision_count"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}
