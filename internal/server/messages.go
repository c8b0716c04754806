package server

import (
	"github.com/nainya/promptvault/pkg/diff"
	"github.com/nainya/promptvault/pkg/prompt"
	"github.com/nainya/promptvault/pkg/template"
	"github.com/nainya/promptvault/pkg/version"
)

// Placeholder is the wire form of template.Descriptor
type Placeholder struct {
	Key     string   `json:"key"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
	Syntax  string   `json:"syntax,omitempty"`
}

// NewPlaceholder converts a descriptor to its wire form
func NewPlaceholder(d template.Descriptor) Placeholder {
	return Placeholder{
		Key:     d.Key,
		Kind:    d.Kind.String(),
		Options: d.Options,
		Syntax:  d.Syntax(),
	}
}

// Descriptor converts the wire form back to a descriptor
func (p Placeholder) Descriptor() template.Descriptor {
	if template.ParseKind(p.Kind) == template.KindEnumeration {
		return template.NewEnumeration(p.Key, p.Options...)
	}
	return template.NewText(p.Key)
}

type ExtractRequest struct {
	Template string `json:"template"`
}

type ExtractResponse struct {
	Placeholders []Placeholder `json:"placeholders"`
}

// RenderRequest renders Template, or the stored prompt PromptID when set.
// For a stored prompt, Values override the prompt's own parameter values.
type RenderRequest struct {
	Template string            `json:"template,omitempty"`
	PromptID string            `json:"prompt_id,omitempty"`
	Values   map[string]string `json:"values,omitempty"`
}

type RenderResponse struct {
	Rendered    string   `json:"rendered"`
	MissingKeys []string `json:"missing_keys"`
}

type RewriteRequest struct {
	Template     string        `json:"template"`
	Placeholders []Placeholder `json:"placeholders"`
}

type RewriteResponse struct {
	Template string `json:"template"`
}

type DiffSnapshotsRequest struct {
	Older diff.Snapshot `json:"older"`
	Newer diff.Snapshot `json:"newer"`
}

// SavePromptRequest creates a prompt when ID is empty or unknown, otherwise
// replaces its content. Parameters supply values; the parameter list itself
// always follows the body's placeholders.
type SavePromptRequest struct {
	ID         string       `json:"id,omitempty"`
	Title      string       `json:"title"`
	Body       string       `json:"body"`
	Tags       []string     `json:"tags,omitempty"`
	Parameters []diff.Param `json:"parameters,omitempty"`
	Author     *string      `json:"author,omitempty"`
	Milestone  bool         `json:"milestone,omitempty"`
}

type SavePromptResponse struct {
	ID         string             `json:"id"`
	Created    bool               `json:"created"`
	Captured   bool               `json:"captured"`
	Revision   *version.Revision  `json:"revision,omitempty"`
	Parameters []prompt.Parameter `json:"parameters"`
	Rendered   RenderResponse     `json:"rendered"`
}

type ListPromptsRequest struct {
	Tag   string `json:"tag,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type ListPromptsResponse struct {
	Prompts []prompt.Summary `json:"prompts"`
}

type DeletePromptRequest struct {
	ID string `json:"id"`
}

type DeletePromptResponse struct {
	Deleted bool `json:"deleted"`
}

type ListRevisionsRequest struct {
	ID    string `json:"id"`
	Limit int    `json:"limit,omitempty"`
}

type ListRevisionsResponse struct {
	Revisions []*version.Revision `json:"revisions"`
}

type SetMilestoneRequest struct {
	ID         string `json:"id"`
	RevisionID string `json:"revision_id"`
	Milestone  bool   `json:"milestone"`
}

type SetMilestoneResponse struct {
	Updated bool `json:"updated"`
}

type DiffRevisionsRequest struct {
	ID              string `json:"id"`
	OlderRevisionID string `json:"older_revision_id"`
	NewerRevisionID string `json:"newer_revision_id"`
}
