// ABOUTME: Prompt snapshot data model and structured snapshot differ
// ABOUTME: Text diff for title/body, set diff for tags, keyed diff for params

package diff

import (
	"fmt"
	"sort"
	"strings"
)

// Param is one key/value pair of a snapshot
type Param struct {
	Key          string  `json:"key" yaml:"key"`
	Value        string  `json:"value" yaml:"value"`
	DefaultValue *string `json:"default_value,omitempty" yaml:"default,omitempty"`
}

// Default returns the default value or "" when unset
func (p Param) Default() string {
	if p.DefaultValue == nil {
		return ""
	}
	return *p.DefaultValue
}

func (p Param) equal(o Param) bool {
	if p.Key != o.Key || p.Value != o.Value {
		return false
	}
	if (p.DefaultValue == nil) != (o.DefaultValue == nil) {
		return false
	}
	return p.DefaultValue == nil || *p.DefaultValue == *o.DefaultValue
}

// Snapshot is an immutable capture of a prompt's content
type Snapshot struct {
	Title  string   `json:"title" yaml:"title"`
	Body   string   `json:"body" yaml:"body"`
	Tags   []string `json:"tags" yaml:"tags"`
	Params []Param  `json:"params" yaml:"params"`
}

// Equal compares field by field, including tag and parameter order.
// A nil slice equals an empty one.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.Title != o.Title || s.Body != o.Body {
		return false
	}
	if len(s.Tags) != len(o.Tags) || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Tags {
		if s.Tags[i] != o.Tags[i] {
			return false
		}
	}
	for i := range s.Params {
		if !s.Params[i].equal(o.Params[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{Title: s.Title, Body: s.Body}
	if s.Tags != nil {
		c.Tags = append([]string(nil), s.Tags...)
	}
	if s.Params != nil {
		c.Params = make([]Param, len(s.Params))
		for i, p := range s.Params {
			c.Params[i] = Param{Key: p.Key, Value: p.Value}
			if p.DefaultValue != nil {
				d := *p.DefaultValue
				c.Params[i].DefaultValue = &d
			}
		}
	}
	return c
}

// TagDiff partitions tags by case-insensitive membership
type TagDiff struct {
	Added     []string `json:"added" yaml:"added"`
	Removed   []string `json:"removed" yaml:"removed"`
	Unchanged []string `json:"unchanged" yaml:"unchanged"`
}

// ParameterChange classifies a parameter across two snapshots
type ParameterChange int

const (
	ParamUnchanged ParameterChange = iota
	ParamAdded
	ParamRemoved
	ParamModified
)

func (c ParameterChange) String() string {
	switch c {
	case ParamUnchanged:
		return "unchanged"
	case ParamAdded:
		return "added"
	case ParamRemoved:
		return "removed"
	case ParamModified:
		return "modified"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (c ParameterChange) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ParameterChange) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unchanged":
		*c = ParamUnchanged
	case "added":
		*c = ParamAdded
	case "removed":
		*c = ParamRemoved
	case "modified":
		*c = ParamModified
	default:
		return fmt.Errorf("unknown parameter change: %q", b)
	}
	return nil
}

// ParameterDiff describes how one parameter key changed
type ParameterDiff struct {
	Key                  string          `json:"key" yaml:"key"`
	Change               ParameterChange `json:"change" yaml:"change"`
	ValueSegments        []Segment       `json:"value_segments" yaml:"value_segments"`
	DefaultValueSegments []Segment       `json:"default_value_segments" yaml:"default_value_segments"`
}

// PromptDiff is the structured difference between two snapshots
type PromptDiff struct {
	TitleSegments  []Segment       `json:"title_segments" yaml:"title_segments"`
	BodySegments   []Segment       `json:"body_segments" yaml:"body_segments"`
	Tags           TagDiff         `json:"tags" yaml:"tags"`
	ParameterDiffs []ParameterDiff `json:"parameter_diffs" yaml:"parameter_diffs"`
}

// HasChanges reports whether anything differs between the two snapshots
func (d PromptDiff) HasChanges() bool {
	if Changed(d.TitleSegments) || Changed(d.BodySegments) {
		return true
	}
	if len(d.Tags.Added) > 0 || len(d.Tags.Removed) > 0 {
		return true
	}
	for _, p := range d.ParameterDiffs {
		if p.Change != ParamUnchanged {
			return true
		}
	}
	return false
}

// Snapshots computes the diff from older to newer
func Snapshots(older, newer Snapshot) PromptDiff {
	return PromptDiff{
		TitleSegments:  Text(older.Title, newer.Title),
		BodySegments:   Text(older.Body, newer.Body),
		Tags:           Tags(older.Tags, newer.Tags),
		ParameterDiffs: Params(older.Params, newer.Params),
	}
}

// Tags diffs two tag lists case-insensitively. Output keeps the original
// casing and order: added and unchanged come from newer, removed from older.
func Tags(older, newer []string) TagDiff {
	olderSet := foldSet(older)
	newerSet := foldSet(newer)

	var d TagDiff
	for _, tag := range newer {
		if olderSet[fold(tag)] {
			d.Unchanged = append(d.Unchanged, tag)
		} else {
			d.Added = append(d.Added, tag)
		}
	}
	for _, tag := range older {
		if !newerSet[fold(tag)] {
			d.Removed = append(d.Removed, tag)
		}
	}
	return d
}

// Params diffs parameter lists keyed by Key. Results are sorted by key.
func Params(older, newer []Param) []ParameterDiff {
	olderByKey := indexParams(older)
	newerByKey := indexParams(newer)

	keys := make([]string, 0, len(olderByKey)+len(newerByKey))
	for k := range olderByKey {
		keys = append(keys, k)
	}
	for k := range newerByKey {
		if _, ok := olderByKey[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	diffs := make([]ParameterDiff, 0, len(keys))
	for _, key := range keys {
		o, inOlder := olderByKey[key]
		n, inNewer := newerByKey[key]

		switch {
		case inOlder && inNewer:
			change := ParamModified
			if o.Value == n.Value && o.Default() == n.Default() {
				change = ParamUnchanged
			}
			diffs = append(diffs, ParameterDiff{
				Key:                  key,
				Change:               change,
				ValueSegments:        Text(o.Value, n.Value),
				DefaultValueSegments: Text(o.Default(), n.Default()),
			})
		case inNewer:
			diffs = append(diffs, ParameterDiff{
				Key:                  key,
				Change:               ParamAdded,
				ValueSegments:        Text("", n.Value),
				DefaultValueSegments: Text("", n.Default()),
			})
		case inOlder:
			diffs = append(diffs, ParameterDiff{
				Key:                  key,
				Change:               ParamRemoved,
				ValueSegments:        Text(o.Value, ""),
				DefaultValueSegments: Text(o.Default(), ""),
			})
		}
	}

	return diffs
}

// indexParams maps key to param; the first param wins if a key repeats
func indexParams(params []Param) map[string]Param {
	m := make(map[string]Param, len(params))
	for _, p := range params {
		if _, ok := m[p.Key]; !ok {
			m[p.Key] = p
		}
	}
	return m
}

func fold(s string) string {
	return strings.ToLower(s)
}

func foldSet(tags []string) map[string]bool {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		m[fold(t)] = true
	}
	return m
}
