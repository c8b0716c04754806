// ABOUTME: Template engine for placeholder extraction, rendering and rewriting
// ABOUTME: Values are inserted verbatim and never re-expanded

package template

import "strings"

// RenderResult is the output of Render
type RenderResult struct {
	Rendered    string   // Template with known placeholders substituted
	MissingKeys []string // Keys without a value, first-seen order, no duplicates
}

// ExtractDescriptors returns the placeholders of a template in order of first
// appearance. Later occurrences of an already seen key are dropped.
func ExtractDescriptors(text string) []Descriptor {
	var descriptors []Descriptor
	seen := make(map[string]bool)

	for _, tok := range Scan(text) {
		if tok.Kind != TokenPlaceholder {
			continue
		}
		if seen[tok.Placeholder.Key] {
			continue
		}
		seen[tok.Placeholder.Key] = true
		descriptors = append(descriptors, tok.Placeholder)
	}

	return descriptors
}

// Keys returns the placeholder keys of a template in first-appearance order
func Keys(text string) []string {
	descriptors := ExtractDescriptors(text)
	keys := make([]string, len(descriptors))
	for i, d := range descriptors {
		keys[i] = d.Key
	}
	return keys
}

// Render substitutes values into a template. Placeholders without a value are
// re-emitted in canonical form and reported in MissingKeys.
func Render(text string, values map[string]string) RenderResult {
	var sb strings.Builder
	var missing []string
	reported := make(map[string]bool)

	for _, tok := range Scan(text) {
		switch tok.Kind {
		case TokenLiteral:
			sb.WriteString(tok.Text)
		case TokenPlaceholder:
			key := tok.Placeholder.Key
			if v, ok := values[key]; ok {
				sb.WriteString(v)
				continue
			}
			sb.WriteString(tok.Placeholder.Syntax())
			if !reported[key] {
				reported[key] = true
				missing = append(missing, key)
			}
		}
	}

	return RenderResult{Rendered: sb.String(), MissingKeys: missing}
}

// Rewrite replaces every placeholder occurrence with the canonical syntax of
// the matching descriptor (by key), or with its own canonical syntax when no
// descriptor matches. Literal text, escapes included, is kept as written so
// the result is still a template. Rewrite is idempotent.
func Rewrite(text string, descriptors []Descriptor) string {
	byKey := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		if _, dup := byKey[d.Key]; dup {
			continue
		}
		byKey[d.Key] = d.normalized()
	}

	var sb strings.Builder
	for _, tok := range Scan(text) {
		switch tok.Kind {
		case TokenLiteral:
			sb.WriteString(tok.Raw)
		case TokenPlaceholder:
			if d, ok := byKey[tok.Placeholder.Key]; ok {
				sb.WriteString(d.Syntax())
			} else {
				sb.WriteString(tok.Placeholder.Syntax())
			}
		}
	}
	return sb.String()
}

// Escape doubles every brace so text renders back to itself
func Escape(text string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(text)
}
