// ABOUTME: Placeholder descriptor data model
// ABOUTME: Text and enumeration placeholders with canonical syntax

package template

import (
	"strings"
	"unicode"
)

// Kind distinguishes free-text placeholders from enumerations
type Kind int

const (
	// KindText is a plain {key} placeholder
	KindText Kind = iota
	// KindEnumeration is a {key:optA|optB} placeholder with a fixed option list
	KindEnumeration
)

// String returns the kind name used in API payloads
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindEnumeration:
		return "enumeration"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String. Unknown names map to KindText.
func ParseKind(s string) Kind {
	if strings.EqualFold(s, "enumeration") {
		return KindEnumeration
	}
	return KindText
}

// Descriptor describes one placeholder found in a template
type Descriptor struct {
	Key     string   // Placeholder key: letters, digits and underscore only
	Kind    Kind     // Text or enumeration
	Options []string // Enumeration options, ordered and distinct; empty for KindText
	Literal string   // Raw text between the braces as written in the source
}

// NewText returns a text descriptor for key
func NewText(key string) Descriptor {
	return Descriptor{Key: key, Kind: KindText}
}

// NewEnumeration returns an enumeration descriptor for key.
// Options are cleaned the same way the scanner cleans them; if none survive
// the descriptor falls back to KindText.
func NewEnumeration(key string, options ...string) Descriptor {
	opts := cleanOptions(options)
	if len(opts) == 0 {
		return NewText(key)
	}
	return Descriptor{Key: key, Kind: KindEnumeration, Options: opts}
}

// Syntax returns the canonical placeholder form, e.g. {role} or {tone:formal|casual}
func (d Descriptor) Syntax() string {
	var sb strings.Builder
	sb.WriteByte('{')
	sb.WriteString(d.Key)
	switch d.Kind {
	case KindEnumeration:
		if len(d.Options) > 0 {
			sb.WriteByte(':')
			sb.WriteString(strings.Join(d.Options, "|"))
		}
	case KindText:
	}
	sb.WriteByte('}')
	return sb.String()
}

// IsEnumeration reports whether the descriptor carries options
func (d Descriptor) IsEnumeration() bool {
	return d.Kind == KindEnumeration && len(d.Options) > 0
}

// HasOption reports whether value is one of the enumeration options
func (d Descriptor) HasOption(value string) bool {
	for _, opt := range d.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// normalized returns a copy whose Syntax scans back to the same descriptor.
// Options that could not survive a rescan are dropped.
func (d Descriptor) normalized() Descriptor {
	if d.Kind != KindEnumeration {
		return Descriptor{Key: d.Key, Kind: KindText, Literal: d.Literal}
	}
	n := NewEnumeration(d.Key, d.Options...)
	n.Literal = d.Literal
	return n
}

// parseDescriptor builds a descriptor from the text between braces.
// ok is false when the key is empty or contains characters outside [letter, digit, _].
func parseDescriptor(content string) (Descriptor, bool) {
	keyPart, optionPart, hasOptions := strings.Cut(content, ":")

	key := strings.TrimSpace(keyPart)
	if !validKey(key) {
		return Descriptor{}, false
	}

	d := Descriptor{Key: key, Kind: KindText, Literal: content}
	if !hasOptions {
		return d, true
	}

	opts := cleanOptions(strings.Split(optionPart, "|"))
	if len(opts) == 0 {
		// No usable options: treat as a text placeholder
		return d, true
	}

	d.Kind = KindEnumeration
	d.Options = opts
	return d, true
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// cleanOptions trims, drops empties and duplicates, keeping first-seen order
func cleanOptions(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	var opts []string
	for _, c := range candidates {
		opt := strings.TrimSpace(c)
		if opt == "" || seen[opt] || strings.ContainsAny(opt, "{}|\r\n") {
			continue
		}
		seen[opt] = true
		opts = append(opts, opt)
	}
	return opts
}
