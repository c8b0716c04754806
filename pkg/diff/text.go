// ABOUTME: Token-level LCS text differ
// ABOUTME: Produces merged added/removed/unchanged segments

package diff

import (
	"fmt"
	"strings"
	"unicode"
)

// SegmentKind classifies a diff segment
type SegmentKind int

const (
	Unchanged SegmentKind = iota
	Added
	Removed
)

func (k SegmentKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k SegmentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *SegmentKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unchanged":
		*k = Unchanged
	case "added":
		*k = Added
	case "removed":
		*k = Removed
	default:
		return fmt.Errorf("unknown segment kind: %q", b)
	}
	return nil
}

// Segment is a contiguous run of tokens sharing one kind
type Segment struct {
	Kind SegmentKind `json:"kind" yaml:"kind"`
	Text string      `json:"text" yaml:"text"`
}

// Tokenize splits s into maximal runs of whitespace or non-whitespace
func Tokenize(s string) []string {
	var tokens []string
	start := 0
	prevSpace := false

	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > 0 && space != prevSpace {
			tokens = append(tokens, s[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}

	return tokens
}

// Text diffs two strings token by token using a longest common subsequence.
// On ties the newer token is taken as an insertion first, so within a changed
// region removals come before additions once the result is reversed.
// Time and space are O(m*n) in the token counts.
func Text(older, newer string) []Segment {
	a := Tokenize(older)
	b := Tokenize(newer)
	m, n := len(a), len(b)

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	// Backtrack from the bottom-right corner
	var rev []Segment
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			rev = append(rev, Segment{Kind: Unchanged, Text: a[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || dp[i][j-1] >= dp[i-1][j]):
			rev = append(rev, Segment{Kind: Added, Text: b[j-1]})
			j--
		default:
			rev = append(rev, Segment{Kind: Removed, Text: a[i-1]})
			i--
		}
	}

	return merge(rev)
}

// merge reverses backtracked segments into forward order and joins
// neighbours of the same kind
func merge(rev []Segment) []Segment {
	var out []Segment
	for k := len(rev) - 1; k >= 0; k-- {
		seg := rev[k]
		if last := len(out) - 1; last >= 0 && out[last].Kind == seg.Kind {
			out[last].Text += seg.Text
			continue
		}
		out = append(out, seg)
	}
	return out
}

// Changed reports whether any segment is an addition or removal
func Changed(segments []Segment) bool {
	for _, s := range segments {
		if s.Kind != Unchanged {
			return true
		}
	}
	return false
}

// Join concatenates the text of segments of the given kinds, e.g. Join(segs,
// Unchanged, Added) reconstructs the newer string.
func Join(segments []Segment, kinds ...SegmentKind) string {
	var sb strings.Builder
	for _, s := range segments {
		for _, k := range kinds {
			if s.Kind == k {
				sb.WriteString(s.Text)
				break
			}
		}
	}
	return sb.String()
}
