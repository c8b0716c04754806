// ABOUTME: Template scanner splitting text into literal and placeholder tokens
// ABOUTME: Handles {{ and }} escapes before placeholder detection

package template

import "strings"

// TokenKind identifies the token variant
type TokenKind int

const (
	TokenLiteral TokenKind = iota
	TokenPlaceholder
)

// Token is one span of a scanned template
type Token struct {
	Kind        TokenKind
	Text        string     // Literal text with escapes resolved; empty for placeholders
	Raw         string     // Source text of the span, escapes included
	Placeholder Descriptor // Set for TokenPlaceholder
}

// Scan tokenizes a template. Adjacent literal characters are merged into a
// single token. Malformed placeholders become literal text; Scan never fails.
func Scan(text string) []Token {
	s := scanner{src: []rune(text)}
	s.run()
	return s.tokens
}

type scanner struct {
	src    []rune
	tokens []Token

	text strings.Builder // pending literal, resolved
	raw  strings.Builder // pending literal, as written
}

func (s *scanner) run() {
	n := len(s.src)
	for i := 0; i < n; {
		c := s.src[i]

		// Escapes take precedence over placeholder starts
		if (c == '{' || c == '}') && i+1 < n && s.src[i+1] == c {
			s.literal(string(c), string([]rune{c, c}))
			i += 2
			continue
		}

		if c == '{' {
			if end, ok := s.closing(i); ok {
				content := string(s.src[i+1 : end])
				if d, valid := parseDescriptor(content); valid {
					s.flush()
					s.tokens = append(s.tokens, Token{
						Kind:        TokenPlaceholder,
						Raw:         string(s.src[i : end+1]),
						Placeholder: d,
					})
					i = end + 1
					continue
				}
			}
			// Not a placeholder: emit the brace and rescan from the next rune
			s.literal("{", "{")
			i++
			continue
		}

		s.literal(string(c), string(c))
		i++
	}
	s.flush()
}

// closing finds the '}' ending the placeholder opened at start. A nested '{',
// a newline or the end of input aborts the placeholder.
func (s *scanner) closing(start int) (int, bool) {
	for j := start + 1; j < len(s.src); j++ {
		switch s.src[j] {
		case '}':
			return j, true
		case '{', '\n', '\r':
			return 0, false
		}
	}
	return 0, false
}

func (s *scanner) literal(text, raw string) {
	s.text.WriteString(text)
	s.raw.WriteString(raw)
}

func (s *scanner) flush() {
	if s.raw.Len() == 0 {
		return
	}
	s.tokens = append(s.tokens, Token{
		Kind: TokenLiteral,
		Text: s.text.String(),
		Raw:  s.raw.String(),
	})
	s.text.Reset()
	s.raw.Reset()
}
