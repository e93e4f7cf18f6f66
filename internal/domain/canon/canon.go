// Package canon normalizes raw query text and encodes it into the
// fixed-length numeric vectors consumed by learned scorers.
//
// Training and serving must apply exactly the same normalization: any skew
// between the two silently degrades scorer accuracy. Both paths therefore go
// through a Canonicalizer built from the same alphabet and length.
package canon

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// DefaultLength is the input width of the reference deployment.
const DefaultLength = 16

// Mode selects how an encoded position is represented.
type Mode int

const (
	// Dense encodes a rune as (position+1)/len(alphabet), a float in (0,1].
	Dense Mode = iota
	// Index encodes a rune as position+1, reserving 0 for padding.
	Index
)

func (m Mode) String() string {
	switch m {
	case Dense:
		return "dense"
	case Index:
		return "index"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "dense" or "index". "embedding" is accepted as an alias
// for index since that is what embedding-layer models consume.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "dense", "":
		return Dense, nil
	case "index", "embedding":
		return Index, nil
	default:
		return Dense, fmt.Errorf("unknown encoding mode %q", s)
	}
}

// UnknownCharacterError reports a rune that is absent from the alphabet used
// for encoding. Normalization filters to the allowed alphabet, so this
// signals a mismatch between the allowed set and the encoding alphabet.
type UnknownCharacterError struct {
	Char     rune
	Position int
	Alphabet string
}

func (e *UnknownCharacterError) Error() string {
	return fmt.Sprintf("character %q at position %d not in alphabet %q", e.Char, e.Position, e.Alphabet)
}

// LengthError reports an input longer than the encoding width.
type LengthError struct {
	Length int
	Max    int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("input length %d exceeds encoding width %d", e.Length, e.Max)
}

// Canonicalizer holds the allowed alphabet and fixed width.
// It is immutable and safe for concurrent use.
type Canonicalizer struct {
	allowed Alphabet
	length  int
}

// New returns a Canonicalizer that keeps only runes of allowed and
// truncates to length runes.
func New(allowed Alphabet, length int) (*Canonicalizer, error) {
	if allowed.Len() == 0 {
		return nil, fmt.Errorf("canonicalizer: empty alphabet")
	}
	if length <= 0 {
		return nil, fmt.Errorf("canonicalizer: length must be positive, got %d", length)
	}
	return &Canonicalizer{allowed: allowed, length: length}, nil
}

// Default returns the reference canonicalizer: Alpha, 16 runes.
func Default() *Canonicalizer {
	return &Canonicalizer{allowed: Alpha(), length: DefaultLength}
}

// Length returns the fixed width.
func (c *Canonicalizer) Length() int { return c.length }

// Allowed returns the allowed alphabet.
func (c *Canonicalizer) Allowed() Alphabet { return c.allowed }

// Normalize lower-cases raw, drops every rune outside the allowed alphabet,
// truncates to the fixed width and trims surrounding whitespace.
// Normalization does not correct spelling: "firebal" stays "firebal".
func (c *Canonicalizer) Normalize(raw string) string {
	// cases.Caser is stateful, so a fresh chain per call.
	t := transform.Chain(
		cases.Lower(language.Und),
		runes.Remove(runes.Predicate(func(r rune) bool { return !c.allowed.Contains(r) })),
	)
	filtered, _, err := transform.String(t, raw)
	if err != nil {
		// Only reachable on invalid UTF-8 input; fall back to the simple path.
		filtered = c.filterSimple(raw)
	}
	if utf8.RuneCountInString(filtered) > c.length {
		filtered = string([]rune(filtered)[:c.length])
	}
	return strings.TrimSpace(filtered)
}

func (c *Canonicalizer) filterSimple(raw string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(raw) {
		if c.allowed.Contains(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Encode maps normalized onto a vector of the canonicalizer's width using
// alphabet a. Positions past the end of the input stay at 0.
func (c *Canonicalizer) Encode(normalized string, a Alphabet, mode Mode) ([]float64, error) {
	return Encode(normalized, a, mode, c.length)
}

// Encode maps s onto a vector of the given width using alphabet a.
func Encode(s string, a Alphabet, mode Mode, width int) ([]float64, error) {
	rs := []rune(s)
	if len(rs) > width {
		return nil, &LengthError{Length: len(rs), Max: width}
	}
	out := make([]float64, width)
	n := float64(a.Len())
	for i, r := range rs {
		p := a.Position(r)
		if p < 0 {
			return nil, &UnknownCharacterError{Char: r, Position: i, Alphabet: a.Name()}
		}
		switch mode {
		case Index:
			out[i] = float64(p + 1)
		default:
			out[i] = float64(p+1) / n
		}
	}
	return out, nil
}
