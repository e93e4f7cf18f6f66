package canon

import "fmt"

// Published alphabet names.
const (
	AlphaName  = "alpha"
	QwertyName = "qwerty"
)

// Alphabet is an immutable ordered set of runes. Position in the alphabet
// (1-based) is the encoded value of a rune; 0 is reserved for padding.
type Alphabet struct {
	name  string
	runes []rune
	pos   map[rune]int
}

// NewAlphabet builds an alphabet from the runes of chars, in order.
// Duplicate runes and empty sets are rejected.
func NewAlphabet(name, chars string) (Alphabet, error) {
	runes := []rune(chars)
	if len(runes) == 0 {
		return Alphabet{}, fmt.Errorf("alphabet %q: empty", name)
	}
	pos := make(map[rune]int, len(runes))
	for i, r := range runes {
		if _, dup := pos[r]; dup {
			return Alphabet{}, fmt.Errorf("alphabet %q: duplicate rune %q", name, r)
		}
		pos[r] = i
	}
	return Alphabet{name: name, runes: runes, pos: pos}, nil
}

func mustAlphabet(name, chars string) Alphabet {
	a, err := NewAlphabet(name, chars)
	if err != nil {
		panic(err)
	}
	return a
}

// Alpha returns lowercase a-z followed by space and apostrophe.
func Alpha() Alphabet {
	return mustAlphabet(AlphaName, "abcdefghijklmnopqrstuvwxyz '")
}

// Qwerty returns the same character set in keyboard order, so that
// neighbouring keys get neighbouring dense values.
func Qwerty() Alphabet {
	return mustAlphabet(QwertyName, "qwertyuiopasdfghjkl'zxcvbnm ")
}

// ByName resolves a published alphabet.
func ByName(name string) (Alphabet, error) {
	switch name {
	case AlphaName, "magic1":
		return Alpha(), nil
	case QwertyName, "magic2":
		return Qwerty(), nil
	default:
		return Alphabet{}, fmt.Errorf("unknown alphabet %q", name)
	}
}

// Name returns the alphabet's name.
func (a Alphabet) Name() string { return a.name }

// Len returns the number of runes in the alphabet.
func (a Alphabet) Len() int { return len(a.runes) }

// String returns the runes in order.
func (a Alphabet) String() string { return string(a.runes) }

// Contains reports whether r is in the alphabet.
func (a Alphabet) Contains(r rune) bool {
	_, ok := a.pos[r]
	return ok
}

// Position returns the 0-based position of r, or -1 if absent.
func (a Alphabet) Position(r rune) int {
	if p, ok := a.pos[r]; ok {
		return p
	}
	return -1
}
