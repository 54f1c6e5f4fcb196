package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Pointer locates a node inside a Value tree as an ordered list of tokens.
// Each token is either a mapping key or the decimal form of a sequence
// index; which one applies is decided by the container encountered while
// walking. The wire form is the slash-delimited JSON Pointer encoding with
// "~0"/"~1" escaping.
type Pointer []string

// Root is the empty pointer addressing the whole document.
var Root = Pointer{}

// Child returns a new pointer extended by one mapping key.
func (p Pointer) Child(key string) Pointer {
	out := make(Pointer, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// Element returns a new pointer extended by one sequence index.
func (p Pointer) Element(i int) Pointer {
	return p.Child(strconv.Itoa(i))
}

// String renders the pointer in JSON Pointer syntax. The root pointer
// renders as "".
func (p Pointer) String() string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, tok := range p {
		sb.WriteByte('/')
		sb.WriteString(escapeToken(tok))
	}
	return sb.String()
}

// ParsePointer parses the JSON Pointer wire form.
func ParsePointer(s string) (Pointer, error) {
	if s == "" {
		return Root, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("pointer %q: missing leading slash", s)
	}
	parts := strings.Split(s[1:], "/")
	p := make(Pointer, len(parts))
	for i, part := range parts {
		tok, err := unescapeToken(part)
		if err != nil {
			return nil, fmt.Errorf("pointer %q: %w", s, err)
		}
		p[i] = tok
	}
	return p, nil
}

// MarshalJSON implements json.Marshaler using the wire form.
func (p Pointer) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Pointer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePointer(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func escapeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~", "~0")
	return strings.ReplaceAll(tok, "/", "~1")
}

func unescapeToken(tok string) (string, error) {
	if !strings.Contains(tok, "~") {
		return tok, nil
	}
	var sb strings.Builder
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if c != '~' {
			sb.WriteByte(c)
			continue
		}
		if i+1 >= len(tok) {
			return "", fmt.Errorf("token %q: dangling tilde", tok)
		}
		i++
		switch tok[i] {
		case '0':
			sb.WriteByte('~')
		case '1':
			sb.WriteByte('/')
		default:
			return "", fmt.Errorf("token %q: invalid escape ~%c", tok, tok[i])
		}
	}
	return sb.String(), nil
}

func sequenceIndex(tok string, length int) (int, error) {
	if tok == "" || (len(tok) > 1 && tok[0] == '0') {
		return 0, fmt.Errorf("invalid sequence index %q", tok)
	}
	i, err := strconv.Atoi(tok)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid sequence index %q", tok)
	}
	if i > length {
		return 0, fmt.Errorf("sequence index %d out of range (len %d)", i, length)
	}
	return i, nil
}
