package compose

import (
	"errors"
	"strings"

	"github.com/emersion/go-message/mail"
)

const emptyQuotes = `""`

var errEmptyToken = errors.New("empty address token")

// normalizeToken strips empty-quote artifacts and surrounding whitespace
// from a raw address token. The result keeps its original case.
func normalizeToken(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, emptyQuotes, ""))
}

// parseToken normalizes raw and returns the stored value together with the
// comparison key (the lower-cased bare address).
func parseToken(raw string) (value, key string, err error) {
	value = normalizeToken(raw)
	if value == "" {
		return "", "", &MalformedAddressError{Token: raw, Err: errEmptyToken}
	}
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return "", "", &MalformedAddressError{Token: raw, Err: err}
	}
	if addr.Address == "" {
		return "", "", &MalformedAddressError{Token: raw, Err: errEmptyToken}
	}
	return value, addressKey(addr.Address), nil
}

func addressKey(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// BareAddress returns the address part of a token such as
// "Jane Doe <jane@example.com>", or "" if the token cannot be parsed.
func BareAddress(token string) string {
	addr, err := mail.ParseAddress(normalizeToken(token))
	if err != nil {
		return ""
	}
	return addr.Address
}

// addressSet is an insertion-ordered set of address tokens keyed by bare
// address. Adding a token whose address is already present replaces the
// stored token in place.
type addressSet struct {
	values []string
	index  map[string]int
}

func newAddressSet() *addressSet {
	return &addressSet{index: make(map[string]int)}
}

func (s *addressSet) add(value, key string) {
	if i, ok := s.index[key]; ok {
		s.values[i] = value
		return
	}
	s.index[key] = len(s.values)
	s.values = append(s.values, value)
}

func (s *addressSet) contains(key string) bool {
	_, ok := s.index[key]
	return ok
}

func (s *addressSet) slice() []string {
	out := make([]string, len(s.values))
	copy(out, s.values)
	return out
}
