package email

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// ReadMessage parses a raw RFC 5322 message. Header fields that fail to
// parse are kept as raw tokens so that callers can decide what to skip.
func ReadMessage(r io.Reader) (*Message, error) {
	entity, err := gomessage.Read(r)
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	msg := &Message{}
	readHeader(msg, mail.Header{Header: entity.Header})
	parseEntityBody(msg, entity)
	return msg, nil
}

// ReadMessageFile parses the .eml file at path.
func ReadMessageFile(path string) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadMessage(bytes.NewReader(data))
}

func readHeader(msg *Message, h mail.Header) {
	msg.From = addressList(h, "From")
	msg.To = addressList(h, "To")
	msg.Cc = addressList(h, "Cc")
	msg.ReplyTo = addressList(h, "Reply-To")

	// Subject returns the raw value alongside a decoding error
	msg.Subject, _ = h.Subject()
	msg.Date, _ = h.Date()
	msg.MessageID, _ = h.MessageID()
	msg.References, _ = h.MsgIDList("References")
	if ids, _ := h.MsgIDList("In-Reply-To"); len(ids) > 0 {
		msg.InReplyTo = ids[0]
	}
}

// addressList parses an address header. When the field as a whole does not
// parse, each comma-separated token is parsed on its own and tokens that
// still fail are kept verbatim as the address.
func addressList(h mail.Header, key string) []Address {
	addrs, err := h.AddressList(key)
	if err == nil {
		return convertMailAddresses(addrs)
	}

	var result []Address
	for _, tok := range splitAddressList(h.Get(key)) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if a, err := mail.ParseAddress(tok); err == nil {
			result = append(result, Address{Name: a.Name, Email: a.Address})
		} else {
			result = append(result, Address{Email: tok})
		}
	}
	return result
}

// splitAddressList splits an address header on the commas that separate
// addresses, ignoring commas inside quoted strings, comments and angle
// brackets.
func splitAddressList(s string) []string {
	var (
		tokens  []string
		start   int
		quoted  bool
		escaped bool
		depth   int // comment nesting
		angle   bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && (quoted || depth > 0):
			escaped = true
		case quoted:
			if c == '"' {
				quoted = false
			}
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case depth > 0:
		case c == '"':
			quoted = true
		case c == '<':
			angle = true
		case c == '>':
			angle = false
		case c == ',' && !angle:
			tokens = append(tokens, s[start:i])
			start = i + 1
		}
	}
	return append(tokens, s[start:])
}

func convertMailAddresses(addrs []*mail.Address) []Address {
	result := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		result = append(result, Address{Name: a.Name, Email: a.Address})
	}
	return result
}
