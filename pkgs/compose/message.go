package compose

import (
	"context"
	"time"
)

// ReferenceMessage is a read-only snapshot of the message being replied to
// or forwarded. Address fields hold RFC 5322 tokens such as
// "Jane Doe <jane@example.com>".
type ReferenceMessage struct {
	From         string
	To           []string
	Cc           []string
	ReplyTo      []string
	Subject      string
	BodyHTML     string
	DateReceived time.Time

	// Threading
	MessageID  string
	References []string

	Attachments []Attachment
}

// Attachment describes an attachment of a reference message. Only
// metadata is carried; content is never transferred.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Identity is the account a response is sent from.
type Identity struct {
	Email string
	Name  string

	// Aliases are alternate "custom from" addresses of the account.
	Aliases []string
}

// Owns reports whether addr is the account address or one of its aliases.
// Comparison is on the bare address and ignores case.
func (id Identity) Owns(addr string) bool {
	key := addressKey(addr)
	if bare := BareAddress(addr); bare != "" {
		key = addressKey(bare)
	}
	return id.ownsKey(key)
}

func (id Identity) ownsKey(key string) bool {
	if key == "" {
		return false
	}
	if identityKey(id.Email) == key {
		return true
	}
	for _, alias := range id.Aliases {
		if identityKey(alias) == key {
			return true
		}
	}
	return false
}

// identityKey accepts both bare addresses and "Name <addr>" forms.
func identityKey(s string) string {
	if bare := BareAddress(s); bare != "" {
		return addressKey(bare)
	}
	return addressKey(s)
}

// MessageStore looks up reference messages by an implementation-defined
// identifier. A missing message is reported as ErrReferenceUnavailable.
type MessageStore interface {
	Lookup(ctx context.Context, id string) (*ReferenceMessage, error)
}
