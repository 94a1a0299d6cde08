package email

import (
	"html"
	"strings"
	"time"

	"github.com/emx-mail/compose/pkgs/compose"
)

// Message represents an email message
type Message struct {
	// Envelope
	From    []Address
	To      []Address
	Cc      []Address
	ReplyTo []Address
	Subject string
	Date    time.Time

	// Received is the time the server stored the message, when known.
	Received time.Time

	// Content
	TextBody string
	HTMLBody string

	// Metadata
	MessageID   string
	References  []string
	InReplyTo   string
	Attachments []Attachment

	// Server-specific
	UID uint32
}

// Address represents an email address
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// String formats the address as an address token. Display names with
// specials are quoted; non-ASCII names are kept as UTF-8 rather than
// encoded, since tokens are shown to the user.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	name := a.Name
	if strings.ContainsAny(name, addressSpecials) {
		name = `"` + quoteEscaper.Replace(name) + `"`
	}
	return name + " <" + a.Email + ">"
}

const addressSpecials = `()<>[]:;@\,."`

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Attachment describes an attachment of a message. The content itself is
// not kept.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	ContentID   string
}

// BodyHTML returns the HTML body, or the text body escaped as HTML when the
// message has no HTML part.
func (m *Message) BodyHTML() string {
	if m.HTMLBody != "" {
		return m.HTMLBody
	}
	return escapeTextToHTML(m.TextBody)
}

// Reference converts the message into the snapshot the composer works on.
// A message without References continues the thread of its In-Reply-To.
func (m *Message) Reference() *compose.ReferenceMessage {
	ref := &compose.ReferenceMessage{
		To:           addressTokens(m.To),
		Cc:           addressTokens(m.Cc),
		ReplyTo:      addressTokens(m.ReplyTo),
		Subject:      m.Subject,
		BodyHTML:     m.BodyHTML(),
		DateReceived: m.Received,
		MessageID:    m.MessageID,
		References:   append([]string(nil), m.References...),
	}
	for _, a := range m.Attachments {
		ref.Attachments = append(ref.Attachments, compose.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	if len(ref.References) == 0 && m.InReplyTo != "" {
		ref.References = []string{m.InReplyTo}
	}
	if ref.DateReceived.IsZero() {
		ref.DateReceived = m.Date
	}
	if len(m.From) > 0 {
		ref.From = m.From[0].String()
	}
	return ref
}

func addressTokens(addrs []Address) []string {
	tokens := make([]string, 0, len(addrs))
	for _, a := range addrs {
		tokens = append(tokens, a.String())
	}
	return tokens
}

func escapeTextToHTML(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimRight(html.EscapeString(s), "\n")
	return strings.ReplaceAll(s, "\n", "<br>\n")
}
