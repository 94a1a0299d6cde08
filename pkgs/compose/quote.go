package compose

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Quote markup. The style must stay in sync with the quote style used by
// the renderers of received mail.
const (
	quoteBegin      = `<div class="quote">`
	quoteEnd        = `</div>`
	blockquoteBegin = `<blockquote class="quote" style="margin:0 0 0 .8ex;border-left:1px #ccc solid;padding-left:1ex">`
	blockquoteEnd   = `</blockquote>`

	// HeaderSeparator separates the attribution header from the quoted body.
	HeaderSeparator = `<br type='attribution'>`
)

// ComposedContent is the subject and quoted body of a response.
type ComposedContent struct {
	Subject        string `json:"subject"`
	QuotedBodyHTML string `json:"quoted_body_html"`
}

// Composer builds subjects and quoted bodies.
type Composer struct {
	locale   localeStrings
	printer  *message.Printer
	location *time.Location
	policy   *bluemonday.Policy
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithLocale selects the language of labels and attribution lines.
// Unsupported languages fall back to English.
func WithLocale(tag language.Tag) ComposerOption {
	return func(c *Composer) {
		c.locale = matchLocale(tag)
	}
}

// WithLocation sets the time zone attribution dates are shown in. By
// default the zone of the reference date is kept.
func WithLocation(loc *time.Location) ComposerOption {
	return func(c *Composer) {
		c.location = loc
	}
}

// WithSanitizer sanitizes the quoted body with p before it is embedded.
func WithSanitizer(p *bluemonday.Policy) ComposerOption {
	return func(c *Composer) {
		c.policy = p
	}
}

// NewComposer creates a Composer. The default locale is English.
func NewComposer(opts ...ComposerOption) *Composer {
	c := &Composer{locale: locales[0]}
	for _, opt := range opts {
		opt(c)
	}
	c.printer = newPrinter(c.locale)
	return c
}

// Locale returns the locale the composer formats with.
func (c *Composer) Locale() language.Tag {
	return c.locale.tag
}

// Compose returns the subject and quoted body for action. now is used as
// the attribution date when ref has no receive date. A nil ref yields
// empty content.
func (c *Composer) Compose(action Action, ref *ReferenceMessage, now time.Time) ComposedContent {
	if ref == nil {
		return ComposedContent{}
	}
	content := ComposedContent{Subject: c.Subject(action, ref.Subject)}
	switch action {
	case ActionReply, ActionReplyAll:
		content.QuotedBodyHTML = c.replyQuote(ref, now)
	case ActionForward:
		content.QuotedBodyHTML = c.forwardQuote(ref, now)
	case ActionCompose:
	}
	return content
}

// Subject prefixes subject with the action's label unless it already
// starts with it, ignoring case.
func (c *Composer) Subject(action Action, subject string) string {
	prefix := c.subjectPrefix(action)
	if strings.HasPrefix(strings.ToLower(subject), strings.ToLower(prefix)) {
		return subject
	}
	return c.printer.Sprintf(keyFormattedSubject, prefix, subject)
}

func (c *Composer) subjectPrefix(action Action) string {
	switch action {
	case ActionReply, ActionReplyAll:
		return c.printer.Sprintf(keyReplySubjectLabel)
	case ActionForward:
		return c.printer.Sprintf(keyForwardSubjectLabel)
	}
	return ""
}

func (c *Composer) replyQuote(ref *ReferenceMessage, now time.Time) string {
	var b strings.Builder
	b.WriteString(quoteBegin)
	b.WriteString(c.printer.Sprintf(keyReplyAttribution,
		c.formatDate(ref.DateReceived, now),
		cleanUp(ref.From, true),
	))
	b.WriteString(HeaderSeparator)
	b.WriteString(blockquoteBegin)
	b.WriteString(c.body(ref))
	b.WriteString(blockquoteEnd)
	b.WriteString(quoteEnd)
	return b.String()
}

// forwardQuote always emits the Cc line, even when the reference message
// had no Cc recipients.
func (c *Composer) forwardQuote(ref *ReferenceMessage, now time.Time) string {
	var b strings.Builder
	b.WriteString(quoteBegin)
	b.WriteString(c.printer.Sprintf(keyForwardAttribution,
		cleanUp(ref.From, true),
		c.formatDate(ref.DateReceived, now),
		cleanUp(ref.Subject, false),
		cleanUp(strings.Join(ref.To, ", "), true),
	))
	b.WriteString(c.printer.Sprintf(keyCcAttribution,
		cleanUp(strings.Join(ref.Cc, ", "), true),
	))
	b.WriteString(HeaderSeparator)
	b.WriteString(c.body(ref))
	b.WriteString(quoteEnd)
	return b.String()
}

func (c *Composer) body(ref *ReferenceMessage) string {
	if c.policy != nil {
		return c.policy.Sanitize(ref.BodyHTML)
	}
	return ref.BodyHTML
}

func (c *Composer) formatDate(t, now time.Time) string {
	if t.IsZero() {
		t = now
	}
	if c.location != nil {
		t = t.In(c.location)
	}
	return t.Format(c.locale.dateLayout)
}

// cleanUp prepares a header value for interpolation into HTML: it drops
// empty "<>" tokens and a surrounding pair of double quotes, optionally
// strips "" artifacts, and escapes the result.
func cleanUp(s string, removeEmptyQuotes bool) string {
	if removeEmptyQuotes {
		s = strings.ReplaceAll(s, emptyQuotes, "")
	}
	s = strings.ReplaceAll(s, "<>", "")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return html.EscapeString(s)
}
