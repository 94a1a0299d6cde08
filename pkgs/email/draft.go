package email

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message/mail"

	"github.com/emx-mail/compose/pkgs/compose"
)

var textConverter = md.NewConverter("", true, nil)

// WriteDraft writes d as an RFC 5322 message dated date. The body is a
// multipart/alternative with a text/plain rendering of the quoted HTML.
func WriteDraft(w io.Writer, d *compose.Draft, date time.Time) error {
	var header mail.Header
	header.SetDate(date)
	header.SetSubject(d.Content.Subject)
	header.SetAddressList("From", []*mail.Address{{
		Name:    d.From.Name,
		Address: d.From.Email,
	}})
	header.SetAddressList("To", mailAddresses(d.Recipients.To))
	header.SetAddressList("Cc", mailAddresses(d.Recipients.Cc))
	header.SetAddressList("Bcc", mailAddresses(d.Recipients.Bcc))

	// Handle reply and references
	if d.InReplyTo != "" {
		header.SetMsgIDList("In-Reply-To", []string{d.InReplyTo})
	}
	if len(d.References) > 0 {
		header.SetMsgIDList("References", d.References)
	}
	header.Set("Message-ID", GenerateMessageID(d.From.Email))

	iw, err := mail.CreateInlineWriter(w, header)
	if err != nil {
		return err
	}

	htmlBody := d.Content.QuotedBodyHTML
	textBody, err := HTMLToText(htmlBody)
	if err != nil {
		return fmt.Errorf("failed to render text body: %w", err)
	}

	if err := writeInlinePart(iw, "text/plain", textBody); err != nil {
		return err
	}
	if htmlBody != "" {
		if err := writeInlinePart(iw, "text/html", htmlBody); err != nil {
			return err
		}
	}

	return iw.Close()
}

func writeInlinePart(iw *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := iw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	return w.Close()
}

// mailAddresses parses recipient tokens. Tokens that do not parse were
// already dropped by the resolver and are skipped here as well.
func mailAddresses(tokens []string) []*mail.Address {
	addrs := make([]*mail.Address, 0, len(tokens))
	for _, tok := range tokens {
		a, err := mail.ParseAddress(tok)
		if err != nil {
			continue
		}
		addrs = append(addrs, a)
	}
	return addrs
}

// HTMLToText renders an HTML fragment as plain text (markdown).
func HTMLToText(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return textConverter.ConvertString(s)
}

// AppendDrafts writes drafts in mbox format to w.
func AppendDrafts(w io.Writer, date time.Time, drafts ...*compose.Draft) error {
	mw := mbox.NewWriter(w)
	for _, d := range drafts {
		from := d.From.Email
		if from == "" {
			from = "unknown@unknown"
		}
		// The mbox message writer must receive the rendered message in a
		// single Write.
		var buf bytes.Buffer
		if err := WriteDraft(&buf, d, date); err != nil {
			return fmt.Errorf("rendering message: %w", err)
		}
		msgWriter, err := mw.CreateMessage(from, date)
		if err != nil {
			return fmt.Errorf("creating message: %w", err)
		}
		if _, err := msgWriter.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("writing message: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing mbox writer: %w", err)
	}
	return nil
}

// AppendDraftsFile appends drafts to the mbox file at path, creating it
// if needed.
func AppendDraftsFile(path string, date time.Time, drafts ...*compose.Draft) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open drafts mbox: %w", err)
	}
	if err := AppendDrafts(f, date, drafts...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// GenerateMessageID produces a RFC 5322 compliant Message-ID using the
// domain extracted from the sender's email address.
// Format: <timestamp.random@domain>
func GenerateMessageID(fromEmail string) string {
	domain := "localhost"
	if idx := strings.Index(fromEmail, "@"); idx >= 0 {
		domain = fromEmail[idx+1:]
	}

	b := make([]byte, 8)
	_, _ = rand.Read(b)
	randomPart := hex.EncodeToString(b)

	return fmt.Sprintf("<%d.%s@%s>", time.Now().UnixNano(), randomPart, domain)
}
