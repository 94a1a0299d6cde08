package email

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"

	"github.com/emx-mail/compose/pkgs/compose"
)

// IMAPClient represents an IMAP client
type IMAPClient struct {
	config IMAPConfig
	client *imapclient.Client
}

// IMAPConfig holds IMAP configuration
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
	StartTLS bool

	// Auth selects the authentication command: "login" (default) or
	// "plain" for AUTHENTICATE PLAIN.
	Auth string
}

// NewIMAPClient creates a new IMAP client
func NewIMAPClient(config IMAPConfig) *IMAPClient {
	return &IMAPClient{
		config: config,
	}
}

// Connect establishes a connection to the IMAP server
func (c *IMAPClient) Connect() error {
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)

	var client *imapclient.Client
	var err error

	if c.config.SSL {
		client, err = imapclient.DialTLS(addr, &imapclient.Options{})
	} else if c.config.StartTLS {
		client, err = imapclient.DialStartTLS(addr, &imapclient.Options{})
	} else {
		client, err = imapclient.DialInsecure(addr, &imapclient.Options{})
	}
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server %s: %w", addr, err)
	}

	if err := c.authenticate(client); err != nil {
		client.Close()
		return fmt.Errorf("IMAP authentication failed: %w", err)
	}

	c.client = client
	return nil
}

func (c *IMAPClient) authenticate(client *imapclient.Client) error {
	switch strings.ToLower(c.config.Auth) {
	case "", "login":
		return client.Login(c.config.Username, c.config.Password).Wait()
	case "plain":
		return client.Authenticate(sasl.NewPlainClient("", c.config.Username, c.config.Password))
	default:
		return fmt.Errorf("unsupported auth mechanism %q", c.config.Auth)
	}
}

// Close closes the IMAP connection
func (c *IMAPClient) Close() error {
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// ensureConnected ensures the client is connected, returns a cleanup func
func (c *IMAPClient) ensureConnected() (func(), error) {
	if c.client != nil {
		return func() {}, nil
	}
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return func() { c.Close() }, nil
}

// FetchMessage fetches a single message by UID, including body. A missing
// message is reported as compose.ErrReferenceUnavailable.
func (c *IMAPClient) FetchMessage(folder string, uid uint32) (*Message, error) {
	cleanup, err := c.ensureConnected()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if folder == "" {
		folder = "INBOX"
	}

	if _, err := c.client.Select(folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}

	bodySection := &imap.FetchItemBodySection{
		Peek: true, // don't mark as read
	}
	fetchOptions := &imap.FetchOptions{
		Envelope:     true,
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))
	msgs, err := c.client.Fetch(uidSet, fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message UID %d: %w", uid, err)
	}

	if len(msgs) == 0 {
		return nil, fmt.Errorf("message UID %d in %s: %w", uid, folder, compose.ErrReferenceUnavailable)
	}

	buf := msgs[0]
	msg := &Message{
		UID:      uint32(buf.UID),
		Received: buf.InternalDate,
	}

	// The full header carries Reply-To and References, which the envelope
	// only partly exposes.
	if raw := buf.FindBodySection(bodySection); raw != nil {
		parsed, err := ReadMessage(bytes.NewReader(raw))
		if err == nil {
			parsed.UID, parsed.Received = msg.UID, msg.Received
			msg = parsed
		}
	}
	if msg.MessageID == "" && buf.Envelope != nil {
		applyEnvelope(msg, buf.Envelope)
	}

	return msg, nil
}

// applyEnvelope fills header fields from the IMAP envelope.
func applyEnvelope(msg *Message, env *imap.Envelope) {
	msg.Subject = env.Subject
	msg.Date = env.Date
	msg.MessageID = env.MessageID
	if len(env.InReplyTo) > 0 {
		msg.InReplyTo = env.InReplyTo[0]
	}
	msg.From = convertIMAPAddresses(env.From)
	msg.To = convertIMAPAddresses(env.To)
	msg.Cc = convertIMAPAddresses(env.Cc)
	msg.ReplyTo = convertIMAPAddresses(env.ReplyTo)
}

// convertIMAPAddresses converts IMAP addresses to our Addresses
func convertIMAPAddresses(addrs []imap.Address) []Address {
	result := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		result = append(result, Address{
			Name:  a.Name,
			Email: a.Addr(),
		})
	}
	return result
}

// IMAPStore looks up reference messages on an IMAP server.
type IMAPStore struct {
	client *IMAPClient
	folder string
}

// NewIMAPStore creates an IMAPStore. folder is used for identifiers that
// do not name one.
func NewIMAPStore(client *IMAPClient, folder string) *IMAPStore {
	if folder == "" {
		folder = "INBOX"
	}
	return &IMAPStore{client: client, folder: folder}
}

// Lookup implements compose.MessageStore. id is "uid" or "folder/uid".
func (s *IMAPStore) Lookup(ctx context.Context, id string) (*compose.ReferenceMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	folder, uid, err := s.parseID(id)
	if err != nil {
		return nil, err
	}
	msg, err := s.client.FetchMessage(folder, uid)
	if err != nil {
		return nil, err
	}
	return msg.Reference(), nil
}

func (s *IMAPStore) parseID(id string) (string, uint32, error) {
	folder, uidStr := s.folder, id
	if i := strings.LastIndex(id, "/"); i >= 0 {
		folder, uidStr = id[:i], id[i+1:]
	}
	uid, err := strconv.ParseUint(uidStr, 10, 32)
	if err != nil || uid == 0 {
		return "", 0, fmt.Errorf("invalid IMAP message id %q", id)
	}
	return folder, uint32(uid), nil
}
