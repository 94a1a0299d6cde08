package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Draft is a response prepared from a reference message, ready to be shown
// to the user for editing.
type Draft struct {
	Action     Action          `json:"action"`
	From       Identity        `json:"from"`
	Recipients RecipientSets   `json:"recipients"`
	Content    ComposedContent `json:"content"`

	InReplyTo  string   `json:"in_reply_to,omitempty"`
	References []string `json:"references,omitempty"`

	// AllowQuoteCollapse is false for forwards, whose quoted text is the
	// message itself.
	AllowQuoteCollapse bool `json:"allow_quote_collapse"`

	// Attachments lists the attachments a forward carries over from the
	// reference message.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Session prepares drafts by looking up the reference message in a store
// and running the Resolver and Composer over it.
type Session struct {
	store    MessageStore
	resolver *Resolver
	composer *Composer
	logger   *zap.Logger
	now      func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithResolver(r *Resolver) SessionOption {
	return func(s *Session) { s.resolver = r }
}

func WithComposer(c *Composer) SessionOption {
	return func(s *Session) { s.composer = c }
}

func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used when a reference message has
// no receive date.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates a Session reading reference messages from store.
// store may be nil, in which case every response is prepared as if the
// reference message were unavailable.
func NewSession(store MessageStore, opts ...SessionOption) *Session {
	s := &Session{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = NewResolver(WithResolverLogger(s.logger))
	}
	if s.composer == nil {
		s.composer = NewComposer()
	}
	return s
}

// Prepare builds a draft for action from the message identified by refID.
// A reference message that cannot be found yields a draft with empty
// recipients and content rather than an error.
func (s *Session) Prepare(ctx context.Context, action Action, from Identity, refID string) (*Draft, error) {
	draft := &Draft{
		Action:     action,
		From:       from,
		Recipients: emptyRecipientSets(),
	}

	if action == ActionCompose {
		return draft, nil
	}
	if !action.IsResponse() {
		return nil, &InvalidActionError{Op: "prepare draft", Action: action}
	}

	ref, err := s.lookup(ctx, refID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return draft, nil
	}

	recipients, err := s.resolver.Resolve(action, from, ref)
	if err != nil {
		return nil, err
	}
	draft.Recipients = recipients
	draft.Content = s.composer.Compose(action, ref, s.now())
	draft.InReplyTo, draft.References = threadHeaders(ref)
	draft.AllowQuoteCollapse = action != ActionForward
	if action == ActionForward && len(ref.Attachments) > 0 {
		draft.Attachments = append([]Attachment(nil), ref.Attachments...)
	}

	s.logger.Debug("prepared draft",
		zap.Stringer("action", action),
		zap.String("ref", refID),
		zap.Int("to", len(recipients.To)),
		zap.Int("cc", len(recipients.Cc)),
	)
	return draft, nil
}

func (s *Session) lookup(ctx context.Context, refID string) (*ReferenceMessage, error) {
	if s.store == nil || refID == "" {
		return nil, nil
	}
	ref, err := s.store.Lookup(ctx, refID)
	if errors.Is(err, ErrReferenceUnavailable) {
		s.logger.Warn("reference message unavailable", zap.String("ref", refID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up reference message %s: %w", refID, err)
	}
	return ref, nil
}

// threadHeaders returns the In-Reply-To and References values of a
// response to ref.
func threadHeaders(ref *ReferenceMessage) (string, []string) {
	if ref.MessageID == "" {
		if len(ref.References) == 0 {
			return "", nil
		}
		return "", append([]string(nil), ref.References...)
	}
	refs := make([]string, 0, len(ref.References)+1)
	for _, id := range ref.References {
		if id != ref.MessageID {
			refs = append(refs, id)
		}
	}
	refs = append(refs, ref.MessageID)
	return ref.MessageID, refs
}
