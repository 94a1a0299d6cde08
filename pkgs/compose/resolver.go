package compose

import (
	"go.uber.org/zap"
)

// RecipientSets holds the resolved recipients of a response. Each list is
// deduplicated by bare address and never contains an empty string.
type RecipientSets struct {
	To  []string `json:"to"`
	Cc  []string `json:"cc"`
	Bcc []string `json:"bcc"`
}

func emptyRecipientSets() RecipientSets {
	return RecipientSets{To: []string{}, Cc: []string{}, Bcc: []string{}}
}

// Resolver computes the recipients of replies and forwards.
type Resolver struct {
	logger *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used to report skipped addresses.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the recipient sets for action against ref on behalf of
// id. ActionCompose has no recipients to resolve and returns an
// *InvalidActionError. A nil ref yields empty sets.
//
// Forward leaves every set empty. Reply fills To only; ReplyAll also fills
// Cc with the remaining original recipients, excluding the account and its
// aliases and anything already in To.
func (r *Resolver) Resolve(action Action, id Identity, ref *ReferenceMessage) (RecipientSets, error) {
	switch action {
	case ActionReply, ActionReplyAll:
	case ActionForward:
		return emptyRecipientSets(), nil
	default:
		return RecipientSets{}, &InvalidActionError{Op: "resolve recipients", Action: action}
	}

	sets := emptyRecipientSets()
	if ref == nil {
		return sets, nil
	}

	to := r.toRecipients(id, ref)
	sets.To = to.slice()
	if action == ActionReplyAll {
		sets.Cc = r.ccRecipients(id, ref, to).slice()
	}
	return sets, nil
}

// toRecipients picks the To set. A reply to one's own message re-sends to
// the original recipients; otherwise Reply-To wins over From.
func (r *Resolver) toRecipients(id Identity, ref *ReferenceMessage) *addressSet {
	var (
		sender    string
		senderKey string
		hasSender bool
	)
	if ref.From != "" {
		v, k, err := parseToken(ref.From)
		if err != nil {
			r.skip("from", err)
		} else {
			sender, senderKey, hasSender = v, k, true
		}
	}

	to := newAddressSet()
	if hasSender && id.ownsKey(senderKey) {
		r.addAll(to, "to", ref.To, nil)
		return to
	}

	r.addAll(to, "reply-to", ref.ReplyTo, nil)
	if len(to.values) > 0 {
		return to
	}

	if hasSender {
		to.add(sender, senderKey)
		return to
	}

	r.addAll(to, "to", ref.To, nil)
	return to
}

func (r *Resolver) ccRecipients(id Identity, ref *ReferenceMessage, to *addressSet) *addressSet {
	cc := newAddressSet()
	exclude := func(key string) bool {
		return id.ownsKey(key) || to.contains(key)
	}
	r.addAll(cc, "to", ref.To, exclude)
	r.addAll(cc, "cc", ref.Cc, exclude)
	return cc
}

func (r *Resolver) addAll(set *addressSet, field string, tokens []string, exclude func(key string) bool) {
	for _, tok := range tokens {
		value, key, err := parseToken(tok)
		if err != nil {
			r.skip(field, err)
			continue
		}
		if exclude != nil && exclude(key) {
			continue
		}
		set.add(value, key)
	}
}

func (r *Resolver) skip(field string, err error) {
	r.logger.Debug("skipping address token",
		zap.String("field", field),
		zap.Error(err),
	)
}
