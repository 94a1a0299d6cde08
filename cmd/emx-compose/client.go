package main

import (
	"fmt"
	"strconv"

	"github.com/emx-mail/compose/pkgs/compose"
	"github.com/emx-mail/compose/pkgs/config"
	"github.com/emx-mail/compose/pkgs/email"
)

func newIMAPClient(acc *config.AccountConfig) (*email.IMAPClient, error) {
	if acc.IMAP.Host == "" {
		return nil, fmt.Errorf("IMAP not configured for account %s", acc.Email)
	}
	return email.NewIMAPClient(email.IMAPConfig{
		Host:     acc.IMAP.Host,
		Port:     acc.IMAP.Port,
		Username: acc.IMAP.Username,
		Password: acc.IMAP.Password,
		SSL:      acc.IMAP.SSL,
		StartTLS: acc.IMAP.StartTLS,
		Auth:     acc.IMAP.Auth,
	}), nil
}

// selectStore picks the message store named by the flags and returns it
// with the identifier to look up. Without explicit source flags the
// account's configured stores are used.
func selectStore(acc *config.AccountConfig, action compose.Action, f prepareFlags) (compose.MessageStore, string, func(), error) {
	noop := func() {}

	switch {
	case f.eml != "":
		return email.FileStore{}, f.eml, noop, nil
	case f.dir != "":
		if f.id == "" {
			return nil, "", nil, fmt.Errorf("--dir requires --id")
		}
		return email.NewDirStore(f.dir), f.id, noop, nil
	case f.mbox != "":
		if f.id == "" {
			return nil, "", nil, fmt.Errorf("--mbox requires --id")
		}
		return email.NewMboxStore(f.mbox), f.id, noop, nil
	case f.uid != 0:
		client, err := newIMAPClient(acc)
		if err != nil {
			return nil, "", nil, err
		}
		return email.NewIMAPStore(client, f.folder), strconv.FormatUint(uint64(f.uid), 10), func() { client.Close() }, nil
	case f.id != "":
		if acc.Store.Dir != "" {
			return email.NewDirStore(config.ExpandPath(acc.Store.Dir)), f.id, noop, nil
		}
		if acc.Store.Mbox != "" {
			return email.NewMboxStore(config.ExpandPath(acc.Store.Mbox)), f.id, noop, nil
		}
		return nil, "", nil, fmt.Errorf("--id requires store.dir or store.mbox in the account config")
	}

	if !action.IsResponse() {
		return nil, "", noop, nil
	}
	return nil, "", nil, fmt.Errorf("a reference message is required (--eml, --dir, --mbox, --uid or --id)")
}
