package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/emx-mail/compose/pkgs/compose"
	"github.com/emx-mail/compose/pkgs/config"
	"github.com/emx-mail/compose/pkgs/email"
)

type prepareFlags struct {
	eml, dir, mbox, id string
	uid                uint32
	folder             string

	format, output string
	from, locale   string
	tz             string
	save, sanitize bool
}

func parsePrepareFlags(action compose.Action, args []string) prepareFlags {
	fs := flag.NewFlagSet(action.String(), flag.ExitOnError)
	var f prepareFlags
	fs.StringVar(&f.eml, "eml", "", "Reference message .eml file")
	fs.StringVar(&f.dir, "dir", "", "Directory of .eml files named after Message-IDs")
	fs.StringVar(&f.mbox, "mbox", "", "Mbox file containing the reference message")
	fs.StringVar(&f.id, "id", "", "Message-ID, file name or mbox index of the reference message")
	fs.Uint32Var(&f.uid, "uid", 0, "IMAP UID of the reference message")
	fs.StringVar(&f.folder, "folder", "INBOX", "IMAP folder containing the message")
	fs.StringVar(&f.format, "format", "draft", "Output format: draft, html or json")
	fs.StringVar(&f.output, "output", "", "Output file (default: stdout)")
	fs.StringVar(&f.from, "from", "", "Send as this address of the account")
	fs.StringVar(&f.locale, "locale", "", "Language of labels and attribution")
	fs.StringVar(&f.tz, "tz", "", "Time zone of the attribution date")
	fs.BoolVar(&f.save, "save", false, "Append the draft to the account's drafts mbox")
	fs.BoolVar(&f.sanitize, "sanitize", false, "Sanitize the quoted HTML body")
	if err := fs.Parse(args); err != nil {
		fatal("%s: %v", action, err)
	}
	return f
}

func handlePrepare(acc *config.AccountConfig, action compose.Action, f prepareFlags, log *zap.Logger) error {
	switch f.format {
	case "draft", "html", "json":
	default:
		return fmt.Errorf("unknown format %q", f.format)
	}

	from, err := acc.IdentityAs(f.from)
	if err != nil {
		return err
	}

	composer, err := newComposer(acc, f)
	if err != nil {
		return err
	}

	store, refID, cleanup, err := selectStore(acc, action, f)
	if err != nil {
		return err
	}
	defer cleanup()

	session := compose.NewSession(store,
		compose.WithResolver(compose.NewResolver(compose.WithResolverLogger(log))),
		compose.WithComposer(composer),
		compose.WithSessionLogger(log),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	draft, err := session.Prepare(ctx, action, from, refID)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := writeOutput(f, draft, now); err != nil {
		return err
	}

	if f.save {
		if acc.Store.Drafts == "" {
			return fmt.Errorf("--save requires store.drafts in the account config")
		}
		path := config.ExpandPath(acc.Store.Drafts)
		if err := email.AppendDraftsFile(path, now, draft); err != nil {
			return err
		}
		log.Info("draft saved", zap.String("path", path))
	}
	return nil
}

func newComposer(acc *config.AccountConfig, f prepareFlags) (*compose.Composer, error) {
	tag := acc.LocaleTag()
	if f.locale != "" {
		t, err := language.Parse(f.locale)
		if err != nil {
			return nil, fmt.Errorf("--locale: %w", err)
		}
		if !supportedLocale(t) {
			return nil, fmt.Errorf("--locale: %s is not supported (supported: %s)", f.locale, supportedLocaleList())
		}
		tag = t
	}
	opts := []compose.ComposerOption{compose.WithLocale(tag)}

	if f.tz != "" {
		loc, err := time.LoadLocation(f.tz)
		if err != nil {
			return nil, fmt.Errorf("--tz: %w", err)
		}
		opts = append(opts, compose.WithLocation(loc))
	}
	if f.sanitize {
		opts = append(opts, compose.WithSanitizer(bluemonday.UGCPolicy()))
	}
	return compose.NewComposer(opts...), nil
}

func supportedLocale(tag language.Tag) bool {
	base, _ := tag.Base()
	for _, l := range compose.SupportedLocales() {
		if b, _ := l.Base(); b == base {
			return true
		}
	}
	return false
}

func supportedLocaleList() string {
	names := make([]string, 0, 2)
	for _, l := range compose.SupportedLocales() {
		names = append(names, l.String())
	}
	return strings.Join(names, ", ")
}

func writeOutput(f prepareFlags, draft *compose.Draft, now time.Time) error {
	var w io.Writer = os.Stdout
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		w = file
	}

	switch f.format {
	case "html":
		_, err := fmt.Fprintln(w, draft.Content.QuotedBodyHTML)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(draft)
	default:
		return email.WriteDraft(w, draft, now)
	}
}
