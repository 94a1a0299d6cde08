package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/emersion/go-mbox"

	"github.com/emx-mail/compose/pkgs/compose"
)

// FileStore treats identifiers as paths to .eml files.
type FileStore struct{}

// Lookup implements compose.MessageStore.
func (FileStore) Lookup(ctx context.Context, path string) (*compose.ReferenceMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg, err := ReadMessageFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, compose.ErrReferenceUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return msg.Reference(), nil
}

// DirStore looks up reference messages in a directory of .eml files named
// after their Message-ID, the layout written by emx-save.
type DirStore struct {
	Dir string
}

// NewDirStore creates a DirStore rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{Dir: dir}
}

// Lookup implements compose.MessageStore. id is a Message-ID (with or
// without angle brackets) or a file name inside the directory.
func (s *DirStore) Lookup(ctx context.Context, id string) (*compose.ReferenceMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, path := range s.candidates(id) {
		msg, err := ReadMessageFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return msg.Reference(), nil
	}
	return nil, fmt.Errorf("%s in %s: %w", id, s.Dir, compose.ErrReferenceUnavailable)
}

func (s *DirStore) candidates(id string) []string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	var paths []string
	if filepath.Base(id) == id && strings.HasSuffix(id, ".eml") {
		paths = append(paths, filepath.Join(s.Dir, id))
	}
	paths = append(paths, filepath.Join(s.Dir, MessageIDFilename(id)))
	return paths
}

var reUnsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._+\-=]`)

// MessageIDFilename returns the .eml file name a message with the given
// Message-ID is stored under.
func MessageIDFilename(messageID string) string {
	safe := reUnsafeFilename.ReplaceAllString(strings.Trim(messageID, "<> "), "_")

	// Limit length
	if len(safe) > 200 {
		safe = safe[:200]
	}
	return safe + ".eml"
}

// MboxStore looks up reference messages in an mbox file.
type MboxStore struct {
	Path string
}

// NewMboxStore creates an MboxStore reading the mbox file at path.
func NewMboxStore(path string) *MboxStore {
	return &MboxStore{Path: path}
}

// Lookup implements compose.MessageStore. id is either the 1-based
// position of the message in the file or its Message-ID.
func (s *MboxStore) Lookup(ctx context.Context, id string) (*compose.ReferenceMessage, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open mbox file: %w", err)
	}
	defer f.Close()

	index, byIndex := 0, false
	if n, err := strconv.Atoi(id); err == nil {
		if n < 1 {
			return nil, fmt.Errorf("invalid mbox index %d", n)
		}
		index, byIndex = n, true
	}
	wantID := strings.Trim(id, "<> ")

	mr := mbox.NewReader(f)
	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := mr.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading mbox message: %w", err)
		}
		if byIndex && i != index {
			continue
		}

		msg, err := ReadMessage(r)
		if err != nil {
			return nil, fmt.Errorf("mbox message %d: %w", i, err)
		}
		if byIndex || msg.MessageID == wantID {
			return msg.Reference(), nil
		}
	}
	return nil, fmt.Errorf("%s in %s: %w", id, s.Path, compose.ErrReferenceUnavailable)
}
