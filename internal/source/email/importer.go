package email

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/source"
)

// maildirFlags maps maildir info letters to IMAP flags.
var maildirFlags = map[rune]string{
	'S': `\Seen`,
	'F': `\Flagged`,
	'R': `\Answered`,
	'T': `\Deleted`,
	'P': `$Forwarded`,
}

// Importer reads message files below a directory: plain .eml files and
// maildir cur/new entries.
type Importer struct {
	dir     string
	folder  string
	workers int
}

// NewImporter returns an importer for dir whose records belong to folder.
// At most workers files are parsed concurrently (8 when not positive).
func NewImporter(dir, folder string, workers int) *Importer {
	if workers <= 0 {
		workers = 8
	}
	return &Importer{dir: dir, folder: folder, workers: workers}
}

// Type returns the source type identifier for a maildir.
func (im *Importer) Type() source.SourceType {
	return source.SourceTypeMaildir
}

// ValidateConnection checks that the directory is readable.
func (im *Importer) ValidateConnection(_ context.Context) (string, error) {
	info, err := os.Stat(im.dir)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", im.dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", im.dir)
	}
	return im.dir, nil
}

// FetchMessages parses every message file below the directory. Records are
// returned in path order; files that fail to parse are skipped.
func (im *Importer) FetchMessages(
	ctx context.Context,
	opts source.FetchOptions,
) (*source.FetchResult, error) {
	paths, err := im.messageFiles()
	if err != nil {
		return nil, err
	}

	parsed := make([]*model.MessageRecord, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := ParseFile(path, im.folder)
			if err != nil {
				return nil // unreadable files are skipped
			}
			parsed[i] = &rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("importing %s: %w", im.dir, err)
	}

	var msgs []model.MessageRecord
	for _, rec := range parsed {
		if rec == nil || (!opts.Since.IsZero() && rec.Date.Before(opts.Since)) {
			continue
		}
		msgs = append(msgs, *rec)
	}
	total := len(msgs)
	if opts.Limit > 0 && len(msgs) > opts.Limit {
		msgs = msgs[len(msgs)-opts.Limit:]
	}

	return &source.FetchResult{
		Messages: msgs,
		Total:    total,
		HasMore:  total > len(msgs),
	}, nil
}

// messageFiles lists candidate message files in lexical order.
func (im *Importer) messageFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(im.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "tmp" && path != im.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if IsMessageFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", im.dir, err)
	}
	return paths, nil
}

// IsMessageFile reports whether path names a message file: a .eml file or
// an entry of a maildir cur or new directory.
func IsMessageFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.EqualFold(filepath.Ext(name), ".eml") {
		return true
	}
	parent := filepath.Base(filepath.Dir(path))
	return parent == "cur" || parent == "new"
}

// ParseFile parses the message file at path into a record of folder.
// Maildir info flags in the file name are applied to the status.
func ParseFile(path, folder string) (model.MessageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.MessageRecord{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	env, err := ParseMessage(f)
	if err != nil {
		return model.MessageRecord{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	env.Flags = append(env.Flags, maildirInfoFlags(filepath.Base(path))...)
	return env.Record(folder), nil
}

// maildirInfoFlags decodes the ":2,<letters>" suffix of a maildir file name.
func maildirInfoFlags(name string) []string {
	_, info, ok := strings.Cut(name, ":2,")
	if !ok {
		return nil
	}
	var flags []string
	for _, r := range info {
		if f, ok := maildirFlags[r]; ok {
			flags = append(flags, f)
		}
	}
	return flags
}
