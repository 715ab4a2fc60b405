// Package storage manages the output directory: partial downloads, final file names and atomic placement.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"ytmp3/internal/consts"
	"ytmp3/internal/entity"
	"ytmp3/internal/errs"
)

// Storer defines the interface for output directory operations.
type Storer interface {
	// EnsureDir creates the output directory if needed.
	EnsureDir(ctx context.Context) error
	// CreatePartial opens a new hidden partial file in the output directory.
	CreatePartial(ctx context.Context) (*os.File, error)
	// Place moves a completed partial file to its final name and returns that path.
	Place(ctx context.Context, partial string, item entity.Item) (string, error)
	// Discard removes a partial file. Missing files are ignored.
	Discard(ctx context.Context, partial string)
	// CleanupPartials removes partial files left behind by interrupted runs.
	CleanupPartials(ctx context.Context) int
	// Dir returns the absolute output directory.
	Dir() string
}

type storage struct {
	log *slog.Logger
	dir string
}

// New creates a storage rooted at dir.
func New(log *slog.Logger, dir string) Storer {
	return &storage{
		log: log.With(slog.String("package", "storage")),
		dir: dir,
	}
}

func (stg *storage) Dir() string {
	return stg.dir
}

func (stg *storage) EnsureDir(ctx context.Context) error {
	err := os.MkdirAll(stg.dir, consts.DirPerm)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", errs.ErrConfiguration, errs.ErrCreateOutputDir, err)
	}

	stg.log.DebugContext(ctx, "output directory ready", slog.String("dir", stg.dir))

	return nil
}

func (stg *storage) CreatePartial(_ context.Context) (*os.File, error) {
	f, err := os.CreateTemp(stg.dir, consts.PartialPattern)
	if err != nil {
		return nil, fmt.Errorf("create partial: %w", err)
	}

	return f, nil
}

func (stg *storage) Place(ctx context.Context, partial string, item entity.Item) (string, error) {
	final := filepath.Join(stg.dir, FileName(item))

	err := os.Chmod(partial, consts.FilePerm)
	if err != nil {
		return "", fmt.Errorf("%w: chmod: %w", errs.ErrMoveFailed, err)
	}

	// rename within one directory is atomic, readers never see a half-written mp3
	err = os.Rename(partial, final)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrMoveFailed, err)
	}

	stg.log.DebugContext(ctx, "file placed", slog.Any("item", item), slog.String("path", final))

	return final, nil
}

func (stg *storage) Discard(ctx context.Context, partial string) {
	err := os.Remove(partial)
	if err != nil && !os.IsNotExist(err) {
		stg.log.WarnContext(ctx, "failed to remove partial file",
			slog.String("filename", partial), slog.Any("error", err))
	}
}

func (stg *storage) CleanupPartials(ctx context.Context) int {
	log := stg.log.With(slog.String("action", "cleanup_partials"))

	matches, err := filepath.Glob(filepath.Join(stg.dir, consts.PartialPattern))
	if err != nil {
		log.ErrorContext(ctx, "failed to list partial files", slog.Any("error", err))

		return 0
	}

	deleted := 0

	for _, name := range matches {
		info, err := os.Stat(name)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		if stg.isFresh(info) {
			continue
		}

		err = os.Remove(name)
		if err != nil {
			log.ErrorContext(ctx, "failed to delete file", slog.String("filename", name), slog.Any("error", err))

			continue
		}

		deleted++

		log.DebugContext(ctx, "successfully deleted file", slog.String("filename", name))
	}

	if deleted > 0 {
		log.InfoContext(ctx, "removed stale partial files", slog.Int("count", deleted))
	}

	return deleted
}

func (stg *storage) isFresh(info os.FileInfo) bool {
	return time.Since(info.ModTime()) < consts.StalePartialAge
}

var forbiddenNames = regexp.MustCompile(`[/\\<>:"|?*]`)

// FileName returns the sanitised audio file name for item.
// Characters that are invalid on common filesystems become '_', control characters are dropped
// and an empty title falls back to the id.
func FileName(item entity.Item) string {
	name := forbiddenNames.ReplaceAllString(item.Title, "_")
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}

		return r
	}, name)

	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, ".")

	if len(name) > consts.MaxFileNameLen {
		name = name[:consts.MaxFileNameLen]
		for !utf8.ValidString(name) {
			name = name[:len(name)-1]
		}
	}

	if name == "" {
		name = item.ID
	}

	return name + consts.AudioExt
}
