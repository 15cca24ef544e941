package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/watcher"
)

// InboxExtensions are the file types picked up from the inbox directory.
var InboxExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}

// InboxService turns files dropped into a directory into manuals. Each file
// becomes a manual titled after its base name and is removed once stored.
type InboxService struct {
	manuals *ManualService
	path    string
	logger  *slog.Logger
}

// NewInboxService creates an inbox over dir.
func NewInboxService(manuals *ManualService, dir string, logger *slog.Logger) *InboxService {
	return &InboxService{manuals: manuals, path: dir, logger: logger}
}

// ImportFile creates a manual from the file at path and deletes the file.
// A file that fails to import stays where it is.
func (s *InboxService) ImportFile(ctx context.Context, path string, tags []string) (*domain.Manual, error) {
	//#nosec G304 -- inbox paths come from the configured directory or the CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	name := filepath.Base(path)
	m, err := s.manuals.Create(ctx, CreateManualInput{
		Title: titleFromFileName(name),
		Files: []Upload{{Name: name, Data: data}},
		Tags:  tags,
	})
	if err != nil {
		return nil, err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("imported file could not be removed", "path", path, "error", err)
	}
	return m, nil
}

// Scan imports every accepted file already in the inbox and returns how
// many were imported.
func (s *InboxService) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return 0, fmt.Errorf("read inbox: %w", err)
	}

	imported := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		if e.IsDir() || !acceptedInboxFile(e.Name()) {
			continue
		}
		path := filepath.Join(s.path, e.Name())
		if _, err := s.ImportFile(ctx, path, nil); err != nil {
			s.logger.Warn("inbox import failed", "path", path, "error", err)
			continue
		}
		imported++
	}
	return imported, nil
}

// Run imports existing files and then watches the inbox until ctx ends.
func (s *InboxService) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.path, 0o750); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	w, err := watcher.New(s.logger, watcher.Options{Extensions: InboxExtensions, MinSize: 1})
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Watch(s.path); err != nil {
		return err
	}

	go func() {
		if err := w.Start(ctx); err != nil {
			s.logger.Error("inbox watcher stopped", "error", err)
		}
	}()

	if n, err := s.Scan(ctx); err != nil {
		s.logger.Warn("inbox scan failed", "error", err)
	} else if n > 0 {
		s.logger.Info("imported inbox backlog", "count", n)
	}

	s.logger.Info("watching inbox", "path", s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			s.logger.Warn("inbox watcher error", "error", err)
		case event := <-w.Events():
			if event.Type != watcher.EventSettled {
				continue
			}
			m, err := s.ImportFile(ctx, event.Path, nil)
			if err != nil {
				s.logger.Warn("inbox import failed", "path", event.Path, "error", err)
				continue
			}
			s.logger.Info("imported from inbox", "path", event.Path, "manual_id", m.ID)
		}
	}
}

func acceptedInboxFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range InboxExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// titleFromFileName drops the extension and turns separators into spaces.
func titleFromFileName(name string) string {
	title := strings.TrimSuffix(name, filepath.Ext(name))
	title = strings.NewReplacer("_", " ", "-", " ").Replace(title)
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return name
	}
	return title
}
