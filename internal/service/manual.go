package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
	"github.com/manualshelf/manualshelf-server/internal/id"
	"github.com/manualshelf/manualshelf-server/internal/media/images"
	"github.com/manualshelf/manualshelf-server/internal/media/pdf"
	"github.com/manualshelf/manualshelf-server/internal/store"
	"github.com/manualshelf/manualshelf-server/internal/textfold"
)

// ManualOptions tunes ManualService.
type ManualOptions struct {
	MaxUploadBytes int64 // 0 disables the limit
	AutoPruneTags  bool  // Delete tags an operation leaves without files
}

// ManualService orchestrates manuals and their files across the metadata
// store, the blob store and the thumbnail cache.
type ManualService struct {
	store  store.Store
	blobs  store.BlobStore
	thumbs *images.Processor
	tags   *TagService
	opts   ManualOptions
	logger *slog.Logger
}

// NewManualService creates a new manual service.
func NewManualService(
	store store.Store,
	blobs store.BlobStore,
	thumbs *images.Processor,
	tags *TagService,
	opts ManualOptions,
	logger *slog.Logger,
) *ManualService {
	return &ManualService{
		store:  store,
		blobs:  blobs,
		thumbs: thumbs,
		tags:   tags,
		opts:   opts,
		logger: logger,
	}
}

// CreateManualInput is everything needed to create a manual.
type CreateManualInput struct {
	Title string
	Files []Upload
	Tags  []string // Names; unknown names are created
}

// Create validates the input, stores every payload and then writes the
// manual, its files and its tags in one transaction. Each file receives
// the same tag set. Payloads are removed again if the transaction fails.
func (s *ManualService) Create(ctx context.Context, in CreateManualInput) (*domain.Manual, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domainerrors.Validation("title is required")
	}
	if len(in.Files) == 0 {
		return nil, domainerrors.Validation("at least one file is required")
	}
	tagNames, err := normalizeTagNames(in.Tags)
	if err != nil {
		return nil, err
	}

	prepared := make([]*preparedFile, 0, len(in.Files))
	for _, u := range in.Files {
		p, err := prepareUpload(u, s.opts.MaxUploadBytes)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, p)
	}

	manualID, err := id.Generate(id.PrefixManual)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate manual ID")
	}
	m := &domain.Manual{Title: title}
	m.ID = manualID
	m.InitTimestamps()

	if err := s.putBlobs(ctx, prepared); err != nil {
		return nil, err
	}
	for _, p := range prepared {
		m.Files = append(m.Files, p.file)
	}

	if err := s.store.CreateManual(ctx, m, tagNames); err != nil {
		s.dropBlobs(ctx, prepared)
		return nil, writeError(err, "manual")
	}

	s.logger.Info("manual created",
		"manual_id", m.ID,
		"title", m.Title,
		"files", len(m.Files),
		"tags", len(tagNames),
	)
	return m, nil
}

// Get returns a manual with its files and tags.
func (s *ManualService) Get(ctx context.Context, manualID string) (*domain.Manual, error) {
	m, err := s.store.GetManual(ctx, manualID)
	return m, readError(err, "manual")
}

// List returns the manuals matching q in the requested order, and the total
// number of matches before paging.
func (s *ManualService) List(ctx context.Context, q domain.ListQuery) ([]*domain.Manual, int, error) {
	sort, err := domain.ParseSortOption(string(q.Sort))
	if err != nil {
		return nil, 0, domainerrors.Validation(err.Error())
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, 0, domainerrors.Validation("limit and offset must not be negative")
	}
	q.Sort = sort
	q.Query = strings.TrimSpace(q.Query)

	manuals, total, err := s.store.ListManuals(ctx, q)
	if err != nil {
		return nil, 0, readError(err, "manuals")
	}
	return manuals, total, nil
}

// Rename changes a manual's title.
func (s *ManualService) Rename(ctx context.Context, manualID, title string) (*domain.Manual, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domainerrors.Validation("title is required")
	}
	if err := s.store.RenameManual(ctx, manualID, title); err != nil {
		return nil, writeError(err, "manual")
	}
	return s.Get(ctx, manualID)
}

// Delete removes a manual, its files and their tag associations, then the
// payloads and thumbnails. Tags the manual's files leave without files are
// pruned when enabled.
func (s *ManualService) Delete(ctx context.Context, manualID string) error {
	fileIDs, tagIDs, err := s.store.DeleteManual(ctx, manualID)
	if err != nil {
		return writeError(err, "manual")
	}

	for _, fileID := range fileIDs {
		s.dropPayload(ctx, fileID)
	}
	s.autoPrune(ctx, tagIDs)

	s.logger.Info("manual deleted", "manual_id", manualID, "files", len(fileIDs))
	return nil
}

// AddFile appends an upload to an existing manual with the given tag names.
func (s *ManualService) AddFile(ctx context.Context, manualID string, u Upload, tagNames []string) (*domain.ManualFile, error) {
	names, err := normalizeTagNames(tagNames)
	if err != nil {
		return nil, err
	}
	p, err := prepareUpload(u, s.opts.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetManual(ctx, manualID); err != nil {
		return nil, readError(err, "manual")
	}
	p.file.ManualID = manualID

	if err := s.putBlobs(ctx, []*preparedFile{p}); err != nil {
		return nil, err
	}
	if err := s.store.AddFile(ctx, p.file, names); err != nil {
		s.dropBlobs(ctx, []*preparedFile{p})
		return nil, writeError(err, "file")
	}

	s.logger.Info("file added", "manual_id", manualID, "file_id", p.file.ID, "file_name", p.file.FileName)
	return p.file, nil
}

// RemoveFile deletes one file of a manual. The last file cannot be removed.
func (s *ManualService) RemoveFile(ctx context.Context, fileID string) error {
	f, err := s.store.RemoveFile(ctx, fileID)
	if err != nil {
		return writeError(err, "file")
	}
	s.dropPayload(ctx, fileID)
	s.autoPrune(ctx, f.TagIDs())

	s.logger.Info("file removed", "manual_id", f.ManualID, "file_id", fileID)
	return nil
}

// SetFileTags replaces the tags of a file with the named tags, creating
// unknown names.
func (s *ManualService) SetFileTags(ctx context.Context, fileID string, tagNames []string) (*domain.ManualFile, error) {
	names, err := normalizeTagNames(tagNames)
	if err != nil {
		return nil, err
	}
	released, err := s.store.SetFileTags(ctx, fileID, names)
	if err != nil {
		return nil, writeError(err, "file")
	}
	s.autoPrune(ctx, released)

	f, err := s.store.GetFile(ctx, fileID)
	return f, readError(err, "file")
}

// RotateFile turns a file a quarter turn. The angle that applies to the
// file's kind is updated on the loaded value and then persisted. When the
// write fails the returned file still carries the new angle along with a
// PERSISTENCE error; nothing is rolled back.
func (s *ManualService) RotateFile(ctx context.Context, fileID string, delta int) (*domain.ManualFile, error) {
	if delta != domain.RotateLeft && delta != domain.RotateRight {
		return nil, domainerrors.Validationf("rotation delta must be -90 or 90, got %d", delta)
	}

	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, readError(err, "file")
	}

	next, err := f.Rotation().Rotate(delta)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	f.SetRotation(next)

	if err := s.store.UpdateFileRotation(ctx, f); err != nil {
		s.logger.Error("failed to persist rotation",
			"file_id", f.ID,
			"rotation", int(next),
			"error", err,
		)
		return f, writeError(err, "rotation")
	}

	s.logger.Debug("file rotated", "file_id", f.ID, "rotation", int(next))
	return f, nil
}

// FileContent is a file payload ready to serve.
type FileContent struct {
	File        *domain.ManualFile
	Data        []byte
	ContentType string
}

// Content returns a file's bytes with its persisted rotation applied.
// raw skips the rotation. Files of an unsupported type report UNDISPLAYABLE.
func (s *ManualService) Content(ctx context.Context, fileID string, raw bool) (*FileContent, error) {
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, readError(err, "file")
	}
	if !f.FileType.IsDisplayable() {
		return nil, domainerrors.Undisplayablef("%s has unsupported type %q", f.FileName, f.FileType)
	}

	data, err := s.blobs.Get(ctx, fileID)
	if err != nil {
		return nil, s.payloadError(err, f)
	}

	out := &FileContent{File: f, Data: data, ContentType: f.FileType.MIMEType()}
	if raw || f.Rotation() == 0 {
		return out, nil
	}

	if f.FileType == domain.FileTypePDF {
		out.Data, err = pdf.Rotate(data, f.Rotation())
	} else {
		out.Data, err = images.Render(data, f.FileType, f.Rotation())
	}
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeFileRead, "%s could not be rendered", f.FileName)
	}
	return out, nil
}

// Thumbnail returns a JPEG preview of an image file at its rotation.
func (s *ManualService) Thumbnail(ctx context.Context, fileID string) ([]byte, error) {
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, readError(err, "file")
	}
	if !f.FileType.IsImage() {
		return nil, domainerrors.Undisplayablef("%s has no thumbnail", f.FileName)
	}

	thumb, err := s.thumbs.Thumbnail(f, func() ([]byte, error) {
		return s.blobs.Get(ctx, fileID)
	})
	if err != nil {
		return nil, s.payloadError(err, f)
	}
	return thumb, nil
}

func (s *ManualService) payloadError(err error, f *domain.ManualFile) error {
	switch {
	case domainerrors.Is(err, store.ErrNotFound):
		return domainerrors.Wrapf(err, domainerrors.CodeFileRead, "payload of %s is missing", f.FileName)
	case domainerrors.Is(err, images.ErrInvalid):
		return domainerrors.Wrapf(err, domainerrors.CodeFileRead, "%s is corrupt", f.FileName)
	default:
		return domainerrors.Wrapf(err, domainerrors.CodeInternal, "failed to read %s", f.FileName)
	}
}

func (s *ManualService) putBlobs(ctx context.Context, files []*preparedFile) error {
	for i, p := range files {
		if err := s.blobs.Put(ctx, p.file.ID, p.data); err != nil {
			s.dropBlobs(ctx, files[:i])
			return domainerrors.Persistence(err, p.file.FileName+" could not be saved")
		}
	}
	return nil
}

func (s *ManualService) dropBlobs(ctx context.Context, files []*preparedFile) {
	for _, p := range files {
		if err := s.blobs.Delete(ctx, p.file.ID); err != nil {
			s.logger.Warn("failed to delete payload", "file_id", p.file.ID, "error", err)
		}
	}
}

// dropPayload removes a deleted file's payload and thumbnails. A failure
// leaves an orphan payload for CollectPayloads.
func (s *ManualService) dropPayload(ctx context.Context, fileID string) {
	if err := s.blobs.Delete(ctx, fileID); err != nil {
		s.logger.Warn("failed to delete payload", "file_id", fileID, "error", err)
	}
	s.thumbs.Forget(fileID)
}

// CollectPayloads deletes stored payloads that belong to no file and returns
// how many it removed. Uploads store their payload before the metadata
// commits, so it must not run while writes are in flight.
func (s *ManualService) CollectPayloads(ctx context.Context) (int, error) {
	keep, err := s.store.AllFileIDs(ctx)
	if err != nil {
		return 0, readError(err, "files")
	}
	n, err := s.blobs.Reconcile(ctx, keep)
	if err != nil {
		return n, domainerrors.Persistence(err, "orphan payloads could not be deleted")
	}
	return n, nil
}

// autoPrune deletes those of tagIDs that the operation left without files.
// Tags that were already unused, such as ones created on their own, stay.
func (s *ManualService) autoPrune(ctx context.Context, tagIDs []string) {
	if !s.opts.AutoPruneTags || len(tagIDs) == 0 {
		return
	}
	if _, err := s.tags.pruneUnused(ctx, tagIDs); err != nil {
		s.logger.Warn("failed to prune orphan tags", "error", err)
	}
}

// normalizeTagNames trims names, drops case- and diacritic-insensitive
// duplicates and rejects blank entries.
func normalizeTagNames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := textfold.Key(name)
		if key == "" {
			return nil, domainerrors.Validation("tag names must not be blank")
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.Join(strings.Fields(name), " "))
	}
	return out, nil
}
