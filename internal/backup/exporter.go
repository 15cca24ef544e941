// Package backup writes export archives of the shelf: a zip of every file
// payload plus a YAML manifest of manuals, files, tags and rotations.
package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/store"
	"github.com/manualshelf/manualshelf-server/internal/store/blob"
)

// readConcurrency bounds parallel blob reads.
const readConcurrency = 4

// Result contains the outcome of ExportFile.
type Result struct {
	Path     string
	Size     int64
	Counts   Counts
	Duration time.Duration
	Checksum string // SHA-256 of the archive
}

// Exporter creates export archives.
type Exporter struct {
	store  store.Store
	blobs  store.BlobStore
	logger *slog.Logger
}

// New creates an Exporter.
func New(s store.Store, blobs store.BlobStore, logger *slog.Logger) *Exporter {
	return &Exporter{store: s, blobs: blobs, logger: logger}
}

// Export streams an archive to w. Payloads are read in parallel and written
// in list order; the manifest is written last so it carries final counts.
func (e *Exporter) Export(ctx context.Context, w io.Writer) (*Manifest, error) {
	state, err := e.store.GetSyncState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	manuals, _, err := e.store.ListManuals(ctx, domain.ListQuery{Sort: domain.SortTitleAsc})
	if err != nil {
		return nil, fmt.Errorf("list manuals: %w", err)
	}
	tags, err := e.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	payloads, err := e.readPayloads(ctx, manuals)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Version:     FormatVersion,
		CreatedAt:   time.Now().UTC(),
		ChangeToken: state.ChangeToken,
	}
	for _, t := range tags {
		manifest.Tags = append(manifest.Tags, ManifestTag{ID: t.ID, Name: t.Name, Color: t.Color})
	}

	zw := zip.NewWriter(w)
	for _, m := range manuals {
		entry := ManifestManual{ID: m.ID, Title: m.Title, DateAdded: m.DateAdded}
		for _, f := range m.Files {
			data := payloads[f.ID]
			archivePath := path.Join("files", m.ID, f.ID+"-"+safeName(f.FileName))

			fw, err := zw.CreateHeader(&zip.FileHeader{
				Name:     archivePath,
				Method:   zip.Store, // PDFs and images are already compressed
				Modified: f.UpdatedAt,
			})
			if err != nil {
				return nil, fmt.Errorf("create %s: %w", archivePath, err)
			}
			if _, err := fw.Write(data); err != nil {
				return nil, fmt.Errorf("write %s: %w", archivePath, err)
			}

			tagNames := make([]string, len(f.Tags))
			for i, t := range f.Tags {
				tagNames[i] = t.Name
			}
			entry.Files = append(entry.Files, ManifestFile{
				ID:        f.ID,
				Name:      f.FileName,
				Type:      string(f.FileType),
				Path:      archivePath,
				Size:      int64(len(data)),
				SHA256:    blob.Hash(data),
				Rotation:  int(f.Rotation()),
				PageCount: f.PageCount,
				Tags:      tagNames,
			})
			manifest.Counts.Files++
			manifest.Counts.Bytes += int64(len(data))
		}
		manifest.Manuals = append(manifest.Manuals, entry)
	}
	manifest.Counts.Manuals = len(manifest.Manuals)
	manifest.Counts.Tags = len(manifest.Tags)

	if err := writeManifest(zw, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return manifest, nil
}

// readPayloads fetches every file payload with bounded parallelism.
// A payload whose hash no longer matches is exported anyway and logged.
func (e *Exporter) readPayloads(ctx context.Context, manuals []*domain.Manual) (map[string][]byte, error) {
	var (
		mu       sync.Mutex
		payloads = make(map[string][]byte)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)

	for _, m := range manuals {
		for _, f := range m.Files {
			g.Go(func() error {
				data, err := e.blobs.Get(gctx, f.ID)
				if err != nil {
					return fmt.Errorf("read payload of %s (%s): %w", f.FileName, f.ID, err)
				}
				if f.ContentHash != "" && blob.Hash(data) != f.ContentHash {
					e.logger.Warn("payload hash mismatch", "file_id", f.ID, "file_name", f.FileName)
				}
				mu.Lock()
				payloads[f.ID] = data
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return payloads, nil
}

// ExportFile writes an archive to outputPath through a temporary file that
// is renamed into place on success.
func (e *Exporter) ExportFile(ctx context.Context, outputPath string) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	tmpPath := outputPath + ".tmp"
	//#nosec G304 -- path chosen by the operator
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmpPath) // Clean up on failure
	defer f.Close()

	hash := sha256.New()
	manifest, err := e.Export(ctx, io.MultiWriter(f, hash))
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("rename export: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}
	e.logger.Info("export complete",
		"path", result.Path,
		"size", result.Size,
		"manuals", result.Counts.Manuals,
		"files", result.Counts.Files,
		"duration", result.Duration,
	)
	return result, nil
}

func writeManifest(zw *zip.Writer, m *Manifest) error {
	w, err := zw.Create(ManifestName)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// ReadManifest decodes the manifest of the archive at archivePath.
func ReadManifest(archivePath string) (*Manifest, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	r, err := zr.Open(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer r.Close()

	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// safeName keeps archive entries flat and portable.
func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
}
