package service

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
	"github.com/manualshelf/manualshelf-server/internal/id"
	"github.com/manualshelf/manualshelf-server/internal/media/filetype"
	"github.com/manualshelf/manualshelf-server/internal/media/images"
	"github.com/manualshelf/manualshelf-server/internal/media/pdf"
	"github.com/manualshelf/manualshelf-server/internal/store/blob"
)

// Upload is a file received from a client, the CLI or the inbox.
type Upload struct {
	Name string
	Data []byte
}

// preparedFile is a validated upload ready to be stored.
type preparedFile struct {
	file *domain.ManualFile
	data []byte
}

// prepareUpload validates u and builds its file record: content sniffing
// picks the type, PDFs are checked and counted, images are decoded and get
// a BlurHash. Every failure is a FILE_READ error.
func prepareUpload(u Upload, maxBytes int64) (*preparedFile, error) {
	name := strings.TrimSpace(filepath.Base(filepath.ToSlash(u.Name)))
	if name == "" || name == "." || name == "/" {
		return nil, domainerrors.FileRead("file name is required")
	}
	if len(u.Data) == 0 {
		return nil, domainerrors.FileReadf("%s is empty", name)
	}
	if maxBytes > 0 && int64(len(u.Data)) > maxBytes {
		return nil, domainerrors.FileReadf("%s exceeds the upload limit of %d bytes", name, maxBytes)
	}

	ft, err := filetype.Resolve(name, u.Data)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeFileRead, "unsupported file type")
	}

	fileID, err := id.Generate(id.PrefixFile)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate file ID")
	}

	f := &domain.ManualFile{
		FileName:    name,
		FileType:    ft,
		Size:        int64(len(u.Data)),
		ContentHash: blob.Hash(u.Data),
	}
	f.ID = fileID
	f.InitTimestamps()

	switch {
	case ft == domain.FileTypePDF:
		info, err := pdf.Inspect(u.Data)
		if err != nil {
			return nil, corrupt(name, err)
		}
		f.PageCount = info.PageCount
	case ft.IsImage():
		info, err := images.Inspect(u.Data)
		if err != nil {
			return nil, corrupt(name, err)
		}
		f.BlurHash = info.BlurHash
	}

	return &preparedFile{file: f, data: u.Data}, nil
}

func corrupt(name string, err error) error {
	if errors.Is(err, pdf.ErrInvalid) || errors.Is(err, images.ErrInvalid) {
		return domainerrors.Wrapf(err, domainerrors.CodeFileRead, "%s is corrupt", name)
	}
	return domainerrors.Wrapf(err, domainerrors.CodeFileRead, "%s could not be read", name)
}
