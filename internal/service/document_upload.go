package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/exampilot-api/internal/observability"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

// storedDocument describes an object written by documentUploader.
type storedDocument struct {
	Key         string
	Size        int64
	ContentType string
}

// documentUploader enforces the size cap and content allow-list shared by every upload,
// then writes the file under <user>/<unix_ms>_<sanitised name><sniffed extension>.
type documentUploader struct {
	objects   storage.ObjectStore
	sanitizer *bluemonday.Policy
	maxSize   int64
	allowed   []string
	now       func() time.Time
}

func newDocumentUploader(store storage.ObjectStore, maxSizeMB int, allowed ...string) documentUploader {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	return documentUploader{
		objects:   store,
		sanitizer: bluemonday.StrictPolicy(),
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		allowed:   allowed,
		now:       time.Now,
	}
}

// put validates one file and writes it to bucket. label names the upload kind in metrics.
// The stored extension follows the sniffed content so the pipeline never mistakes a PDF for an image.
func (u documentUploader) put(ctx context.Context, bucket, label, userID string, file *multipart.FileHeader) (storedDocument, error) {
	if file.Size > u.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return storedDocument{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return storedDocument{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, u.maxSize+1)); err != nil {
		return storedDocument{}, err
	}
	if int64(buf.Len()) > u.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return storedDocument{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if !mimetype.EqualsAny(detected.String(), u.allowed...) {
		observability.UploadRejected().WithLabelValues("type").Inc()
		return storedDocument{}, fmt.Errorf("%w: %s", ErrUploadTypeNotAllowed, detected.String())
	}

	key := fmt.Sprintf("%s/%d_%s", userID, u.now().UnixMilli(), u.storageFileName(file.Filename, detected.Extension()))
	if err := u.objects.Upload(ctx, bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), detected.String()); err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		return storedDocument{}, fmt.Errorf("store %s: %w", label, err)
	}

	observability.UploadRequests().WithLabelValues(label, detected.String()).Inc()
	return storedDocument{Key: key, Size: int64(buf.Len()), ContentType: detected.String()}, nil
}

func (u documentUploader) storageFileName(name, extension string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ToLower(u.sanitizer.Sanitize(base))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "document"
	}
	return base + extension
}
