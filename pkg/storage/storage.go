package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
)

// Bucket names shared by uploads and the evaluation pipeline.
const (
	BucketAnswerSheets = "answer-sheets"
	BucketAnswerKeys   = "answer-keys"
	BucketSyllabus     = "syllabus"
	BucketTextbooks    = "textbooks"
	BucketPYQs         = "pyqs"
)

// Buckets lists every bucket the service writes to.
func Buckets() []string {
	return []string{BucketAnswerSheets, BucketAnswerKeys, BucketSyllabus, BucketTextbooks, BucketPYQs}
}

// ErrObjectNotFound indicates the requested object does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the bucket-keyed blob store used by the services.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
}

// NormalizeKey turns a stored file reference into an object key for bucket.
// It accepts bare keys, keys prefixed with the bucket name, and public or signed
// object URLs of the form .../storage/v1/object/{public|sign}/<bucket>/<key>.
func NormalizeKey(bucket, reference string) string {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ""
	}

	if strings.HasPrefix(reference, "http://") || strings.HasPrefix(reference, "https://") {
		if parsed, err := url.Parse(reference); err == nil {
			reference = parsed.Path
			const marker = "/storage/v1/object/"
			if idx := strings.Index(reference, marker); idx >= 0 {
				reference = reference[idx+len(marker):]
			}
			reference = strings.TrimPrefix(reference, "sign/")
			reference = strings.TrimPrefix(reference, "public/")
		}
	}

	reference = strings.TrimPrefix(reference, "/")
	reference = strings.TrimPrefix(reference, bucket+"/")
	return path.Clean(reference)
}
