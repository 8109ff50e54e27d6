package cloudinary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exampilot-api/pkg/storage"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service implements storage.ObjectStore using Cloudinary raw assets.
// Buckets map to sub-folders of the configured root folder.
type Service struct {
	client     *cloudinary.Cloudinary
	folder     string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ storage.ObjectStore = (*Service)(nil)

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Service{
		client:     cld,
		folder:     strings.Trim(cfg.Folder, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the object as a raw asset so documents keep their original bytes.
func (s *Service) Upload(ctx context.Context, bucket, key string, reader io.Reader, _ int64, _ string) error {
	publicID := s.publicID(bucket, key)

	overwrite := true
	result, err := s.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "raw",
		Overwrite:    &overwrite,
	})
	if err != nil {
		return fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")
	return nil
}

// Download fetches the raw asset through its delivery URL.
func (s *Service) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	asset, err := s.client.File(s.publicID(bucket, key))
	if err != nil {
		return nil, fmt.Errorf("failed to build asset reference: %w", err)
	}

	deliveryURL, err := asset.String()
	if err != nil {
		return nil, fmt.Errorf("failed to build asset url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, deliveryURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, storage.ErrObjectNotFound)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("download %s/%s: unexpected status %d", bucket, key, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (s *Service) publicID(bucket, key string) string {
	return path.Join(s.folder, bucket, strings.TrimPrefix(key, "/"))
}
