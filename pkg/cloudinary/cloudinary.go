package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Configured reports whether every credential is present.
func (c Config) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Asset identifies a stored image.
type Asset struct {
	URL      string
	PublicID string
}

// Service stores ultrasound images in Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Service{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
		now:    time.Now,
	}, nil
}

// Upload sends the image to Cloudinary and returns its secure URL.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (Asset, error) {
	params := uploader.UploadParams{
		Folder:         strings.Trim(s.folder, "/"),
		PublicID:       BuildPublicID(name, s.now()),
		ResourceType:   "image",
		Tags:           api.CldAPIArray{"ultrasound", "pcos-screening"},
		UniqueFilename: api.Bool(false),
		Overwrite:      api.Bool(false),
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return Asset{}, fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Int("bytes", result.Bytes).Msg("ultrasound stored in cloudinary")

	return Asset{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

// BuildPublicID derives a URL-safe identifier from the uploaded file name.
func BuildPublicID(name string, at time.Time) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "ultrasound"
	}

	return fmt.Sprintf("%s-%d", strings.ToLower(base), at.Unix())
}
