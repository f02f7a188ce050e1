// Package photo stores staff profile photos on the local filesystem or in
// an S3-compatible bucket.
package photo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-staff-go/pkg/utilities"
)

// MaxSize is the largest accepted upload in bytes.
const MaxSize = 5 << 20

var (
	ErrNotImage = apperr.InvalidInput("Only image files (jpeg, jpg, png, gif, webp) are allowed!")
	ErrTooLarge = apperr.InvalidInput("File too large. Maximum size is 5MB")
	ErrNoFile   = apperr.InvalidInput("No file uploaded")
	ErrNoPhoto  = apperr.New(apperr.KindNotFound, "No photo to delete")
)

var (
	allowedExt  = regexp.MustCompile(`^\.(jpeg|jpg|png|gif|webp)$`)
	allowedMime = regexp.MustCompile(`^image/(jpeg|jpg|png|gif|webp)$`)
)

// Store persists photo bytes under an object name and hands back the key
// recorded on the staff row.
type Store interface {
	Save(ctx context.Context, name, contentType string, data []byte) (key string, err error)
	Delete(ctx context.Context, key string) error
	// URL resolves key to a client-usable address. baseURL is the
	// scheme://host of the current request.
	URL(ctx context.Context, baseURL, key string) (string, error)
}

// Validate checks the upload's file name, declared content type and size.
func Validate(filename, contentType string, size int64) error {
	if size > MaxSize {
		return ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt.MatchString(ext) || !allowedMime.MatchString(strings.ToLower(contentType)) {
		return ErrNotImage
	}
	return nil
}

// NewObjectName returns a collision-free object name for staffID's photo.
func NewObjectName(staffID, filename string) string {
	return fmt.Sprintf("profile_%s_%s%s", staffID, utilities.NewKSUID(), strings.ToLower(filepath.Ext(filename)))
}

type Config struct {
	Backend   string
	UploadDir string
	S3        S3Config
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// ConfigFromEnv reads PHOTO_BACKEND (local or s3), UPLOAD_DIR and the
// S3_* settings.
func ConfigFromEnv() Config {
	cfg := Config{
		Backend:   os.Getenv("PHOTO_BACKEND"),
		UploadDir: os.Getenv("UPLOAD_DIR"),
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    os.Getenv("S3_REGION"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
	}
	if cfg.Backend == "" {
		cfg.Backend = "local"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join("uploads", "profile-photos")
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
	return cfg
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "local":
		return NewFilesystemStore(cfg.UploadDir)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown PHOTO_BACKEND %q", cfg.Backend)
	}
}
