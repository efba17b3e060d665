// Package storage uploads club files (player photos, match videos, medical
// documents) to an S3-compatible bucket and hands back their public URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

var (
	ErrDisabled    = errors.New("file storage is not configured")
	ErrMissingFile = errors.New("file is required")
	ErrTooLarge    = errors.New("file too large")
)

// Folders under each organization's prefix.
const (
	FolderPlayerPhotos     = "player-photos"
	FolderMatchVideos      = "match-videos"
	FolderMedicalDocuments = "medical-documents"
)

type Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UsePathStyle  bool
}

func ConfigFromEnv() Config {
	region := os.Getenv("S3_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return Config{
		Bucket:        os.Getenv("S3_BUCKET"),
		Region:        region,
		Endpoint:      os.Getenv("S3_ENDPOINT"),
		AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		SecretKey:     os.Getenv("S3_SECRET_KEY"),
		PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		UsePathStyle:  os.Getenv("S3_PATH_STYLE") == "1" || os.Getenv("S3_ENDPOINT") != "",
	}
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool { return c.Bucket != "" }

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// PutObjectAPI is the subset of *s3.Client used here.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads to one bucket.
type S3 struct {
	api    PutObjectAPI
	bucket string
	base   string
}

// NewS3 builds an uploader from cfg. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3WithClient(client, cfg), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(api PutObjectAPI, cfg Config) *S3 {
	return &S3{api: api, bucket: cfg.Bucket, base: PublicBaseURL(cfg)}
}

func (s *S3) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.base + "/" + key, nil
}

// Disabled is the Uploader used when no bucket is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", ErrDisabled
}

// PublicBaseURL is where uploaded objects are served from. It defaults to
// the virtual-hosted AWS URL, or endpoint/bucket for path-style stores.
func PublicBaseURL(cfg Config) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds "<org>/<folder>/<owner>/<ksuid>-<name>". The random part
// keeps re-uploads of the same file name from overwriting each other.
func ObjectKey(orgID, folder, ownerID, filename string) string {
	name := unsafeName.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return strings.Join([]string{orgID, folder, ownerID, utilities.NewKSUID() + "-" + name}, "/")
}

// File is one multipart upload read from a request.
type File struct {
	Body        multipart.File
	Name        string
	Size        int64
	ContentType string
}

// FormFile reads the named multipart field, refusing bodies over maxBytes.
// The caller closes Body.
func FormFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (*File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingFile, err)
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingFile, err)
	}
	ct := hdr.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &File{Body: f, Name: hdr.Filename, Size: hdr.Size, ContentType: ct}, nil
}

// StatusFor maps upload errors to an HTTP status and a client message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "file too large"
	case errors.Is(err, ErrMissingFile):
		return http.StatusBadRequest, "file is required"
	case errors.Is(err, ErrDisabled):
		return http.StatusServiceUnavailable, "file storage unavailable"
	}
	return http.StatusBadGateway, "could not store file"
}
