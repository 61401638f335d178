// Package storage keeps uploaded files in an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/metrics"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// ObjectAPI is the part of the S3 client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL prefixes public object URLs. Defaults to Endpoint.
	PublicBaseURL  string
	MaxUploadBytes int64

	AvatarBucket      string
	ProjectFileBucket string
}

// Validate reports missing settings.
func (c Config) Validate() error {
	var missing []string
	if c.Endpoint == "" && c.PublicBaseURL == "" {
		missing = append(missing, "STORAGE_ENDPOINT")
	}
	if c.AccessKeyID == "" {
		missing = append(missing, "STORAGE_ACCESS_KEY_ID")
	}
	if c.SecretAccessKey == "" {
		missing = append(missing, "STORAGE_SECRET_ACCESS_KEY")
	}
	if len(missing) > 0 {
		return apperrors.NewConfigurationError("storage", missing...)
	}
	return nil
}

type UploadOptions struct {
	ContentType  string
	CacheControl string
	// Upsert replaces an existing object at the same path.
	Upsert bool
}

type Store struct {
	api    ObjectAPI
	cfg    Config
	logger ectologger.Logger
}

// New builds a Store over an S3 client for cfg. Path-style addressing is
// used so MinIO and similar servers work.
func New(ctx context.Context, cfg Config, logger ectologger.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return NewWithAPI(client, cfg, logger), nil
}

func NewWithAPI(api ObjectAPI, cfg Config, logger ectologger.Logger) *Store {
	if cfg.AvatarBucket == "" {
		cfg.AvatarBucket = "avatars"
	}
	if cfg.ProjectFileBucket == "" {
		cfg.ProjectFileBucket = "project-files"
	}
	return &Store{api: api, cfg: cfg, logger: logger}
}

func (s *Store) AvatarBucket() string {
	return s.cfg.AvatarBucket
}

func (s *Store) ProjectFileBucket() string {
	return s.cfg.ProjectFileBucket
}

// Upload writes body to bucket at objectPath and returns the path. size is
// the body length in bytes.
func (s *Store) Upload(ctx context.Context, bucket, objectPath string, body io.Reader, size int64, opts UploadOptions) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "storage.Upload")
	defer span.End()

	objectPath = strings.TrimPrefix(objectPath, "/")
	verr := apperrors.NewValidationError("upload")
	if objectPath == "" {
		verr.Add("path", "is required")
	}
	if size <= 0 {
		verr.Add("file", "is empty")
	}
	if s.cfg.MaxUploadBytes > 0 && size > s.cfg.MaxUploadBytes {
		verr.Add("file", "must be at most %d bytes", s.cfg.MaxUploadBytes)
	}
	if err := verr.OrNil(); err != nil {
		return "", err
	}

	if !opts.Upsert {
		exists, err := s.exists(ctx, bucket, objectPath)
		if err != nil {
			return "", s.fail(ctx, bucket, "upload", err)
		}
		if exists {
			metrics.RecordStorageOperation(bucket, "upload", "conflict")
			return "", &apperrors.StoreError{
				Message: fmt.Sprintf("%s already exists", objectPath),
				Status:  http.StatusConflict,
				Code:    "object_exists",
			}
		}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(objectPath),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return "", s.fail(ctx, bucket, "upload", err)
	}

	metrics.RecordStorageOperation(bucket, "upload", "ok")
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"bucket": bucket,
		"path":   objectPath,
		"size":   size,
	}).Debug("uploaded object")
	return objectPath, nil
}

// PublicURL is where a public object can be fetched. No request is made.
func (s *Store) PublicURL(bucket, objectPath string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = s.cfg.Endpoint
	}
	segments := strings.Split(strings.TrimPrefix(objectPath, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimSuffix(base, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// Remove deletes objectPaths from bucket. Paths that do not exist are ignored.
func (s *Store) Remove(ctx context.Context, bucket string, objectPaths ...string) error {
	ctx, span := tracing.StartSpan(ctx, "storage.Remove")
	defer span.End()

	if len(objectPaths) == 0 {
		return nil
	}

	ids := make([]types.ObjectIdentifier, len(objectPaths))
	for i, p := range objectPaths {
		ids[i] = types.ObjectIdentifier{Key: aws.String(strings.TrimPrefix(p, "/"))}
	}

	out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return s.fail(ctx, bucket, "remove", err)
	}
	if out != nil && len(out.Errors) > 0 {
		first := out.Errors[0]
		return s.fail(ctx, bucket, "remove", fmt.Errorf("%d objects not removed, first %s: %s",
			len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message)))
	}

	metrics.RecordStorageOperation(bucket, "remove", "ok")
	return nil
}

func (s *Store) exists(ctx context.Context, bucket, objectPath string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectPath),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

func (s *Store) fail(ctx context.Context, bucket, operation string, err error) error {
	tracing.RecordError(ctx, err)
	metrics.RecordStorageOperation(bucket, operation, "error")
	s.logger.WithContext(ctx).WithError(err).WithField("bucket", bucket).Errorf("storage %s failed", operation)
	return &apperrors.StoreError{
		Message: fmt.Sprintf("failed to %s file", operation),
		Status:  http.StatusBadGateway,
		Code:    "storage_error",
		Err:     err,
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AvatarPath is the object path for a new avatar of userID. The timestamp
// keeps replaced avatars from being served from caches.
func AvatarPath(userID uuid.UUID, fileName string, now time.Time) string {
	return fmt.Sprintf("%s/avatar-%d%s", userID, now.UnixMilli(), strings.ToLower(path.Ext(fileName)))
}

// ProjectFilePath is the object path for a file attached to projectID.
func ProjectFilePath(projectID uuid.UUID, fileName string, now time.Time) string {
	name := unsafeName.ReplaceAllString(path.Base(fileName), "_")
	if name == "" || name == "." || name == "_" {
		name = "file"
	}
	return fmt.Sprintf("%s/%d-%s", projectID, now.UnixMilli(), name)
}
