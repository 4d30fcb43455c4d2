package minio

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/molprop/platform/internal/config"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
)

const (
	bundlePrefix         = "bundles/"
	defaultPresignExpiry = 15 * time.Minute
	zipContentType       = "application/zip"
)

// objectAPI abstracts the minio client surface the store uses, so tests can
// fake object storage.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
}

// BundleStore archives zipped run directories in object storage so runs can
// be downloaded long after their directories are swept.
type BundleStore struct {
	api           objectAPI
	bucket        string
	presignExpiry time.Duration
	logger        logging.Logger
}

// NewBundleStore connects to the configured endpoint and ensures the bucket
// exists.
func NewBundleStore(cfg config.MinIOConfig, log logging.Logger) (*BundleStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot create object-store client")
	}

	s := &BundleStore{
		api:           client,
		bucket:        cfg.Bucket,
		presignExpiry: cfg.PresignExpiry,
		logger:        log.Named("bundle_store"),
	}
	if s.presignExpiry <= 0 {
		s.presignExpiry = defaultPresignExpiry
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureBucket creates the bundle bucket when missing.
func (s *BundleStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeInternal, "cannot check bucket %q", s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrapf(err, errors.ErrCodeInternal, "cannot create bucket %q", s.bucket)
	}
	s.logger.Info("created bundle bucket", logging.String("bucket", s.bucket))
	return nil
}

// ObjectKey maps a run ID to its bundle object name.
func ObjectKey(runID string) string {
	return bundlePrefix + runID + ".zip"
}

// Upload stores a zipped run and returns its object key.
func (s *BundleStore) Upload(ctx context.Context, runID string, bundle []byte) (string, error) {
	key := ObjectKey(runID)
	_, err := s.api.PutObject(ctx, s.bucket, key,
		bytes.NewReader(bundle), int64(len(bundle)),
		minio.PutObjectOptions{ContentType: zipContentType})
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrCodeRunBundleFailed, "cannot upload bundle for run %s", runID)
	}
	s.logger.Info("bundle archived",
		logging.String("run_id", runID),
		logging.String("object", key),
		logging.Int("bytes", len(bundle)),
	)
	return key, nil
}

// Download streams a stored bundle.  The caller closes the reader.
func (s *BundleStore) Download(ctx context.Context, runID string) (io.ReadCloser, error) {
	key := ObjectKey(runID)
	if _, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeRunNotFound, "no archived bundle for run %s", runID)
	}
	obj, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeRunBundleFailed, "cannot fetch bundle for run %s", runID)
	}
	return obj, nil
}

// PresignedURL mints a time-limited download link for the dashboard.
func (s *BundleStore) PresignedURL(ctx context.Context, runID string) (string, error) {
	u, err := s.api.PresignedGetObject(ctx, s.bucket, ObjectKey(runID), s.presignExpiry, nil)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrCodeRunBundleFailed, "cannot presign bundle for run %s", runID)
	}
	return u.String(), nil
}

// Remove deletes an archived bundle during retention sweeps.
func (s *BundleStore) Remove(ctx context.Context, runID string) error {
	key := ObjectKey(runID)
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, errors.ErrCodeInternal, "cannot remove bundle %q", key)
	}
	return nil
}
