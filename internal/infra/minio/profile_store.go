package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"course-portal/internal/domain"

	"github.com/minio/minio-go/v7"
)

type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}

func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}

func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// ProfileStore keeps one JSON object per learner at profiles/{email}.json.
type ProfileStore struct {
	api    minioAPI
	bucket string
}

// NewProfileStore wraps a real client and makes sure the bucket exists.
func NewProfileStore(ctx context.Context, client *minio.Client, bucket string) (*ProfileStore, error) {
	return newProfileStore(ctx, minioClientWrapper{c: client}, bucket)
}

func newProfileStore(ctx context.Context, api minioAPI, bucket string) (*ProfileStore, error) {
	s := &ProfileStore{api: api, bucket: bucket}
	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return s, nil
}

func (s *ProfileStore) Get(ctx context.Context, email string) (json.RawMessage, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, objectName(email), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.readErr(err)
	}
	defer obj.Close()

	// minio reports a missing key on the first read, not on GetObject.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.readErr(err)
	}
	return json.RawMessage(data), nil
}

func (s *ProfileStore) Put(ctx context.Context, email string, record json.RawMessage) error {
	_, err := s.api.PutObject(ctx, s.bucket, objectName(email), bytes.NewReader(record), int64(len(record)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (s *ProfileStore) readErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return domain.ErrProfileNotFound
	}
	return fmt.Errorf("get profile: %w", err)
}

// objectName escapes the email so it always maps to one object directly under profiles/.
func objectName(email string) string {
	return "profiles/" + url.PathEscape(email) + ".json"
}
