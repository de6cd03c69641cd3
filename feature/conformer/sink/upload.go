package sink

import (
	"context"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"conformer-pipeline/core/storage"
)

// Uploader pushes a run's output directory to object storage.
type Uploader struct {
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewUploader builds an Uploader for the given bucket.
func NewUploader(client storage.Client, bucket string, logger *zap.Logger) *Uploader {
	return &Uploader{client: client, bucket: bucket, logger: logger}
}

// UploadDir uploads every regular file under dir to the bucket, keyed by
// prefix plus the file's path relative to dir. The bucket is created if
// missing.
func (u *Uploader) UploadDir(ctx context.Context, dir, prefix string) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return errors.Wrapf(err, "checking bucket %s", u.bucket)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.Wrapf(err, "creating bucket %s", u.bucket)
		}
	}

	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		objName := path.Join(prefix, filepath.ToSlash(rel))

		f, err := os.Open(p)
		if err != nil {
			return errors.Wrapf(err, "opening %s", p)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return errors.Wrapf(err, "stat %s", p)
		}

		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		if _, err := u.client.PutObject(ctx, u.bucket, objName, f, info.Size(),
			minio.PutObjectOptions{ContentType: contentType}); err != nil {
			return errors.Wrapf(err, "uploading %s", objName)
		}

		u.logger.Debug("uploaded artifact",
			zap.String("object", objName),
			zap.Int64("size", info.Size()))
		return nil
	})
}
