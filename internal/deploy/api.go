package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/workout/internal/logging"
)

// DefaultBundleKey is the object key the API hosts pull their bundle from.
const DefaultBundleKey = "app.zip"

// ErrEmptyBundle is returned when none of the requested files exist.
var ErrEmptyBundle = errors.New("no files to package")

// ZipFiles writes a deflated zip of files to w. Each file is stored under its
// base name at the archive root. Missing files are logged and skipped; the
// names actually added are returned.
func ZipFiles(ctx context.Context, w io.Writer, files []string, logger logging.Logger) ([]string, error) {
	zw := zip.NewWriter(w)

	var added []string
	for _, path := range files {
		name := filepath.Base(path)
		err := addFile(zw, path, name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn(ctx, "file not found, skipping", "file", path)
			continue
		case err != nil:
			_ = zw.Close()
			return nil, fmt.Errorf("add %s: %w", path, err)
		}
		logger.Info(ctx, "added", "file", name)
		added = append(added, name)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return added, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}

// DeployAPI packages files and uploads the archive to s3://bucket/key.
func DeployAPI(ctx context.Context, store ObjectStore, bucket, key string, files []string, logger logging.Logger) error {
	if key == "" {
		key = DefaultBundleKey
	}

	var buf bytes.Buffer
	added, err := ZipFiles(ctx, &buf, files, logger)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return ErrEmptyBundle
	}

	logger.Info(ctx, "uploading bundle", "bucket", bucket, "key", key, "bytes", buf.Len())
	_, err = store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	logger.Info(ctx, "upload complete")
	return nil
}
