package deploy

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/workout/internal/filex"
	"github.com/dmitrijs2005/workout/internal/logging"
)

// deleteBatchSize is the DeleteObjects per-request key limit.
const deleteBatchSize = 1000

type SyncResult struct {
	Uploaded []string
	Deleted  []string
}

// SyncDir uploads every file under dir to bucket, keyed by its slash-separated
// relative path. With prune set, objects in the bucket that have no local
// counterpart are deleted afterwards.
func SyncDir(ctx context.Context, store ObjectStore, bucket, dir string, prune bool, logger logging.Logger) (*SyncResult, error) {
	files, err := filex.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{}
	local := make(map[string]struct{}, len(files))
	for _, key := range files {
		local[key] = struct{}{}
		if err := uploadFile(ctx, store, bucket, key, filepath.Join(dir, filepath.FromSlash(key))); err != nil {
			return res, err
		}
		logger.Debug(ctx, "uploaded", "key", key)
		res.Uploaded = append(res.Uploaded, key)
	}
	logger.Info(ctx, "upload complete", "bucket", bucket, "files", len(res.Uploaded))

	if !prune {
		return res, nil
	}

	stale, err := staleKeys(ctx, store, bucket, local)
	if err != nil {
		return res, err
	}
	if err := deleteKeys(ctx, store, bucket, stale); err != nil {
		return res, err
	}
	res.Deleted = stale
	logger.Info(ctx, "pruned stale objects", "bucket", bucket, "deleted", len(stale))
	return res, nil
}

func uploadFile(ctx context.Context, store ObjectStore, bucket, key, fullPath string) error {
	f, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func contentType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func staleKeys(ctx context.Context, store ObjectStore, bucket string, local map[string]struct{}) ([]string, error) {
	var stale []string
	p := s3.NewListObjectsV2Paginator(store, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if _, ok := local[key]; !ok {
				stale = append(stale, key)
			}
		}
	}
	return stale, nil
}

func deleteKeys(ctx context.Context, store ObjectStore, bucket string, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := store.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete from s3://%s: %w", bucket, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("delete %s: %s: %s (%d failed)",
				aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message), len(out.Errors))
		}
	}
	return nil
}
