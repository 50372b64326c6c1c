package snapshot

import (
	"context"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

// ObjectWriterFunc opens a writer for one object. The object is committed on Close.
type ObjectWriterFunc func(ctx context.Context, bucket, key string) io.WriteCloser

// GCSConfig holds the bucket location and an optional service account file
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
}

// GCSSink uploads snapshots to a Google Cloud Storage bucket
type GCSSink struct {
	open   ObjectWriterFunc
	close  func() error
	bucket string
	prefix string
}

// NewGCSSink creates a sink using application default credentials, or the
// given service account file.
func NewGCSSink(ctx context.Context, cfg GCSConfig) (*GCSSink, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	open := func(ctx context.Context, bucket, key string) io.WriteCloser {
		w := client.Bucket(bucket).Object(key).NewWriter(ctx)
		w.ContentType = "application/json"
		return w
	}
	s := NewGCSSinkWithWriter(open, cfg.Bucket, cfg.Prefix)
	s.close = client.Close
	return s, nil
}

// NewGCSSinkWithWriter creates a sink around an existing object writer
func NewGCSSinkWithWriter(open ObjectWriterFunc, bucket, prefix string) *GCSSink {
	return &GCSSink{open: open, bucket: bucket, prefix: prefix}
}

func (s *GCSSink) Name() string {
	return "gs://" + path.Join(s.bucket, s.prefix)
}

// Close releases the underlying client
func (s *GCSSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func (s *GCSSink) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Write uploads every collection and then meta.json
func (s *GCSSink) Write(ctx context.Context, snap *catalog.Snapshot) error {
	files, err := Encode(snap)
	if err != nil {
		return err
	}

	put := func(name string) error {
		w := s.open(ctx, s.bucket, s.key(name))
		if _, err := w.Write(files[name]); err != nil {
			w.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
		return nil
	}

	for name := range files {
		if name == MetaFile {
			continue
		}
		if err := put(name); err != nil {
			return err
		}
	}
	return put(MetaFile)
}
