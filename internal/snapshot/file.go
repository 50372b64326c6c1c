package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

// FileSink writes snapshots into a local directory
type FileSink struct {
	dir string
}

// NewFileSink creates a sink writing into dir
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Name() string {
	return "file:" + s.dir
}

// Write replaces every snapshot file. Each file is written to a temp file and
// renamed so readers never see a half-written collection.
func (s *FileSink) Write(ctx context.Context, snap *catalog.Snapshot) error {
	files, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	// collections first, metadata last
	names := make([]string, 0, len(files))
	for name := range files {
		if name != MetaFile {
			names = append(names, name)
		}
	}
	names = append(names, MetaFile)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(s.dir, name)
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, files[name], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("rename %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the snapshot last written into the sink's directory
func (s *FileSink) Load(ctx context.Context) (*catalog.Snapshot, error) {
	return LoadDir(s.dir)
}

// LoadDir reads a snapshot written by FileSink. Missing collection files are
// treated as empty; a missing meta.json yields zero metadata.
func LoadDir(dir string) (*catalog.Snapshot, error) {
	snap := &catalog.Snapshot{Collections: make(map[catalog.ResourceType]catalog.Collection, len(catalog.AllTypes))}

	for _, rt := range catalog.AllTypes {
		data, err := os.ReadFile(filepath.Join(dir, FileName(rt)))
		if errors.Is(err, os.ErrNotExist) {
			snap.Collections[rt] = catalog.Collection{}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", FileName(rt), err)
		}
		records, err := catalog.DecodeRecords(rt, data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", FileName(rt), err)
		}
		snap.Collections[rt] = catalog.NewCollection(records)
	}

	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", MetaFile, err)
	default:
		if err := json.Unmarshal(data, &snap.Meta); err != nil {
			return nil, fmt.Errorf("decode %s: %w", MetaFile, err)
		}
	}
	return snap, nil
}
