// Package snapshot writes the record store out as one JSON file per resource
// type plus meta.json, to a local directory or an object store bucket, and
// reads a directory snapshot back.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

// MetaFile is the name of the metadata file
const MetaFile = "meta.json"

// Sink persists a full snapshot
type Sink interface {
	Write(ctx context.Context, snap *catalog.Snapshot) error
	Name() string
}

// Loader reads a previously written snapshot back
type Loader interface {
	Load(ctx context.Context) (*catalog.Snapshot, error)
	Name() string
}

// FileName returns the file name holding the collection of rt
func FileName(rt catalog.ResourceType) string {
	return rt.String() + ".json"
}

// Encode renders the snapshot as file name to JSON content. Each collection is
// a JSON array of records ordered by id.
func Encode(snap *catalog.Snapshot) (map[string][]byte, error) {
	files := make(map[string][]byte, len(snap.Collections)+1)
	for rt, c := range snap.Collections {
		records := c.Records()
		if records == nil {
			records = []catalog.Record{}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", rt, err)
		}
		files[FileName(rt)] = data
	}

	meta, err := json.MarshalIndent(snap.Meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	files[MetaFile] = meta
	return files, nil
}

// Multi writes to every sink in order and returns the first error
type Multi []Sink

func (m Multi) Write(ctx context.Context, snap *catalog.Snapshot) error {
	for _, s := range m {
		if err := s.Write(ctx, snap); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

func (m Multi) Name() string {
	return "multi"
}
