package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot(map[catalog.ResourceType]catalog.Collection{
		catalog.TypeItems: catalog.NewCollection([]catalog.Record{
			&catalog.Item{ID: 2, Name: "Iron Ore", Rarity: "Basic"},
			&catalog.Item{ID: 1, Name: "Copper Ore", Rarity: "Basic"},
		}),
		catalog.TypeRecipes: catalog.NewCollection([]catalog.Record{
			&catalog.Recipe{ID: 10, OutputItemID: 1, Ingredients: []catalog.Ingredient{{ItemID: 2, Count: 3}}},
		}),
		catalog.TypePrices: {},
	}, time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC))
}

func TestFileSink_WriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	if err := NewFileSink(dir).Write(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		t.Fatalf("meta.json missing: %v", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("meta.json invalid: %v", err)
	}
	for _, k := range []string{"lastUpdated", "itemCount", "recipeCount"} {
		if _, ok := meta[k]; !ok {
			t.Errorf("meta.json missing %q", k)
		}
	}

	var items []catalog.Item
	raw, _ = os.ReadFile(filepath.Join(dir, "items.json"))
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatalf("items.json invalid: %v", err)
	}
	if len(items) != 2 || items[0].ID != 1 {
		t.Errorf("items.json = %+v, want two records ordered by id", items)
	}

	snap, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if snap.Meta.ItemCount != 2 || snap.Meta.RecipeCount != 1 {
		t.Errorf("Meta = %+v", snap.Meta)
	}
	r, ok := snap.Collections[catalog.TypeRecipes][10].(*catalog.Recipe)
	if !ok || len(r.Ingredients) != 1 {
		t.Errorf("recipe 10 = %+v", snap.Collections[catalog.TypeRecipes][10])
	}
	if len(snap.Collections[catalog.TypeItemStats]) != 0 {
		t.Error("missing itemstats.json should load as empty")
	}
}

func TestLoadDir_Empty(t *testing.T) {
	snap, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if !snap.Meta.LastUpdated.IsZero() {
		t.Errorf("LastUpdated = %v, want zero", snap.Meta.LastUpdated)
	}
}

type fakePutter struct {
	mu   sync.Mutex
	keys []string
	body map[string][]byte
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.body == nil {
		f.body = make(map[string][]byte)
	}
	f.keys = append(f.keys, aws.ToString(in.Key))
	f.body[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink_Write(t *testing.T) {
	putter := &fakePutter{}
	sink := NewS3SinkWithClient(putter, "ledger", "snapshots/eu")

	if err := sink.Write(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(putter.keys) != 4 {
		t.Fatalf("uploaded %v", putter.keys)
	}
	if last := putter.keys[len(putter.keys)-1]; last != "snapshots/eu/meta.json" {
		t.Errorf("last key = %q, metadata must be uploaded last", last)
	}
	if _, ok := putter.body["snapshots/eu/items.json"]; !ok {
		t.Error("items.json not uploaded")
	}
	if sink.Name() != "s3://ledger/snapshots/eu" {
		t.Errorf("Name() = %q", sink.Name())
	}
}

type memObject struct {
	bytes.Buffer
	key    string
	onDone func(key string, data []byte)
}

func (o *memObject) Close() error {
	o.onDone(o.key, o.Bytes())
	return nil
}

func TestGCSSink_Write(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	open := func(_ context.Context, bucket, key string) io.WriteCloser {
		if bucket != "ledger" {
			t.Errorf("bucket = %q", bucket)
		}
		return &memObject{key: key, onDone: func(key string, _ []byte) {
			mu.Lock()
			keys = append(keys, key)
			mu.Unlock()
		}}
	}

	sink := NewGCSSinkWithWriter(open, "ledger", "eu")
	if err := sink.Write(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(keys) != 4 {
		t.Fatalf("committed %v", keys)
	}
	if keys[len(keys)-1] != "eu/meta.json" {
		t.Errorf("last key = %q, metadata must be committed last", keys[len(keys)-1])
	}
	if sink.Name() != "gs://ledger/eu" {
		t.Errorf("Name() = %q", sink.Name())
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
