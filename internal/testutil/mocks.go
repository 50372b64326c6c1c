package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
)

// MockRecordRepository is a mock implementation of catalog.Repository
type MockRecordRepository struct {
	mu        sync.Mutex
	Records   map[catalog.ResourceType]catalog.Collection
	Meta      *catalog.Metadata
	SaveCalls int
	SaveError error
	LoadError error
}

func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{Records: make(map[catalog.ResourceType]catalog.Collection)}
}

func (m *MockRecordRepository) SaveRecords(ctx context.Context, rt catalog.ResourceType, records catalog.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	// a real transaction cannot begin on a done context
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Records[rt] == nil {
		m.Records[rt] = make(catalog.Collection)
	}
	m.Records[rt].Merge(records)
	return nil
}

func (m *MockRecordRepository) LoadRecords(ctx context.Context, rt catalog.ResourceType) (catalog.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	out := make(catalog.Collection)
	out.Merge(m.Records[rt])
	return out, nil
}

func (m *MockRecordRepository) SaveMetadata(ctx context.Context, meta catalog.Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Meta = &meta
	return nil
}

func (m *MockRecordRepository) GetMetadata(ctx context.Context) (*catalog.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Meta, nil
}

func (m *MockRecordRepository) LoadSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	snap := &catalog.Snapshot{Collections: make(map[catalog.ResourceType]catalog.Collection)}
	for _, rt := range catalog.AllTypes {
		c, err := m.LoadRecords(ctx, rt)
		if err != nil {
			return nil, err
		}
		snap.Collections[rt] = c
	}
	if meta, _ := m.GetMetadata(ctx); meta != nil {
		snap.Meta = *meta
	}
	return snap, nil
}

// MockFetchJobRepository is a mock implementation of fetch.Repository
type MockFetchJobRepository struct {
	mu          sync.Mutex
	Jobs        map[string]*fetch.Job
	CreateError error
}

func NewMockFetchJobRepository() *MockFetchJobRepository {
	return &MockFetchJobRepository{Jobs: make(map[string]*fetch.Job)}
}

func (m *MockFetchJobRepository) Create(ctx context.Context, j *fetch.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	cp := *j
	m.Jobs[j.ID] = &cp
	return nil
}

func (m *MockFetchJobRepository) Update(ctx context.Context, j *fetch.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Jobs[j.ID]; !ok {
		return fmt.Errorf("fetch job not found")
	}
	cp := *j
	m.Jobs[j.ID] = &cp
	return nil
}

func (m *MockFetchJobRepository) Get(ctx context.Context, id string) (*fetch.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (m *MockFetchJobRepository) List(ctx context.Context, filter fetch.Filter, limit, offset int) ([]*fetch.Job, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*fetch.Job
	for _, j := range m.Jobs {
		if filter.ResourceType != "" && j.ResourceType != filter.ResourceType {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.CycleID != "" && j.CycleID != filter.CycleID {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })

	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

// ByResourceType returns the stored jobs of rt
func (m *MockFetchJobRepository) ByResourceType(rt catalog.ResourceType) []*fetch.Job {
	jobs, _, _ := m.List(context.Background(), fetch.Filter{ResourceType: rt}, 0, 0)
	return jobs
}

// MockAccountRepository is a mock implementation of account.Repository
type MockAccountRepository struct {
	mu   sync.Mutex
	Snap *account.Snapshot
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{}
}

func (m *MockAccountRepository) Save(ctx context.Context, snap *account.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snap = snap
	return nil
}

func (m *MockAccountRepository) Load(ctx context.Context) (*account.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Snap, nil
}
