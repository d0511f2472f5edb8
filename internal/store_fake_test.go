package internal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"vendorbook-api/internal/models"
	"vendorbook-api/internal/store"
)

// memStore is an in-memory VendorStore with the same ordering and
// affected-count semantics as the SQL store.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	now    func() time.Time
	rows   map[int64]models.Vendor
}

func newMemStore() *memStore {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	return &memStore{
		rows: map[int64]models.Vendor{},
		now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

func (m *memStore) Insert(_ context.Context, in models.VendorInput) (models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	created := m.now()
	v := in.ToVendor(m.nextID)
	v.DateCreated = &created
	m.rows[v.ID] = v
	return v, nil
}

func (m *memStore) List(context.Context) ([]models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Vendor, 0, len(m.rows))
	for _, v := range m.rows {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DateCreated.Equal(*b.DateCreated) {
			return a.DateCreated.After(*b.DateCreated)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok {
		return models.Vendor{}, store.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Update(_ context.Context, id int64, in models.VendorInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.rows[id]
	if !ok {
		return 0, nil
	}
	v := in.ToVendor(id)
	v.DateCreated = old.DateCreated
	m.rows[id] = v
	return 1, nil
}

func (m *memStore) Delete(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) snapshot() map[int64]models.Vendor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]models.Vendor, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out
}

// mockStore is a testify mock used to inject storage failures.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Insert(ctx context.Context, in models.VendorInput) (models.Vendor, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.Vendor), args.Error(1)
}

func (m *mockStore) List(ctx context.Context) ([]models.Vendor, error) {
	args := m.Called(ctx)
	vendors, _ := args.Get(0).([]models.Vendor)
	return vendors, args.Error(1)
}

func (m *mockStore) Get(ctx context.Context, id int64) (models.Vendor, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Vendor), args.Error(1)
}

func (m *mockStore) Update(ctx context.Context, id int64, in models.VendorInput) (int64, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
