package export

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/export"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// after reports whether (at, id) sorts strictly after the cursor
func after(c *shared.Cursor, at time.Time, id uuid.UUID) bool {
	if c == nil {
		return true
	}
	if at.Equal(c.CreatedAt) {
		return bytes.Compare(id[:], c.ID[:]) > 0
	}
	return at.After(c.CreatedAt)
}

type fakeProducts struct {
	catalog.ProductRepository
	items   []catalog.Product
	total   int64
	limits  []int
	filters []shared.Filter
	err     error
}

func (f *fakeProducts) CountForStore(_ context.Context, _ uuid.UUID, filter shared.Filter) (int64, error) {
	f.filters = append(f.filters, filter)
	if f.total > 0 {
		return f.total, nil
	}
	return int64(len(f.items)), nil
}

func (f *fakeProducts) FindBatchForExport(_ context.Context, _ uuid.UUID, _ shared.Filter, c *shared.Cursor, limit int) ([]catalog.Product, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	sorted := append([]catalog.Product(nil), f.items...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	var out []catalog.Product
	for _, p := range sorted {
		if after(c, p.CreatedAt, p.ID) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeOrders struct {
	order.Repository
	items []order.Order
}

func (f *fakeOrders) CountForStore(context.Context, uuid.UUID, shared.Filter) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeOrders) FindBatchForExport(_ context.Context, _ uuid.UUID, _ shared.Filter, c *shared.Cursor, limit int) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.items {
		if after(c, o.CreatedAt, o.ID) {
			out = append(out, o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeBrands struct {
	catalog.BrandRepository
	byID   map[uuid.UUID]*catalog.Brand
	lookup int
}

func (f *fakeBrands) FindByIDForStore(_ context.Context, _, id uuid.UUID) (*catalog.Brand, error) {
	f.lookup++
	if b, ok := f.byID[id]; ok {
		return b, nil
	}
	return nil, shared.ErrNotFound
}

type fakeCategories struct {
	catalog.CategoryRepository
	byID map[uuid.UUID]*catalog.Category
}

func (f *fakeCategories) FindByIDForStore(_ context.Context, _, id uuid.UUID) (*catalog.Category, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]export.Job
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[uuid.UUID]export.Job)}
}

func (m *memJobs) FindByID(_ context.Context, id uuid.UUID) (*export.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &j, nil
}

func (m *memJobs) FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*export.Job, error) {
	j, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.StoreID != storeID {
		return nil, shared.ErrNotFound
	}
	return j, nil
}

func (m *memJobs) FindAllForStore(_ context.Context, storeID uuid.UUID, _ shared.Filter) ([]export.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []export.Job
	for _, j := range m.jobs {
		if j.StoreID == storeID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memJobs) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	jobs, _ := m.FindAllForStore(ctx, storeID, filter)
	return int64(len(jobs)), nil
}

func (m *memJobs) Save(_ context.Context, job *export.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

type memStorage struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memStorage) Put(_ context.Context, key string, body io.Reader, size int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return io.ErrShortWrite
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memStorage) PresignGet(_ context.Context, key, fileName string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + key + "?name=" + fileName, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type enqueued struct {
	jobType string
	payload any
}

type fakeQueue struct {
	calls []enqueued
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, jobType string, payload any) (uuid.UUID, error) {
	if q.err != nil {
		return uuid.Nil, q.err
	}
	q.calls = append(q.calls, enqueued{jobType: jobType, payload: payload})
	return uuid.New(), nil
}

type bufferStream struct {
	bytes.Buffer
	fileName string
	started  int
	flushes  int
}

func (b *bufferStream) Start(fileName string) {
	b.fileName = fileName
	b.started++
}

func (b *bufferStream) Flush() {
	b.flushes++
}
