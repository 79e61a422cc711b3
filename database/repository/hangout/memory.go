package hangoutRepo

import (
	"context"
	"errors"
	"sync"

	"proxo/models"

	"github.com/google/uuid"
)

// ErrFeedClosed ends a change feed whose repository dropped its watchers.
var ErrFeedClosed = errors.New("change feed closed")

// feedBuffer bounds undelivered notifications per watcher. A watcher that falls
// this far behind re-reads full state on its next notification anyway.
const feedBuffer = 256

// MemoryHangoutRepo is a process-local HangoutRepository. It backs CHANGE_FEED=memory
// and the package tests.
type MemoryHangoutRepo struct {
	mu       sync.RWMutex
	records  map[string]models.HangoutRequest
	order    []string
	watchers map[*memoryFeed]struct{}
}

// NewMemoryHangoutRepo creates an empty in-memory repository.
func NewMemoryHangoutRepo() *MemoryHangoutRepo {
	return &MemoryHangoutRepo{
		records:  make(map[string]models.HangoutRequest),
		watchers: make(map[*memoryFeed]struct{}),
	}
}

func (r *MemoryHangoutRepo) Create(ctx context.Context, req *models.HangoutRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	r.mu.Lock()
	if _, exists := r.records[req.ID]; !exists {
		r.order = append(r.order, req.ID)
	}
	r.records[req.ID] = *req
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *MemoryHangoutRepo) GetByID(ctx context.Context, id string) (*models.HangoutRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &req, nil
}

func (r *MemoryHangoutRepo) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	req, ok := r.records[id]
	if !ok || req.Status != from {
		r.mu.Unlock()
		return false, nil
	}
	req.Status = to
	r.records[id] = req
	r.mu.Unlock()

	r.notify()
	return true, nil
}

func (r *MemoryHangoutRepo) Find(ctx context.Context, q Query) ([]models.HangoutRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	reqs := make([]models.HangoutRequest, 0, len(r.order))
	for _, id := range r.order {
		if req := r.records[id]; q.Matches(req) {
			reqs = append(reqs, req)
		}
	}
	r.mu.RUnlock()

	SortRequests(reqs, q.Order)
	return reqs, nil
}

func (r *MemoryHangoutRepo) Watch(ctx context.Context) (ChangeFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed := &memoryFeed{
		repo:   r,
		events: make(chan struct{}, feedBuffer),
		done:   make(chan struct{}),
	}
	r.mu.Lock()
	r.watchers[feed] = struct{}{}
	r.mu.Unlock()
	return feed, nil
}

// DropWatchers terminates every open change feed with ErrFeedClosed, the way a
// server-side stream failure would.
func (r *MemoryHangoutRepo) DropWatchers() {
	r.mu.Lock()
	feeds := make([]*memoryFeed, 0, len(r.watchers))
	for f := range r.watchers {
		feeds = append(feeds, f)
	}
	r.watchers = make(map[*memoryFeed]struct{})
	r.mu.Unlock()

	for _, f := range feeds {
		f.fail(ErrFeedClosed)
	}
}

func (r *MemoryHangoutRepo) notify() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for f := range r.watchers {
		select {
		case f.events <- struct{}{}:
		default:
		}
	}
}

func (r *MemoryHangoutRepo) removeWatcher(f *memoryFeed) {
	r.mu.Lock()
	delete(r.watchers, f)
	r.mu.Unlock()
}

type memoryFeed struct {
	repo   *MemoryHangoutRepo
	events chan struct{}
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	err    error
}

func (f *memoryFeed) Next(ctx context.Context) bool {
	select {
	case <-f.done:
		return false
	default:
	}
	select {
	case <-f.events:
		return true
	case <-f.done:
		return false
	case <-ctx.Done():
		f.setErr(ctx.Err())
		return false
	}
}

func (f *memoryFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *memoryFeed) Close(ctx context.Context) error {
	f.repo.removeWatcher(f)
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *memoryFeed) fail(err error) {
	f.setErr(err)
	f.once.Do(func() { close(f.done) })
}

func (f *memoryFeed) setErr(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}
