package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/printbatch/printbatch/internal/common"
	"github.com/printbatch/printbatch/internal/logging"
	"github.com/printbatch/printbatch/internal/server/models"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

// fakeStore is an in-memory storage.Store with scriptable failures.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr  error
	getErrs map[string]error
	delErr  error

	// collideAll makes every Put report a disambiguated path, as if the
	// desired path were always occupied.
	collideAll bool

	puts    []string
	deletes []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, getErrs: map[string]error{}}
}

func (f *fakeStore) Put(_ context.Context, data []byte, desired string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	actual := desired
	if _, occupied := f.objects[desired]; occupied || f.collideAll {
		actual = desired + ".unique"
	}
	f.objects[actual] = append([]byte(nil), data...)
	f.puts = append(f.puts, actual)
	return actual, nil
}

func (f *fakeStore) Get(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErrs[path]; err != nil {
		return nil, err
	}
	data, ok := f.objects[path]
	if !ok {
		return nil, fmt.Errorf("no object at %s", path)
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, path)
	f.deletes = append(f.deletes, path)
	return nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for p := range f.objects {
		if len(p) >= len(prefix) && p[:len(prefix)] == prefix {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) TestConnection(context.Context) bool { return true }

// fakeLedger is an in-memory uploads.Repository.
type fakeLedger struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*models.Upload

	createErr error
	marked    [][]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: map[int64]*models.Upload{}}
}

func (f *fakeLedger) Create(_ context.Context, u *models.Upload) (*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	u.ID = f.seq
	cp := *u
	f.rows[u.ID] = &cp
	return u, nil
}

func (f *fakeLedger) GetByID(_ context.Context, id int64) (*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeLedger) ListByUser(_ context.Context, userID string) ([]*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Upload
	for _, u := range f.rows {
		if u.UserID == userID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeLedger) ListPendingByBatch(_ context.Context, batch string) ([]*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Upload
	for _, u := range f.rows {
		if u.Batch == batch && u.Status == models.StatusPending {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeLedger) MarkProcessed(_ context.Context, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, append([]int64(nil), ids...))
	var n int64
	for _, id := range ids {
		if u, ok := f.rows[id]; ok && u.Status == models.StatusPending {
			u.Status = models.StatusProcessed
			n++
		}
	}
	return n, nil
}

func (f *fakeLedger) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

// fakeSink captures notifications on a channel so tests can wait for the
// fire-and-forget goroutine.
type fakeSink struct {
	notified chan string
}

func newFakeSink() *fakeSink {
	return &fakeSink{notified: make(chan string, 4)}
}

func (f *fakeSink) Notify(_ context.Context, subject, _ string) error {
	f.notified <- subject
	return nil
}
