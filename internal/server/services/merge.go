package services

import (
	"context"
	"fmt"

	"github.com/printbatch/printbatch/internal/common"
	"github.com/printbatch/printbatch/internal/logging"
	"github.com/printbatch/printbatch/internal/notify"
	"github.com/printbatch/printbatch/internal/pdf"
	"github.com/printbatch/printbatch/internal/server/repositories/uploads"
	"github.com/printbatch/printbatch/internal/server/storage"
	"golang.org/x/sync/errgroup"
)

// fetchLimit bounds concurrent remote reads during a merge.
const fetchLimit = 4

// MergeResult reports one merge run. IDs is the pending-record snapshot
// the merge was built from; Commit must act on exactly this set.
type MergeResult struct {
	Batch  string
	Data   []byte
	IDs    []int64
	Merged int
	Failed int
}

// MergeService builds a single document from a batch's pending uploads.
// It never mutates ledger state itself; committing the batch is a
// separate, explicit step so the artifact and the state flip stay
// independent operations.
type MergeService struct {
	store storage.Store
	repo  uploads.Repository
	cache *ResultCache
	sink  notify.Sink
	log   logging.Logger

	// Seams for tests; default to the pdfcpu-backed implementations.
	probe     func(data []byte) (int, error)
	mergeDocs func(parts [][]byte) ([]byte, error)
}

func NewMergeService(store storage.Store, repo uploads.Repository, cache *ResultCache, sink notify.Sink, log logging.Logger) *MergeService {
	return &MergeService{
		store:     store,
		repo:      repo,
		cache:     cache,
		sink:      sink,
		log:       log.With("component", "merge"),
		probe:     pdf.PageCount,
		mergeDocs: pdf.Merge,
	}
}

// Merge snapshots the batch's pending uploads (oldest first), fetches each
// object, and concatenates the readable ones in snapshot order. A fetch or
// parse failure skips that record and never aborts the run; if every
// record fails the result is an empty document, returned as success. The
// artifact is cached under the verbatim batch label before returning.
func (s *MergeService) Merge(ctx context.Context, batchLabel string) (*MergeResult, error) {
	snapshot, err := s.repo.ListPendingByBatch(ctx, batchLabel)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	if len(snapshot) == 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrEmptyBatch, batchLabel)
	}

	ids := make([]int64, len(snapshot))
	for i, rec := range snapshot {
		ids[i] = rec.ID
	}

	// Fetch concurrently but slot results by snapshot position, so output
	// page order is snapshot order regardless of completion timing.
	parts := make([][]byte, len(snapshot))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i, rec := range snapshot {
		g.Go(func() error {
			data, err := s.store.Get(gctx, rec.StoragePath)
			if err != nil {
				s.log.Warn(gctx, "skipping unreadable source",
					"batch", batchLabel, "id", rec.ID, "path", rec.StoragePath, "error", err)
				return nil
			}
			pages, err := s.probe(data)
			if err != nil {
				s.log.Warn(gctx, "skipping unparseable source",
					"batch", batchLabel, "id", rec.ID, "path", rec.StoragePath, "error", err)
				return nil
			}
			s.log.Info(gctx, "fetched source",
				"batch", batchLabel, "id", rec.ID, "pages", pages)
			parts[i] = data
			return nil
		})
	}
	// Goroutines swallow per-item failures, so Wait only reflects ctx state.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	survivors := make([][]byte, 0, len(parts))
	for _, p := range parts {
		if p != nil {
			survivors = append(survivors, p)
		}
	}

	res := &MergeResult{
		Batch:  batchLabel,
		IDs:    ids,
		Merged: len(survivors),
		Failed: len(snapshot) - len(survivors),
	}

	if len(survivors) == 0 {
		s.log.Warn(ctx, "every source failed, producing empty document", "batch", batchLabel)
		res.Data = []byte{}
		s.cache.Put(batchLabel, res.Data)
		return res, nil
	}

	merged, err := s.mergeDocs(survivors)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", batchLabel, err)
	}
	res.Data = merged

	s.cache.Put(batchLabel, merged)
	s.log.Info(ctx, "batch merged",
		"batch", batchLabel, "sources", res.Merged, "skipped", res.Failed, "bytes", len(merged))
	return res, nil
}

// Commit flips the snapshot's records to processed and notifies the
// operator. Notification is fire-and-forget: delivery failures are logged
// by the sink and never block or fail the commit.
func (s *MergeService) Commit(ctx context.Context, res *MergeResult) error {
	n, err := s.repo.MarkProcessed(ctx, res.IDs)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	s.log.Info(ctx, "batch committed", "batch", res.Batch, "processed", n)

	subject := fmt.Sprintf("Batch Processed: %s (%d files)", res.Batch, res.Merged)
	body := fmt.Sprintf("Batch %q was merged into a single document: %d sources included, %d skipped, %d bytes.",
		res.Batch, res.Merged, res.Failed, len(res.Data))
	go func() {
		_ = s.sink.Notify(context.WithoutCancel(ctx), subject, body)
	}()

	return nil
}

// MergeAndCommit runs Merge and, on success, Commit in sequence. The two
// steps are not transactional; the commit targets the snapshot ids, so an
// upload landing between them stays pending for the next merge.
func (s *MergeService) MergeAndCommit(ctx context.Context, batchLabel string) (*MergeResult, error) {
	res, err := s.Merge(ctx, batchLabel)
	if err != nil {
		return nil, err
	}
	if err := s.Commit(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Merged returns the cached artifact for batch, or common.ErrNotFound.
func (s *MergeService) Merged(batchLabel string) ([]byte, error) {
	return s.cache.Get(batchLabel)
}

// ClearMerged evicts the cached artifact for batch.
func (s *MergeService) ClearMerged(batchLabel string) {
	s.cache.Clear(batchLabel)
}
