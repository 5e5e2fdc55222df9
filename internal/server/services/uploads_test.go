package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/printbatch/printbatch/internal/common"
	"github.com/printbatch/printbatch/internal/server/models"
	"github.com/stretchr/testify/require"
)

func newUploadService(t *testing.T) (*UploadService, *fakeStore, *fakeLedger) {
	t.Helper()
	store := newFakeStore()
	ledger := newFakeLedger()
	return NewUploadService(store, ledger, testLogger()), store, ledger
}

func alice() *models.User {
	return &models.User{ID: "u-alice", Email: "alice@example.com"}
}

func pdfFile(name string, size int) IncomingFile {
	return IncomingFile{
		Name:        name,
		ContentType: PDFContentType,
		Size:        int64(size),
		Data:        []byte(strings.Repeat("x", size)),
	}
}

func TestUpload_AcceptsValidSkipsEmpty(t *testing.T) {
	svc, store, ledger := newUploadService(t)

	files := []IncomingFile{
		pdfFile("a.pdf", 10),
		{Name: "empty.pdf", ContentType: PDFContentType}, // skipped silently
		pdfFile("b.pdf", 20),
	}

	n, err := svc.Upload(context.Background(), files, "Batch 1", alice())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, store.puts, 2)
	require.Len(t, ledger.rows, 2)

	for _, p := range store.puts {
		require.True(t, strings.HasPrefix(p, "uploads/batch-1/"), "path %q must use the normalized batch segment", p)
		require.True(t, strings.HasSuffix(p, ".pdf"))
	}
}

func TestUpload_RejectsWrongContentType(t *testing.T) {
	svc, store, ledger := newUploadService(t)

	files := []IncomingFile{
		{Name: "notes.txt", ContentType: "text/plain", Size: 5, Data: []byte("hello")},
	}

	n, err := svc.Upload(context.Background(), files, "Batch 1", alice())
	require.ErrorIs(t, err, common.ErrInvalidFileType)
	require.Zero(t, n)
	require.Empty(t, store.puts, "rejected input must leave no stored object")
	require.Empty(t, ledger.rows, "rejected input must leave no ledger entry")
}

func TestUpload_RejectsOversizeFile(t *testing.T) {
	svc, store, ledger := newUploadService(t)

	big := IncomingFile{Name: "big.pdf", ContentType: PDFContentType, Size: 15 * 1024 * 1024}

	n, err := svc.Upload(context.Background(), []IncomingFile{big}, "Batch 1", alice())
	require.ErrorIs(t, err, common.ErrFileTooLarge)
	require.Zero(t, n)
	require.Empty(t, store.puts)
	require.Empty(t, ledger.rows)
}

func TestUpload_EarlierFilesStayCommittedOnRejection(t *testing.T) {
	svc, store, ledger := newUploadService(t)

	files := []IncomingFile{
		pdfFile("ok.pdf", 10),
		{Name: "bad.txt", ContentType: "text/plain", Size: 3, Data: []byte("bad")},
		pdfFile("never-reached.pdf", 10),
	}

	n, err := svc.Upload(context.Background(), files, "Batch 1", alice())
	require.ErrorIs(t, err, common.ErrInvalidFileType)
	require.Equal(t, 1, n, "the file accepted before the rejection stays committed")
	require.Len(t, store.puts, 1)
	require.Len(t, ledger.rows, 1)
}

func TestUpload_RecordsActualStoragePath(t *testing.T) {
	svc, store, ledger := newUploadService(t)
	ctx := context.Background()

	// Every desired path reads as occupied, so Put reports a different
	// actual path; the ledger must record that one.
	store.collideAll = true

	n, err := svc.Upload(ctx, []IncomingFile{pdfFile("a.pdf", 4)}, "Batch 1", alice())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var first *models.Upload
	for _, u := range ledger.rows {
		first = u
	}
	require.Equal(t, store.puts[0], first.StoragePath, "ledger must hold the path Put returned")
	require.True(t, strings.HasSuffix(first.StoragePath, ".unique"))
	require.Equal(t, models.StatusPending, first.Status)
	require.Equal(t, "a.pdf", first.OriginalFileName)
	require.NotContains(t, first.FileName, "a.pdf", "storage filename must not derive from user text")
}

func TestUpload_StorageFailureAbortsCall(t *testing.T) {
	svc, store, ledger := newUploadService(t)
	store.putErr = errors.New("store down")

	n, err := svc.Upload(context.Background(), []IncomingFile{pdfFile("a.pdf", 4)}, "Batch 1", alice())
	require.Error(t, err)
	require.Zero(t, n)
	require.Empty(t, ledger.rows)
}

func TestDelete_Success(t *testing.T) {
	svc, store, ledger := newUploadService(t)
	ctx := context.Background()

	n, err := svc.Upload(ctx, []IncomingFile{pdfFile("a.pdf", 4)}, "Batch 1", alice())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, svc.Delete(ctx, 1, alice()))
	require.Len(t, store.deletes, 1)
	require.Empty(t, ledger.rows)
}

func TestDelete_NonOwnerUnauthorized(t *testing.T) {
	svc, store, _ := newUploadService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, []IncomingFile{pdfFile("a.pdf", 4)}, "Batch 1", alice())
	require.NoError(t, err)

	mallory := &models.User{ID: "u-mallory"}
	err = svc.Delete(ctx, 1, mallory)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	require.Empty(t, store.deletes, "no store mutation on authorization failure")
}

func TestDelete_ProcessedIsInvalidState(t *testing.T) {
	svc, store, ledger := newUploadService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, []IncomingFile{pdfFile("a.pdf", 4)}, "Batch 1", alice())
	require.NoError(t, err)
	_, err = ledger.MarkProcessed(ctx, []int64{1})
	require.NoError(t, err)

	err = svc.Delete(ctx, 1, alice())
	require.ErrorIs(t, err, common.ErrInvalidState)
	require.Empty(t, store.deletes)

	rec, err := ledger.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.StatusProcessed, rec.Status, "record must stay unchanged")
}

func TestDelete_MissingRecord(t *testing.T) {
	svc, _, _ := newUploadService(t)
	err := svc.Delete(context.Background(), 42, alice())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_RemoteFailureKeepsLedgerRow(t *testing.T) {
	svc, store, ledger := newUploadService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, []IncomingFile{pdfFile("a.pdf", 4)}, "Batch 1", alice())
	require.NoError(t, err)

	store.delErr = errors.New("store down")
	err = svc.Delete(ctx, 1, alice())
	require.Error(t, err)
	require.Len(t, ledger.rows, 1, "ledger row must survive a failed remote delete")
}

func TestListUserUploads_NewestFirst(t *testing.T) {
	svc, _, ledger := newUploadService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{base, base.Add(time.Hour)} {
		_, err := ledger.Create(ctx, &models.Upload{
			FileName: "f.pdf", OriginalFileName: "o.pdf", StoragePath: "p",
			Batch: "Batch 1", UserID: "u-alice", UploadedAt: at, Status: models.StatusPending,
		})
		require.NoError(t, err, "row %d", i)
	}

	got, err := svc.ListUserUploads(ctx, alice())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, got[0].UploadedAt.After(got[1].UploadedAt))
}
