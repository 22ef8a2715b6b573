package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/titleplant/internal/index"
	"github.com/local/titleplant/internal/pdfopt"
	"github.com/local/titleplant/internal/portal"
)

type completedCall struct {
	id       int64
	gcsPath  string
	book     *int
	page     *int
	mismatch bool
}

type failedCall struct {
	id    int64
	msg   string
	retry bool
}

type fakeQueue struct {
	claimOK   bool
	completed []completedCall
	failed    []failedCall
	skipped   []string
}

func (q *fakeQueue) MarkInProgress(ctx context.Context, id int64) (bool, error) {
	return q.claimOK, nil
}

func (q *fakeQueue) MarkCompleted(ctx context.Context, id int64, gcsPath string, actualBook, actualPage *int, mismatch bool) error {
	q.completed = append(q.completed, completedCall{id, gcsPath, actualBook, actualPage, mismatch})
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id int64, errMsg string, retry bool) (index.Status, error) {
	q.failed = append(q.failed, failedCall{id, errMsg, retry})
	if retry {
		return index.StatusPending, nil
	}
	return index.StatusFailed, nil
}

func (q *fakeQueue) MarkSkipped(ctx context.Context, id int64, reason string) error {
	q.skipped = append(q.skipped, reason)
	return nil
}

type fakeFetcher struct {
	byInstrument func(int64) (*portal.Result, error)
	byBookPage   func(int, int) (*portal.Result, error)
}

func (f *fakeFetcher) FetchByInstrument(ctx context.Context, instrument int64) (*portal.Result, error) {
	return f.byInstrument(instrument)
}

func (f *fakeFetcher) FetchByBookPage(ctx context.Context, book, page int) (*portal.Result, error) {
	return f.byBookPage(book, page)
}

type fakeOptimizer struct{}

func (fakeOptimizer) Optimize(ctx context.Context, path string) (pdfopt.Result, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return pdfopt.Result{}, err
	}
	return pdfopt.Result{OriginalSize: fi.Size(), OptimizedSize: fi.Size(), Applied: true}, nil
}

type fakeArchiver struct {
	err      error
	uploaded int
}

func (a *fakeArchiver) Upload(ctx context.Context, doc *index.Document, localPath string, originalSize, optimizedSize int64) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.uploaded++
	return "documents/historical/deed/0100-0001.pdf", nil
}

func intp(v int) *int     { return &v }
func i64p(v int64) *int64 { return &v }

func testDoc(book, page int) *index.Document {
	return &index.Document{ID: 1, Book: intp(book), Page: intp(page)}
}

func newTestWorker(t *testing.T, q *fakeQueue, f *fakeFetcher, a *fakeArchiver) *Worker {
	t.Helper()
	return NewWorker(q, f, fakeOptimizer{}, a, NewLimiter(0), NewStats(), t.TempDir())
}

func okResult(book, page int) *portal.Result {
	return &portal.Result{
		PDF:    []byte("%PDF-1.4 data"),
		Meta:   portal.Metadata{Book: intp(book), Page: intp(page)},
		Images: 1,
	}
}

func TestWorkerSuccess(t *testing.T) {
	q := &fakeQueue{claimOK: true}
	f := &fakeFetcher{
		byBookPage: func(book, page int) (*portal.Result, error) {
			return okResult(book, page), nil
		},
	}
	a := &fakeArchiver{}

	newTestWorker(t, q, f, a).Process(t.Context(), testDoc(100, 1))

	require.Len(t, q.completed, 1)
	c := q.completed[0]
	assert.Equal(t, "documents/historical/deed/0100-0001.pdf", c.gcsPath)
	assert.False(t, c.mismatch)
	assert.Equal(t, 100, *c.book)
	assert.Empty(t, q.failed)
	assert.Equal(t, 1, a.uploaded)
}

func TestWorkerClaimLost(t *testing.T) {
	q := &fakeQueue{claimOK: false}
	f := &fakeFetcher{
		byBookPage: func(int, int) (*portal.Result, error) {
			t.Fatal("fetch must not run without a claim")
			return nil, nil
		},
	}

	newTestWorker(t, q, f, &fakeArchiver{}).Process(t.Context(), testDoc(100, 1))

	assert.Empty(t, q.completed)
	assert.Empty(t, q.failed)
	assert.Empty(t, q.skipped)
}

func TestWorkerMismatchStillCompletes(t *testing.T) {
	q := &fakeQueue{claimOK: true}
	f := &fakeFetcher{
		byBookPage: func(book, page int) (*portal.Result, error) {
			// Portal says the document really lives at 101/2.
			return okResult(101, 2), nil
		},
	}

	newTestWorker(t, q, f, &fakeArchiver{}).Process(t.Context(), testDoc(100, 1))

	require.Len(t, q.completed, 1)
	c := q.completed[0]
	assert.True(t, c.mismatch)
	assert.Equal(t, 101, *c.book)
	assert.Equal(t, 2, *c.page)
}

func TestWorkerInstrumentFallback(t *testing.T) {
	q := &fakeQueue{claimOK: true}
	var instrumentTried, bookPageTried bool
	f := &fakeFetcher{
		byInstrument: func(int64) (*portal.Result, error) {
			instrumentTried = true
			return nil, &portal.FetchError{Kind: portal.KindNotFound, Msg: "nope"}
		},
		byBookPage: func(book, page int) (*portal.Result, error) {
			bookPageTried = true
			return okResult(book, page), nil
		},
	}

	doc := testDoc(100, 1)
	doc.InstrumentNumber = i64p(20070001)
	newTestWorker(t, q, f, &fakeArchiver{}).Process(t.Context(), doc)

	assert.True(t, instrumentTried)
	assert.True(t, bookPageTried)
	assert.Len(t, q.completed, 1)
}

func TestWorkerTransientFailureRetries(t *testing.T) {
	q := &fakeQueue{claimOK: true}
	f := &fakeFetcher{
		byBookPage: func(int, int) (*portal.Result, error) {
			return nil, &portal.FetchError{Kind: portal.KindNetwork, Msg: "conn reset"}
		},
	}

	newTestWorker(t, q, f, &fakeArchiver{}).Process(t.Context(), testDoc(100, 1))

	require.Len(t, q.failed, 1)
	assert.True(t, q.failed[0].retry)
	assert.Empty(t, q.completed)
}

func TestWorkerNotFoundDoesNotRetry(t *testing.T) {
	q := &fakeQueue{claimOK: true}
	f := &fakeFetcher{
		byBookPage: func(int, int) (*portal.Result, error) {
			return nil, &portal.FetchError{Kind: portal.KindNotFound, Msg: "no records"}
		},
	}

	newTestWorker(t, q, f, &fakeArchiver{}).Process(t.Context(), testDoc(100, 1))

	require.Len(t, q.failed, 1)
	assert.False(t, q.failed[0].retry)
}

func TestWorkerExcludedPortalSkips(t *testing.T) {
	q := &fakeQueue{claimOK: true}
	f := &fakeFetcher{
		byBookPage: func(int, int) (*portal.Result, error) {
			t.Fatal("NEW portal rows must never be fetched")
			return nil, nil
		},
	}

	newTestWorker(t, q, f, &fakeArchiver{}).Process(t.Context(), testDoc(4000, 1))

	require.Len(t, q.skipped, 1)
	assert.Contains(t, q.skipped[0], "NEW portal")
	assert.Empty(t, q.failed)
}

func TestWorkerMissingLocatorSkips(t *testing.T) {
	q := &fakeQueue{claimOK: true}
	f := &fakeFetcher{}

	doc := &index.Document{ID: 9}
	newTestWorker(t, q, f, &fakeArchiver{}).Process(t.Context(), doc)

	require.Len(t, q.skipped, 1)
	assert.Contains(t, q.skipped[0], "book/page")
}

func TestWorkerUploadFailureRetries(t *testing.T) {
	q := &fakeQueue{claimOK: true}
	f := &fakeFetcher{
		byBookPage: func(book, page int) (*portal.Result, error) {
			return okResult(book, page), nil
		},
	}
	a := &fakeArchiver{err: errors.New("gcs 503")}

	newTestWorker(t, q, f, a).Process(t.Context(), testDoc(100, 1))

	require.Len(t, q.failed, 1)
	assert.True(t, q.failed[0].retry)
	assert.Contains(t, q.failed[0].msg, "upload_failure")
}
