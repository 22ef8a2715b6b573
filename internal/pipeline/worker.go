package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/titleplant/internal/index"
	"github.com/local/titleplant/internal/metrics"
	"github.com/local/titleplant/internal/pdfopt"
	"github.com/local/titleplant/internal/portal"
)

// Queue is the slice of the index store a worker mutates.
type Queue interface {
	MarkInProgress(ctx context.Context, id int64) (bool, error)
	MarkCompleted(ctx context.Context, id int64, gcsPath string, actualBook, actualPage *int, mismatch bool) error
	MarkFailed(ctx context.Context, id int64, errMsg string, retry bool) (index.Status, error)
	MarkSkipped(ctx context.Context, id int64, reason string) error
}

// Fetcher retrieves documents from a county portal.
type Fetcher interface {
	FetchByInstrument(ctx context.Context, instrument int64) (*portal.Result, error)
	FetchByBookPage(ctx context.Context, book, page int) (*portal.Result, error)
}

// Optimizer shrinks a PDF file in place.
type Optimizer interface {
	Optimize(ctx context.Context, path string) (pdfopt.Result, error)
}

// Archiver stores a finished PDF and returns its archive key.
type Archiver interface {
	Upload(ctx context.Context, doc *index.Document, localPath string, originalSize, optimizedSize int64) (string, error)
}

// Worker runs one document through claim, fetch, optimize, upload and
// status write-back. Stateless aside from shared collaborators, so the
// scheduler runs many against the same instance set.
type Worker struct {
	queue       Queue
	fetcher     Fetcher
	optimizer   Optimizer
	archiver    Archiver
	limiter     *Limiter
	stats       *Stats
	downloadDir string
}

func NewWorker(queue Queue, fetcher Fetcher, optimizer Optimizer, archiver Archiver, limiter *Limiter, stats *Stats, downloadDir string) *Worker {
	return &Worker{
		queue:       queue,
		fetcher:     fetcher,
		optimizer:   optimizer,
		archiver:    archiver,
		limiter:     limiter,
		stats:       stats,
		downloadDir: downloadDir,
	}
}

// Process takes one queue candidate to a terminal state. Losing the claim
// CAS is not an error; another worker or a concurrent run owns the row.
func (w *Worker) Process(ctx context.Context, doc *index.Document) {
	won, err := w.queue.MarkInProgress(ctx, doc.ID)
	if err != nil {
		log.Error().Err(err).Int64("doc_id", doc.ID).Msg("claim failed")
		return
	}
	if !won {
		return
	}

	start := time.Now()
	p := w.route(doc)
	gcsPath, actualBook, actualPage, mismatch, err := w.download(ctx, doc, p)
	if err != nil {
		w.dispose(ctx, doc, p, err)
		return
	}

	if err := w.queue.MarkCompleted(ctx, doc.ID, gcsPath, actualBook, actualPage, mismatch); err != nil {
		w.dispose(ctx, doc, p, classErr(ClassDBError, err))
		return
	}
	metrics.ObserveDownload(string(p), "completed", time.Since(start))
	log.Info().
		Int64("doc_id", doc.ID).
		Str("portal", string(p)).
		Str("gcs_path", gcsPath).
		Bool("mismatch", mismatch).
		Dur("took", time.Since(start)).
		Msg("document archived")
}

func (w *Worker) route(doc *index.Document) portal.Portal {
	if doc.Book == nil {
		return ""
	}
	return portal.Route(*doc.Book)
}

func (w *Worker) download(ctx context.Context, doc *index.Document, p portal.Portal) (gcsPath string, actualBook, actualPage *int, mismatch bool, err error) {
	if doc.Book == nil || doc.Page == nil || *doc.Book <= 0 || *doc.Page <= 0 {
		return "", nil, nil, false, classErr(ClassInvalidRecord,
			fmt.Errorf("missing book/page locator"))
	}
	if p == portal.New {
		return "", nil, nil, false, classErr(ClassExcludedPortal,
			fmt.Errorf("book %d served by the NEW portal", *doc.Book))
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return "", nil, nil, false, classErr(ClassNetwork, err)
	}

	res, err := w.fetch(ctx, doc)
	if err != nil {
		return "", nil, nil, false, err
	}
	actualBook, actualPage = res.Meta.Book, res.Meta.Page
	mismatch = locatorMismatch(doc, res.Meta)
	if mismatch {
		metrics.IncMismatch()
		log.Warn().
			Int64("doc_id", doc.ID).
			Int("book", *doc.Book).Int("page", *doc.Page).
			Interface("actual_book", actualBook).
			Interface("actual_page", actualPage).
			Msg("portal reported different book/page")
	}

	localPath, err := w.writeTemp(doc.ID, res.PDF)
	if err != nil {
		return "", nil, nil, false, classErr(ClassInvalidResponse, err)
	}
	defer os.Remove(localPath)

	opt, err := w.optimizer.Optimize(ctx, localPath)
	if err != nil {
		return "", nil, nil, false, classErr(ClassOptimizerFailure, err)
	}
	metrics.AddOptimizerSavings(opt.OriginalSize, opt.OptimizedSize)

	gcsPath, err = w.archiver.Upload(ctx, doc, localPath, opt.OriginalSize, opt.OptimizedSize)
	if err != nil {
		return "", nil, nil, false, classErr(ClassUploadFailure, err)
	}
	metrics.AddArchivedBytes(opt.OptimizedSize)
	w.stats.Completed(opt.OriginalSize, opt.OptimizedSize, mismatch)
	return gcsPath, actualBook, actualPage, mismatch, nil
}

// fetch prefers the instrument-number lookup, the portal's primary key,
// and falls back to book/page when the instrument is missing or the portal
// does not know it.
func (w *Worker) fetch(ctx context.Context, doc *index.Document) (*portal.Result, error) {
	if doc.InstrumentNumber != nil {
		res, err := w.fetcher.FetchByInstrument(ctx, *doc.InstrumentNumber)
		if err == nil {
			return res, nil
		}
		switch portal.KindOf(err) {
		case portal.KindNotFound, portal.KindNoImageAvailable:
			log.Debug().Int64("doc_id", doc.ID).
				Int64("instrument", *doc.InstrumentNumber).
				Msg("instrument lookup empty, falling back to book/page")
		default:
			return nil, err
		}
	}
	return w.fetcher.FetchByBookPage(ctx, *doc.Book, *doc.Page)
}

func locatorMismatch(doc *index.Document, meta portal.Metadata) bool {
	if meta.Book != nil && doc.Book != nil && *meta.Book != *doc.Book {
		return true
	}
	if meta.Page != nil && doc.Page != nil && *meta.Page != *doc.Page {
		return true
	}
	return false
}

func (w *Worker) writeTemp(id int64, pdf []byte) (string, error) {
	if err := os.MkdirAll(w.downloadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.downloadDir, fmt.Sprintf("doc_%d.pdf", id))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// dispose applies the error policy to a claimed document. Status writes
// run on a detached context so a shutdown mid-failure still records the
// outcome instead of leaving the row in_progress for the stale sweeper.
func (w *Worker) dispose(ctx context.Context, doc *index.Document, p portal.Portal, err error) {
	class := Classify(err)
	pol := PolicyFor(class)
	metrics.IncFetchError(string(class))

	wctx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if pol.Skip {
		if serr := w.queue.MarkSkipped(wctx, doc.ID, err.Error()); serr != nil {
			log.Error().Err(serr).Int64("doc_id", doc.ID).Msg("mark skipped failed")
			return
		}
		w.stats.Skipped(class)
		metrics.ObserveDownload(string(p), "skipped", 0)
		log.Warn().Err(err).Int64("doc_id", doc.ID).Str("class", string(class)).Msg("document skipped")
		return
	}

	status, serr := w.queue.MarkFailed(wctx, doc.ID, err.Error(), pol.Retry)
	if serr != nil {
		log.Error().Err(serr).Int64("doc_id", doc.ID).Msg("mark failed failed")
		return
	}
	willRetry := status == index.StatusPending
	w.stats.Failed(class, willRetry)
	if !willRetry {
		metrics.ObserveDownload(string(p), "failed", 0)
	}
	log.Warn().Err(err).
		Int64("doc_id", doc.ID).
		Str("class", string(class)).
		Bool("will_retry", willRetry).
		Msg("document download failed")
}
