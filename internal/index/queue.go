package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxAttempts is the number of download attempts before a record lands in
// the terminal failed state.
const MaxAttempts = 5

// DefaultStaleThreshold is how long a record may sit in_progress before
// ResetStale returns it to pending.
const DefaultStaleThreshold = 30 * time.Minute

// bookRange is a half-open [Min, Max) book interval.
type bookRange struct {
	Min, Max int
}

// Stage fixes a queue predicate and an overall item cap for one download run.
type Stage struct {
	Name        string
	Description string
	// Limit caps the number of items processed in the run; 0 means no cap.
	Limit int
	// Priorities filters download_priority; empty means any.
	Priorities []int
	// BookRanges filters book; empty means all books.
	BookRanges []bookRange
	// RetryFailed selects terminal-failed rows (re-queued before fetch)
	// instead of pending ones.
	RetryFailed bool
}

// Stages is the closed set of download stages.
var Stages = map[string]Stage{
	"test": {
		Name:        "test",
		Description: "Validate infrastructure with minimal documents",
		Limit:       20,
		BookRanges:  []bookRange{{1, 50}, {238, 300}},
	},
	"historical-all": {
		Name:        "historical-all",
		Description: "All historical-portal documents (book < 238)",
		BookRanges:  []bookRange{{1, 238}},
	},
	"small": {
		Name:        "small",
		Description: "2,000 documents, priority 1 & 2, sample books",
		Limit:       2000,
		Priorities:  []int{1, 2},
		BookRanges:  []bookRange{{1, 50}, {238, 300}},
	},
	"medium": {
		Name:        "medium",
		Description: "50,000 documents: all priority 1 & 2 plus a sample of 3",
		Limit:       50000,
		Priorities:  []int{1, 2, 3},
	},
	"large": {
		Name:        "large",
		Description: "Remaining MID portal documents (priority 3)",
		Priorities:  []int{3},
		BookRanges:  []bookRange{{238, 3972}},
	},
	"retry-failed": {
		Name:        "retry-failed",
		Description: "Retry previously failed downloads",
		RetryFailed: true,
	},
}

// StageNames lists valid stage identifiers for CLI help.
func StageNames() []string {
	names := make([]string, 0, len(Stages))
	for n := range Stages {
		names = append(names, n)
	}
	return names
}

// batchQuery builds the stage's candidate query. Every stage reads pending
// rows; retry-failed additionally demands a prior recorded failure so a
// retry run never drains the untouched backlog.
func batchQuery(stage Stage, limit int, afterID int64) (string, []any) {
	where := []string{"download_status = 'pending'"}
	args := []any{}
	n := 0
	arg := func(v any) string {
		args = append(args, v)
		n++
		return fmt.Sprintf("$%d", n)
	}

	if len(stage.Priorities) > 0 {
		ph := make([]string, len(stage.Priorities))
		for i, p := range stage.Priorities {
			ph[i] = arg(p)
		}
		where = append(where, fmt.Sprintf("download_priority IN (%s)", strings.Join(ph, ",")))
	}
	if len(stage.BookRanges) > 0 {
		conds := make([]string, len(stage.BookRanges))
		for i, r := range stage.BookRanges {
			conds[i] = fmt.Sprintf("(book >= %s AND book < %s)", arg(r.Min), arg(r.Max))
		}
		where = append(where, "("+strings.Join(conds, " OR ")+")")
	}
	if stage.RetryFailed {
		where = append(where,
			"download_attempts > 0",
			"download_error IS NOT NULL",
			fmt.Sprintf("download_attempts < %s", arg(MaxAttempts)))
	}
	if afterID > 0 {
		where = append(where, "id > "+arg(afterID))
	}

	query := fmt.Sprintf(`
		SELECT id, source, book, page,
		       instrument_number, instrument_type_parsed, document_type,
		       download_priority, download_attempts,
		       file_date, grantor_party, grantee_party
		FROM index_documents
		WHERE %s
		ORDER BY download_priority, book, page
		LIMIT %s`, strings.Join(where, " AND "), arg(limit))
	return query, args
}

// FetchNextBatch returns up to limit pending candidates for the stage,
// ordered by (priority, book, page). The read does not claim anything;
// callers must win the MarkInProgress CAS before working a row. afterID
// is the resume cursor (0 for none).
func (s *Store) FetchNextBatch(ctx context.Context, stage Stage, limit int, afterID int64) ([]Document, error) {
	query, args := batchQuery(stage, limit, afterID)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch next batch: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var docType *string
		if err := rows.Scan(&d.ID, &d.Source, &d.Book, &d.Page,
			&d.InstrumentNumber, &d.InstrumentTypeParsed, &docType,
			&d.DownloadPriority, &d.DownloadAttempts,
			&d.FileDate, &d.GrantorParty, &d.GranteeParty); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		if docType != nil {
			dt := DocumentType(*docType)
			d.DocumentType = &dt
		}
		d.DownloadStatus = StatusPending
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// RequeueFailed returns terminal-failed rows with remaining attempts to
// pending. Run once before a retry-failed stage fetches its first batch.
func (s *Store) RequeueFailed(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE index_documents
		SET download_status = 'pending',
		    updated_at = CURRENT_TIMESTAMP
		WHERE download_status = 'failed'
		  AND download_attempts < $1`, MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("requeue failed rows: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkInProgress claims a record for one download attempt. The update is a
// compare-and-swap on the pending status so two workers can never claim the
// same row; it also increments download_attempts. Returns false when the
// claim was lost.
func (s *Store) MarkInProgress(ctx context.Context, id int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE index_documents
		SET download_status = 'in_progress',
		    download_attempts = download_attempts + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		  AND download_status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("mark doc %d in_progress: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted records a successful download: terminal completed status,
// archive path, server-reported locators and the mismatch flag.
func (s *Store) MarkCompleted(ctx context.Context, id int64, gcsPath string, actualBook, actualPage *int, mismatch bool) error {
	_, err := s.db.Exec(ctx, `
		UPDATE index_documents
		SET download_status = 'completed',
		    downloaded_at = CURRENT_TIMESTAMP,
		    gcs_path = $2,
		    actual_book = $3,
		    actual_page = $4,
		    book_page_mismatch = $5,
		    download_error = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, gcsPath, actualBook, actualPage, mismatch)
	if err != nil {
		return fmt.Errorf("mark doc %d completed: %w", id, err)
	}
	return nil
}

// MarkFailed records a failed attempt. With retry and attempts remaining the
// row goes back to pending for a later batch; otherwise it is failed until
// operator intervention. The error string is truncated to 500 chars.
func (s *Store) MarkFailed(ctx context.Context, id int64, errMsg string, retry bool) (Status, error) {
	var status string
	err := s.db.QueryRow(ctx, `
		UPDATE index_documents
		SET download_status = CASE
		        WHEN $2 AND download_attempts < $3 THEN 'pending'
		        ELSE 'failed'
		    END,
		    download_error = $4,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING download_status`, id, retry, MaxAttempts, Truncate(errMsg, 500)).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("mark doc %d failed: %w", id, err)
	}
	if status == string(StatusFailed) {
		log.Warn().Int64("doc_id", id).Msg("document permanently failed")
	}
	return Status(status), nil
}

// MarkSkipped moves a record to the terminal skipped status with a reason.
func (s *Store) MarkSkipped(ctx context.Context, id int64, reason string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE index_documents
		SET download_status = 'skipped',
		    download_error = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, Truncate(reason, 500))
	if err != nil {
		return fmt.Errorf("mark doc %d skipped: %w", id, err)
	}
	return nil
}

// ResetStale returns any record stuck in_progress longer than threshold to
// pending. Run at scheduler startup and periodically for crash recovery.
func (s *Store) ResetStale(ctx context.Context, threshold time.Duration) (int64, error) {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE index_documents
		SET download_status = 'pending',
		    updated_at = CURRENT_TIMESTAMP
		WHERE download_status = 'in_progress'
		  AND updated_at < (CURRENT_TIMESTAMP - make_interval(secs => $1))`,
		threshold.Seconds())
	if err != nil {
		return 0, fmt.Errorf("reset stale in_progress rows: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Info().Int64("count", n).Msg("reset stale in_progress records to pending")
		return n, nil
	}
	return 0, nil
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
