package index

import (
	"context"
	"fmt"
	"time"
)

// QueueStats is a point-in-time snapshot of the download queue.
type QueueStats struct {
	ByStatus          map[string]int64 `json:"by_status"`
	PendingByPriority map[int]int64    `json:"pending_by_priority"`
	PendingByPortal   map[string]int64 `json:"pending_by_portal"`
	CompletedLastHour int64            `json:"completed_last_hour"`
	Mismatches        int64            `json:"mismatches"`
	TopErrors         []ErrorCount     `json:"top_errors"`
}

// ErrorCount pairs a failure message with how many failed rows carry it.
type ErrorCount struct {
	Error string `json:"error"`
	Count int64  `json:"count"`
}

// Total returns the number of rows across all statuses.
func (q QueueStats) Total() int64 {
	var t int64
	for _, n := range q.ByStatus {
		t += n
	}
	return t
}

// EstimateCompletion projects how long the pending backlog takes at the
// last hour's completion rate. Returns false when there is no recent
// throughput to extrapolate from.
func (q QueueStats) EstimateCompletion() (time.Duration, bool) {
	if q.CompletedLastHour <= 0 {
		return 0, false
	}
	pending := q.ByStatus[string(StatusPending)] + q.ByStatus[string(StatusInProgress)]
	hours := float64(pending) / float64(q.CompletedLastHour)
	return time.Duration(hours * float64(time.Hour)), true
}

// Stats gathers queue statistics for reporting and monitoring.
func (s *Store) Stats(ctx context.Context) (QueueStats, error) {
	st := QueueStats{
		ByStatus:          map[string]int64{},
		PendingByPriority: map[int]int64{},
		PendingByPortal:   map[string]int64{},
	}

	rows, err := s.db.Query(ctx, `
		SELECT download_status, COUNT(*)
		FROM index_documents
		GROUP BY download_status`)
	if err != nil {
		return st, fmt.Errorf("stats by status: %w", err)
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return st, err
		}
		st.ByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	rows, err = s.db.Query(ctx, `
		SELECT COALESCE(download_priority, 0), COUNT(*)
		FROM index_documents
		WHERE download_status = 'pending'
		GROUP BY 1`)
	if err != nil {
		return st, fmt.Errorf("stats by priority: %w", err)
	}
	for rows.Next() {
		var pri int
		var n int64
		if err := rows.Scan(&pri, &n); err != nil {
			rows.Close()
			return st, err
		}
		st.PendingByPriority[pri] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	rows, err = s.db.Query(ctx, `
		SELECT CASE
		        WHEN book < 238 THEN 'historical'
		        WHEN book < 3972 THEN 'mid'
		        ELSE 'new'
		    END AS portal, COUNT(*)
		FROM index_documents
		WHERE download_status = 'pending' AND book IS NOT NULL
		GROUP BY 1`)
	if err != nil {
		return st, fmt.Errorf("stats by portal: %w", err)
	}
	for rows.Next() {
		var portal string
		var n int64
		if err := rows.Scan(&portal, &n); err != nil {
			rows.Close()
			return st, err
		}
		st.PendingByPortal[portal] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM index_documents
		WHERE download_status = 'completed'
		  AND downloaded_at > (CURRENT_TIMESTAMP - INTERVAL '1 hour')`).
		Scan(&st.CompletedLastHour)
	if err != nil {
		return st, fmt.Errorf("stats last hour: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM index_documents
		WHERE book_page_mismatch`).Scan(&st.Mismatches)
	if err != nil {
		return st, fmt.Errorf("stats mismatches: %w", err)
	}

	rows, err = s.db.Query(ctx, `
		SELECT download_error, COUNT(*)
		FROM index_documents
		WHERE download_status = 'failed' AND download_error IS NOT NULL
		GROUP BY download_error
		ORDER BY COUNT(*) DESC
		LIMIT 10`)
	if err != nil {
		return st, fmt.Errorf("stats top errors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ec ErrorCount
		if err := rows.Scan(&ec.Error, &ec.Count); err != nil {
			return st, err
		}
		st.TopErrors = append(st.TopErrors, ec)
	}
	return st, rows.Err()
}

// CompletedSince counts documents completed within the trailing window.
func (s *Store) CompletedSince(ctx context.Context, window time.Duration) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM index_documents
		WHERE download_status = 'completed'
		  AND downloaded_at > (CURRENT_TIMESTAMP - make_interval(secs => $1))`,
		window.Seconds()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recent completions: %w", err)
	}
	return n, nil
}

// Validation reports internal consistency problems in the workflow columns.
type Validation struct {
	CompletedMissingPath int64 `json:"completed_missing_path"`
	ExhaustedFailed      int64 `json:"exhausted_failed"`
	Mismatches           int64 `json:"mismatches"`
}

// Clean reports whether no inconsistencies were found.
func (v Validation) Clean() bool {
	return v.CompletedMissingPath == 0
}

// Validate cross-checks the workflow columns: completed rows must carry an
// archive path, and the failure and mismatch totals are surfaced for
// operator review.
func (s *Store) Validate(ctx context.Context) (Validation, error) {
	var v Validation
	err := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE download_status = 'completed'
				AND (gcs_path IS NULL OR gcs_path = '')),
			COUNT(*) FILTER (WHERE download_status = 'failed'
				AND download_attempts >= $1),
			COUNT(*) FILTER (WHERE book_page_mismatch)
		FROM index_documents`, MaxAttempts).
		Scan(&v.CompletedMissingPath, &v.ExhaustedFailed, &v.Mismatches)
	if err != nil {
		return v, fmt.Errorf("validate workflow columns: %w", err)
	}
	return v, nil
}

// BookGap is a book with index rows but no completed downloads yet.
type BookGap struct {
	Book      int   `json:"book"`
	Pending   int64 `json:"pending"`
	Failed    int64 `json:"failed"`
	Completed int64 `json:"completed"`
}

// Gaps lists books where completion lags: every book that still has
// pending or failed rows, with its per-status counts, ordered by book.
func (s *Store) Gaps(ctx context.Context) ([]BookGap, error) {
	rows, err := s.db.Query(ctx, `
		SELECT book,
		       COUNT(*) FILTER (WHERE download_status = 'pending'),
		       COUNT(*) FILTER (WHERE download_status = 'failed'),
		       COUNT(*) FILTER (WHERE download_status = 'completed')
		FROM index_documents
		WHERE book IS NOT NULL
		GROUP BY book
		HAVING COUNT(*) FILTER (WHERE download_status IN ('pending', 'failed')) > 0
		ORDER BY book`)
	if err != nil {
		return nil, fmt.Errorf("book gaps: %w", err)
	}
	defer rows.Close()

	var gaps []BookGap
	for rows.Next() {
		var g BookGap
		if err := rows.Scan(&g.Book, &g.Pending, &g.Failed, &g.Completed); err != nil {
			return nil, err
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}
