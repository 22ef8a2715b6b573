package index

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Skip reasons written to download_error during cleaning. Cleaning and
// re-cleaning look for these exact strings, so they must stay stable.
const (
	skipInvalidBookPage = "Invalid book/page data"
	skipNewPortal       = "NEW portal excluded from Phase 1 (book >= 3972)"
	skipDuplicate       = "Duplicate book/page (newer record)"
)

// CleanReport summarizes one cleaning pass.
type CleanReport struct {
	InvalidBookPage int64 `json:"invalid_book_page"`
	ExcludedPortal  int64 `json:"excluded_portal"`
	Duplicates      int64 `json:"duplicates"`
	Prioritized     int64 `json:"prioritized"`
	DryRun          bool  `json:"dry_run"`
}

// Clean prepares the raw imported index for downloading: it skips unusable
// and out-of-scope rows, collapses duplicates and assigns download
// priorities. Every pass only touches pending rows, so running it again
// after new imports (or twice in a row) converges to the same state.
//
// With dryRun the report carries the counts each pass would touch and
// nothing is written.
func (s *Store) Clean(ctx context.Context, dryRun bool) (CleanReport, error) {
	rep := CleanReport{DryRun: dryRun}
	var err error

	if rep.InvalidBookPage, err = s.skipInvalidBookPage(ctx, dryRun); err != nil {
		return rep, err
	}
	if rep.ExcludedPortal, err = s.skipExcludedPortal(ctx, dryRun); err != nil {
		return rep, err
	}
	if rep.Duplicates, err = s.skipDuplicates(ctx, dryRun); err != nil {
		return rep, err
	}
	if rep.Prioritized, err = s.assignPriorities(ctx, dryRun); err != nil {
		return rep, err
	}

	log.Info().
		Int64("invalid_book_page", rep.InvalidBookPage).
		Int64("excluded_portal", rep.ExcludedPortal).
		Int64("duplicates", rep.Duplicates).
		Int64("prioritized", rep.Prioritized).
		Bool("dry_run", dryRun).
		Msg("index cleaning finished")
	return rep, nil
}

// skipInvalidBookPage removes rows that cannot be looked up on any portal:
// missing or non-positive book or page.
func (s *Store) skipInvalidBookPage(ctx context.Context, dryRun bool) (int64, error) {
	where := `download_status = 'pending'
		  AND (book IS NULL OR page IS NULL OR book <= 0 OR page <= 0)`
	if dryRun {
		return s.countWhere(ctx, where)
	}
	tag, err := s.db.Exec(ctx, fmt.Sprintf(`
		UPDATE index_documents
		SET download_status = 'skipped',
		    download_error = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE %s`, where), skipInvalidBookPage)
	if err != nil {
		return 0, fmt.Errorf("skip invalid book/page: %w", err)
	}
	return tag.RowsAffected(), nil
}

// skipExcludedPortal removes NEW-portal rows (book >= 3972); those need a
// browser session and are out of scope for this phase.
func (s *Store) skipExcludedPortal(ctx context.Context, dryRun bool) (int64, error) {
	where := `download_status = 'pending' AND book >= 3972`
	if dryRun {
		return s.countWhere(ctx, where)
	}
	tag, err := s.db.Exec(ctx, fmt.Sprintf(`
		UPDATE index_documents
		SET download_status = 'skipped',
		    download_error = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE %s`, where), skipNewPortal)
	if err != nil {
		return 0, fmt.Errorf("skip excluded portal: %w", err)
	}
	return tag.RowsAffected(), nil
}

// dupRankedSQL ranks pending rows within each (book, page, source) group.
// Rank 1 is the earliest record by file_date, ties broken by import_date,
// with undated rows last; that row survives deduplication.
const dupRankedSQL = `
	SELECT id, ROW_NUMBER() OVER (
		PARTITION BY book, page, source
		ORDER BY file_date NULLS LAST, import_date
	) AS rn
	FROM index_documents
	WHERE download_status = 'pending'`

// skipDuplicates keeps exactly one pending row per (book, page, source): the
// earliest-dated record. The rest are skipped, which also frees the partial
// unique index for future imports of the same locator.
func (s *Store) skipDuplicates(ctx context.Context, dryRun bool) (int64, error) {
	ranked := dupRankedSQL
	if dryRun {
		var n int64
		err := s.db.QueryRow(ctx, fmt.Sprintf(
			`SELECT COUNT(*) FROM (%s) ranked WHERE rn > 1`, ranked)).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("count duplicates: %w", err)
		}
		return n, nil
	}
	tag, err := s.db.Exec(ctx, fmt.Sprintf(`
		UPDATE index_documents
		SET download_status = 'skipped',
		    download_error = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id IN (SELECT id FROM (%s) ranked WHERE rn > 1)`, ranked),
		skipDuplicate)
	if err != nil {
		return 0, fmt.Errorf("skip duplicates: %w", err)
	}
	return tag.RowsAffected(), nil
}

// assignPriorities stamps download_priority on pending rows:
//
//	1  wills and testaments (any book)
//	2  historical portal (book < 238)
//	3  mid portal (238 <= book < 3972)
//	4  everything else
//
// Priorities are recomputed for every pending row each run so late
// classification fixes propagate.
func (s *Store) assignPriorities(ctx context.Context, dryRun bool) (int64, error) {
	if dryRun {
		return s.countWhere(ctx, `download_status = 'pending'`)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE index_documents
		SET download_priority = CASE
		        WHEN document_type = 'LAST_WILL_AND_TESTAMENT'
		          OR instrument_type_parsed ILIKE '%WILL%'
		          OR instrument_type_parsed ILIKE '%TESTAMENT%' THEN 1
		        WHEN book < 238 THEN 2
		        WHEN book >= 238 AND book < 3972 THEN 3
		        ELSE 4
		    END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE download_status = 'pending'`)
	if err != nil {
		return 0, fmt.Errorf("assign priorities: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) countWhere(ctx context.Context, where string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM index_documents WHERE %s`, where)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
