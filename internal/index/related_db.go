package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// RelatedSource is a row whose cross-reference text still needs parsing.
type RelatedSource struct {
	ID  int64
	Raw string
}

// FetchRelatedBatch returns rows with unparsed cross-reference text,
// ordered by id for cursor-based batching. Rows whose related_items is
// already populated are excluded, which is what makes re-runs idempotent.
func (s *Store) FetchRelatedBatch(ctx context.Context, afterID int64, limit int) ([]RelatedSource, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, related_items_raw
		FROM index_documents
		WHERE related_items_raw IS NOT NULL
		  AND related_items_raw != ''
		  AND related_items IS NULL
		  AND id > $1
		ORDER BY id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch related batch: %w", err)
	}
	defer rows.Close()

	var out []RelatedSource
	for rows.Next() {
		var r RelatedSource
		if err := rows.Scan(&r.ID, &r.Raw); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BookPage is a (book, page) locator used for bulk lookups.
type BookPage struct {
	Book, Page int
}

// LookupBookPages resolves locators to row ids in one query. When several
// rows share a locator (skipped duplicates keep theirs) the lowest id wins,
// matching the survivor the cleaner keeps.
func (s *Store) LookupBookPages(ctx context.Context, pairs []BookPage) (map[BookPage]int64, error) {
	found := make(map[BookPage]int64, len(pairs))
	if len(pairs) == 0 {
		return found, nil
	}

	values := make([]string, len(pairs))
	args := make([]any, 0, len(pairs)*2)
	for i, p := range pairs {
		values[i] = fmt.Sprintf("($%d::int, $%d::int)", i*2+1, i*2+2)
		args = append(args, p.Book, p.Page)
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT book, page, MIN(id)
		FROM index_documents
		WHERE (book, page) IN (VALUES %s)
		GROUP BY book, page`, strings.Join(values, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("lookup book/pages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p BookPage
		var id int64
		if err := rows.Scan(&p.Book, &p.Page, &id); err != nil {
			return nil, err
		}
		found[p] = id
	}
	return found, rows.Err()
}

// SetRelatedItems writes the parsed cross-references back as JSONB. An
// empty slice is stored as [] rather than NULL so the row is not picked up
// again by the next parsing run.
func (s *Store) SetRelatedItems(ctx context.Context, id int64, items []RelatedItem) error {
	if items == nil {
		items = []RelatedItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal related items: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		UPDATE index_documents
		SET related_items = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, payload)
	if err != nil {
		return fmt.Errorf("set related items for %d: %w", id, err)
	}
	return nil
}
