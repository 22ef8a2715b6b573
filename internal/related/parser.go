// Package related parses the free-text cross-reference blocks DuProcess
// attaches to index rows into structured links between documents.
package related

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/titleplant/internal/index"
)

// refRe matches one cross-reference line: an instrument number followed by
// a bk:BOOK/PAGE locator, with loose whitespace around the slash.
var refRe = regexp.MustCompile(`(\d+)\s+bk:(\d+)\s*/\s*(\d+)`)

// DefaultBatchSize is how many rows one pass loads and resolves at a time.
const DefaultBatchSize = 1000

// Ref is one parsed cross-reference before database resolution.
type Ref struct {
	Instrument int64
	Book       int
	Page       int
}

// ParseRaw extracts the cross-references from one raw block. A line can
// carry several references, so the pattern is applied globally per line;
// non-matching text is ignored and repeated references to the same
// (instrument, book, page) collapse to one, first occurrence kept.
func ParseRaw(raw string) []Ref {
	var refs []Ref
	seen := map[Ref]bool{}
	for _, line := range strings.Split(raw, "\n") {
		for _, m := range refRe.FindAllStringSubmatch(line, -1) {
			instr, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			book, _ := strconv.Atoi(m[2])
			page, _ := strconv.Atoi(m[3])
			r := Ref{Instrument: instr, Book: book, Page: page}
			if seen[r] {
				continue
			}
			seen[r] = true
			refs = append(refs, r)
		}
	}
	return refs
}

// Stats summarizes one parsing run.
type Stats struct {
	RowsProcessed int64 `json:"rows_processed"`
	RefsParsed    int64 `json:"refs_parsed"`
	RefsMatched   int64 `json:"refs_matched"`
	RowsNoRefs    int64 `json:"rows_no_refs"`
	DryRun        bool  `json:"dry_run"`
}

// Processor walks all rows with unparsed cross-reference text, resolves
// each reference against the index and writes the result back as JSONB.
type Processor struct {
	store     *index.Store
	batchSize int
}

func NewProcessor(store *index.Store, batchSize int) *Processor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Processor{store: store, batchSize: batchSize}
}

// Run processes every unparsed row in id order. Rows already holding a
// parsed related_items array are never revisited, so interrupted runs
// resume where they stopped. With dryRun nothing is written and the stats
// report what a real run would do.
func (p *Processor) Run(ctx context.Context, dryRun bool) (Stats, error) {
	stats := Stats{DryRun: dryRun}
	var cursor int64

	for {
		batch, err := p.store.FetchRelatedBatch(ctx, cursor, p.batchSize)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			break
		}
		if err := p.processBatch(ctx, batch, dryRun, &stats); err != nil {
			return stats, err
		}
		cursor = batch[len(batch)-1].ID

		log.Info().
			Int64("rows", stats.RowsProcessed).
			Int64("refs", stats.RefsParsed).
			Int64("matched", stats.RefsMatched).
			Msg("related-items progress")
	}
	return stats, nil
}

func (p *Processor) processBatch(ctx context.Context, batch []index.RelatedSource, dryRun bool, stats *Stats) error {
	parsed := make(map[int64][]Ref, len(batch))
	var pairs []index.BookPage
	pairSeen := map[index.BookPage]bool{}

	for _, row := range batch {
		refs := ParseRaw(row.Raw)
		parsed[row.ID] = refs
		for _, r := range refs {
			bp := index.BookPage{Book: r.Book, Page: r.Page}
			if !pairSeen[bp] {
				pairSeen[bp] = true
				pairs = append(pairs, bp)
			}
		}
	}

	found, err := p.store.LookupBookPages(ctx, pairs)
	if err != nil {
		return err
	}

	for _, row := range batch {
		refs := parsed[row.ID]
		items := make([]index.RelatedItem, 0, len(refs))
		for _, r := range refs {
			item := index.RelatedItem{
				InstrumentNumber: r.Instrument,
				Book:             r.Book,
				Page:             r.Page,
			}
			if id, ok := found[index.BookPage{Book: r.Book, Page: r.Page}]; ok {
				item.ExistsInDB = true
				tid := id
				item.TargetID = &tid
				stats.RefsMatched++
			}
			items = append(items, item)
		}
		stats.RowsProcessed++
		stats.RefsParsed += int64(len(refs))
		if len(refs) == 0 {
			stats.RowsNoRefs++
		}
		if dryRun {
			continue
		}
		if err := p.store.SetRelatedItems(ctx, row.ID, items); err != nil {
			return fmt.Errorf("write related items for row %d: %w", row.ID, err)
		}
	}
	return nil
}
