package index

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Migrate creates the index_documents table and its indexes if they do not
// exist. Bulk ingest targets the same schema; re-running is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS index_documents (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			source_file TEXT,

			gin BIGINT,
			instrument_number BIGINT,
			book_volume TEXT,
			book INTEGER,
			page INTEGER,

			instrument_type_raw TEXT,
			instrument_type_parsed TEXT,
			document_type TEXT,

			file_date TIMESTAMPTZ,
			num_pages INTEGER,
			party_type TEXT,
			party_seq INTEGER,
			searched_name TEXT,
			cross_party_name TEXT,
			grantor_party TEXT,
			grantee_party TEXT,

			description TEXT,
			location TEXT,
			direction TEXT,
			legals TEXT,
			sub_div TEXT,
			block TEXT,
			lot TEXT,
			sec INTEGER,
			town TEXT,
			rng TEXT,
			square TEXT,
			remarks TEXT,

			ne_of_ne BOOLEAN, nw_of_ne BOOLEAN, sw_of_ne BOOLEAN, se_of_ne BOOLEAN,
			ne_of_nw BOOLEAN, nw_of_nw BOOLEAN, sw_of_nw BOOLEAN, se_of_nw BOOLEAN,
			ne_of_sw BOOLEAN, nw_of_sw BOOLEAN, sw_of_sw BOOLEAN, se_of_sw BOOLEAN,
			ne_of_se BOOLEAN, nw_of_se BOOLEAN, sw_of_se BOOLEAN, se_of_se BOOLEAN,

			address TEXT,
			street_name TEXT,
			city TEXT,
			zip TEXT,
			parcel_num TEXT,
			parcel_id TEXT,
			ppin TEXT,
			patent_num TEXT,

			download_status TEXT NOT NULL DEFAULT 'pending',
			download_priority INTEGER,
			download_attempts INTEGER NOT NULL DEFAULT 0,
			download_error TEXT,
			downloaded_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			import_date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			gcs_path TEXT,
			actual_book INTEGER,
			actual_page INTEGER,
			book_page_mismatch BOOLEAN NOT NULL DEFAULT FALSE,

			related_items_raw TEXT,
			related_items JSONB
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_index_documents_book_page_source
			ON index_documents (book, page, source)
			WHERE download_status != 'skipped'`,
		`CREATE INDEX IF NOT EXISTS idx_index_documents_status
			ON index_documents (download_status)`,
		`CREATE INDEX IF NOT EXISTS idx_index_documents_queue
			ON index_documents (download_status, download_priority, book, page)`,
		`CREATE INDEX IF NOT EXISTS idx_index_documents_instrument
			ON index_documents (instrument_number)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate index_documents: %w", err)
		}
	}
	log.Debug().Msg("index_documents schema ensured")
	return nil
}
