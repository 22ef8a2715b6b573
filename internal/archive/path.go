package archive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/local/titleplant/internal/index"
)

// Tier is the archive folder tier a book lands in. Historical and mid-era
// books are split so bucket listings stay browsable per digitization era.
type Tier string

const (
	TierHistorical Tier = "historical"
	TierMidEarly   Tier = "mid-early"
	TierMidRecent  Tier = "mid-recent"
)

// TierFor maps a book number to its archive tier.
func TierFor(book int) Tier {
	switch {
	case book < 238:
		return TierHistorical
	case book < 1000:
		return TierMidEarly
	default:
		return TierMidRecent
	}
}

// ObjectPath builds the canonical archive key for a document:
//
//	documents/{tier}/{doc-type}/{book:04d}-{page:04d}.pdf
//
// The doc-type segment is the lower-kebab form of the document type, with
// "unknown" for unclassified rows, so NULL metadata still yields a stable
// deterministic key.
func ObjectPath(doc *index.Document) string {
	book, page := 0, 0
	if doc.Book != nil {
		book = *doc.Book
	}
	if doc.Page != nil {
		page = *doc.Page
	}
	return fmt.Sprintf("documents/%s/%s/%04d-%04d.pdf",
		TierFor(book), typeSegment(doc), book, page)
}

func typeSegment(doc *index.Document) string {
	return strings.ToLower(strings.ReplaceAll(string(doc.DocType()), "_", "-"))
}

// ObjectMetadata builds the custom metadata stored alongside the object.
// Every key is always present; optional fields degrade to "0" or empty so
// downstream consumers never branch on key existence.
func ObjectMetadata(doc *index.Document, originalSize, optimizedSize int64) map[string]string {
	book, page := 0, 0
	if doc.Book != nil {
		book = *doc.Book
	}
	if doc.Page != nil {
		page = *doc.Page
	}
	instrument := "0"
	if doc.InstrumentNumber != nil {
		instrument = strconv.FormatInt(*doc.InstrumentNumber, 10)
	}
	instrumentType := ""
	if doc.InstrumentTypeParsed != nil {
		instrumentType = *doc.InstrumentTypeParsed
	}
	return map[string]string{
		"book":              strconv.Itoa(book),
		"page":              strconv.Itoa(page),
		"instrument_number": instrument,
		"document_type":     strings.ToLower(string(doc.DocType())),
		"instrument_type":   instrumentType,
		"original_size":     strconv.FormatInt(originalSize, 10),
		"optimized_size":    strconv.FormatInt(optimizedSize, 10),
	}
}
