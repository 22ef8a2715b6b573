package portal

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// stitch merges per-sheet PDFs into one document, preserving order. The
// mid portal serves one PDF per scanned sheet; the merged file is what the
// archive stores. A single input passes through untouched.
func stitch(pdfs [][]byte) ([]byte, error) {
	if len(pdfs) == 0 {
		return nil, fmt.Errorf("no PDFs to merge")
	}
	if len(pdfs) == 1 {
		return pdfs[0], nil
	}

	readers := make([]io.ReadSeeker, len(pdfs))
	for i, p := range pdfs {
		readers[i] = bytes.NewReader(p)
	}
	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, nil); err != nil {
		return nil, fmt.Errorf("merge %d PDFs: %w", len(pdfs), err)
	}
	return out.Bytes(), nil
}
