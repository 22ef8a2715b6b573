package portal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/local/titleplant/internal/config"
)

const (
	searchPath = "/elected-offices/chancery-clerk/court-house-search/drupal-deed-record-lookup.php"
	imagePath  = "/elected-offices/chancery-clerk/court-house-search/pdf-records.php"

	// maxBodyBytes caps a single portal response. Scanned deed books run
	// tens of MB at most.
	maxBodyBytes = 256 << 20
)

// Metadata is what the portal result page reports about a document.
type Metadata struct {
	Grantor string
	Grantee string
	Nature  string
	Book    *int
	Page    *int
}

// Result is one fetched document: the PDF bytes plus whatever metadata the
// result page carried. Direct-PDF responses have empty metadata. Images is
// the number of portal images merged into the PDF (1 for a single image).
type Result struct {
	PDF    []byte
	Meta   Metadata
	Images int
}

// Client talks to the county record-lookup portals. A single client covers
// both the historical and mid ranges; the search endpoint is shared and
// only the result-page layout differs. Safe for concurrent use.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
}

// NewClient builds a portal client from config. The portal rejects
// requests without a browser-looking User-Agent, so one is always sent.
func NewClient(cfg config.PortalConfig) *Client {
	return &Client{
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
	}
}

// searchParams returns the full parameter set the lookup form posts. Every
// field must be present, even when empty; the PHP endpoint 500s otherwise.
func searchParams() url.Values {
	v := url.Values{}
	for _, k := range []string{
		"grantor", "doc_type", "book", "bpage",
		"month", "day", "year",
		"thru_month", "thru_day", "thru_year",
		"section", "township", "range", "code", "lot",
		"iyear", "instrument",
	} {
		v.Set(k, "")
	}
	v.Set("do_search", "Submit Query")
	return v
}

// FetchByInstrument looks a document up by instrument number.
func (c *Client) FetchByInstrument(ctx context.Context, instrument int64) (*Result, error) {
	params := searchParams()
	params.Set("instrument", strconv.FormatInt(instrument, 10))
	return c.search(ctx, params, fmt.Sprintf("instrument %d", instrument))
}

// FetchByBookPage looks a document up by its book and page locator.
func (c *Client) FetchByBookPage(ctx context.Context, book, page int) (*Result, error) {
	params := searchParams()
	params.Set("book", strconv.Itoa(book))
	params.Set("bpage", strconv.Itoa(page))
	return c.search(ctx, params, fmt.Sprintf("book %d page %d", book, page))
}

func (c *Client) search(ctx context.Context, params url.Values, desc string) (*Result, error) {
	body, contentType, err := c.get(ctx, c.baseURL+searchPath+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	// Some lookups skip the result page and stream the PDF directly.
	if isPDF(contentType, body) {
		log.Debug().Str("lookup", desc).Msg("portal returned PDF directly")
		return &Result{PDF: body, Images: 1}, nil
	}

	page, err := parseResultPage(body)
	if err != nil {
		return nil, err
	}
	if len(page.ImageIDs) == 0 {
		return nil, &FetchError{
			Kind: KindNoImageAvailable,
			Msg:  fmt.Sprintf("no image for %s", desc),
			Meta: page.Meta,
		}
	}

	pdfs := make([][]byte, 0, len(page.ImageIDs))
	for _, id := range page.ImageIDs {
		pdf, err := c.fetchImage(ctx, id)
		if err != nil {
			return nil, err
		}
		pdfs = append(pdfs, pdf)
	}

	merged, err := stitch(pdfs)
	if err != nil {
		return nil, fetchErr(KindInvalidResponse, "merge portal images", err)
	}
	return &Result{PDF: merged, Meta: page.Meta, Images: len(pdfs)}, nil
}

// fetchImage downloads one portal image and verifies it is a PDF.
func (c *Client) fetchImage(ctx context.Context, imageID string) ([]byte, error) {
	u := c.baseURL + imagePath + "?image=" + url.QueryEscape(imageID)
	body, contentType, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if !isPDF(contentType, body) {
		detected := mimetype.Detect(body)
		return nil, fetchErrf(KindInvalidResponse,
			"image %s is not a PDF (content-type %q, detected %s)",
			imageID, contentType, detected)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (body []byte, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fetchErr(KindInvalidResponse, "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", wrapTransport("portal request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", fetchErrf(KindNotFound, "portal returned 404 for %s", rawURL)
	case resp.StatusCode != http.StatusOK:
		return nil, "", fetchErrf(KindInvalidResponse, "portal returned %d for %s", resp.StatusCode, rawURL)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", wrapTransport("read portal response", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// isPDF accepts either a PDF content type or PDF magic bytes; the portal
// is inconsistent about headers.
func isPDF(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF-"))
}
