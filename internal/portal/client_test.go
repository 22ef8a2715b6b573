package portal

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/titleplant/internal/config"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.PortalConfig{
		BaseURL:        srv.URL,
		UserAgent:      "test-agent",
		RequestTimeout: 5 * time.Second,
	})
}

func TestFetchByBookPage(t *testing.T) {
	pdfBody := []byte("%PDF-1.4 fake body")

	mux := http.NewServeMux()
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "150", r.URL.Query().Get("book"))
		assert.Equal(t, "42", r.URL.Query().Get("bpage"))
		assert.Equal(t, "Submit Query", r.URL.Query().Get("do_search"))
		// Every form field must be present even when empty.
		assert.True(t, r.URL.Query().Has("instrument"))
		assert.True(t, r.URL.Query().Has("thru_year"))
		w.Write([]byte(singleImagePage))
	})
	mux.HandleFunc(imagePath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "998877", r.URL.Query().Get("image"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdfBody)
	})

	c := testClient(t, mux)
	res, err := c.FetchByBookPage(t.Context(), 150, 42)
	require.NoError(t, err)

	assert.Equal(t, pdfBody, res.PDF)
	assert.Equal(t, 1, res.Images)
	assert.Equal(t, "SMITH JOHN", res.Meta.Grantor)
	require.NotNil(t, res.Meta.Book)
	assert.Equal(t, 150, *res.Meta.Book)
}

func TestFetchByInstrumentParams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20071234567", r.URL.Query().Get("instrument"))
		assert.Equal(t, "", r.URL.Query().Get("book"))
		w.Write([]byte(`<p>No records found</p>`))
	})

	c := testClient(t, mux)
	_, err := c.FetchByInstrument(t.Context(), 20071234567)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestFetchDirectPDFShortCircuit(t *testing.T) {
	pdfBody := []byte("%PDF-1.7 direct")
	mux := http.NewServeMux()
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		// No content-type header at all; magic bytes must be enough.
		w.Write(pdfBody)
	})

	c := testClient(t, mux)
	res, err := c.FetchByBookPage(t.Context(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, res.PDF)
	assert.Empty(t, res.Meta.Grantor)
}

func TestFetchNoImageAvailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<h2>Grantor: SOMEONE</h2>
			<table><tr><td>Book: 9</td><td>Page: 264</td></tr></table>
		</body></html>`))
	})

	c := testClient(t, mux)
	_, err := c.FetchByBookPage(t.Context(), 9, 264)
	require.Error(t, err)
	assert.Equal(t, KindNoImageAvailable, KindOf(err))

	// The metadata the result page did report survives on the error.
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "SOMEONE", fe.Meta.Grantor)
	require.NotNil(t, fe.Meta.Book)
	assert.Equal(t, 9, *fe.Meta.Book)
}

func TestFetchImageNotPDF(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(singleImagePage))
	})
	mux.HandleFunc(imagePath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html>session expired</html>`))
	})

	c := testClient(t, mux)
	_, err := c.FetchByBookPage(t.Context(), 150, 42)
	require.Error(t, err)
	assert.Equal(t, KindInvalidResponse, KindOf(err))
}

func TestFetchPortal404(t *testing.T) {
	c := testClient(t, http.NotFoundHandler())
	_, err := c.FetchByBookPage(t.Context(), 150, 42)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}
