package statuscheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestSummaryAllHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Options{
		DB:        pinger{},
		Bucket:    pinger{},
		PortalURL: srv.URL,
	})
	s := c.Summary(t.Context())
	assert.True(t, s.Healthy())
	assert.True(t, s.Database.OK)
	assert.True(t, s.Archive.OK)
	assert.True(t, s.Portal.OK)
}

func TestSummaryFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Options{
		DB:        pinger{err: errors.New("connection refused")},
		Bucket:    pinger{},
		PortalURL: srv.URL,
	})
	s := c.Summary(t.Context())
	assert.False(t, s.Healthy())
	assert.False(t, s.Database.OK)
	assert.Contains(t, s.Database.Message, "connection refused")
	assert.False(t, s.Portal.OK)
}

func TestSummaryUnconfigured(t *testing.T) {
	s := New(Options{}).Summary(t.Context())
	assert.False(t, s.Healthy())
	assert.Equal(t, "not configured", s.Database.Message)
	assert.Equal(t, "not configured", s.Portal.Message)
}
