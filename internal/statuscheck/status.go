package statuscheck

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DBPinger models the minimal database capability needed for status checks.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// BucketPinger models archive-bucket reachability.
type BucketPinger interface {
	Ping(ctx context.Context) error
}

// Checker aggregates health checks for the pipeline's external dependencies.
type Checker struct {
	db         DBPinger
	bucket     BucketPinger
	portalURL  string
	userAgent  string
	httpClient *http.Client
}

// Options configures the Checker.
type Options struct {
	DB         DBPinger
	Bucket     BucketPinger
	PortalURL  string
	UserAgent  string
	HTTPClient *http.Client
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Database Status `json:"database"`
	Archive  Status `json:"archive"`
	Portal   Status `json:"portal"`
}

// Healthy reports whether every subsystem is up.
func (s Summary) Healthy() bool {
	return s.Database.OK && s.Archive.OK && s.Portal.OK
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Checker{
		db:         opts.DB,
		bucket:     opts.Bucket,
		portalURL:  opts.PortalURL,
		userAgent:  opts.UserAgent,
		httpClient: client,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Database: c.checkDB(ctx),
		Archive:  c.checkBucket(ctx),
		Portal:   c.checkPortal(ctx),
	}
}

func (c *Checker) checkDB(ctx context.Context) Status {
	if c.db == nil {
		return Status{Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.db.Ping(ctx); err != nil {
		return Status{Message: err.Error()}
	}
	return Status{OK: true, Message: "connected"}
}

func (c *Checker) checkBucket(ctx context.Context) Status {
	if c.bucket == nil {
		return Status{Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.bucket.Ping(ctx); err != nil {
		return Status{Message: err.Error()}
	}
	return Status{OK: true, Message: "bucket reachable"}
}

func (c *Checker) checkPortal(ctx context.Context) Status {
	if c.portalURL == "" {
		return Status{Message: "not configured"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.portalURL, nil)
	if err != nil {
		return Status{Message: err.Error()}
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return Status{Message: fmt.Sprintf("portal returned %d", resp.StatusCode)}
	}
	return Status{OK: true, Message: fmt.Sprintf("portal returned %d", resp.StatusCode)}
}
