// Package archive stores downloaded documents in Google Cloud Storage
// under deterministic keys so re-runs converge instead of duplicating.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/local/titleplant/internal/config"
	"github.com/local/titleplant/internal/index"
)

const (
	checksumKey    = "sha256"
	uploadAttempts = 3
)

// Manager uploads optimized PDFs to the archive bucket.
type Manager struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

// New builds an archive manager. Credentials come from the configured
// service-account file, or application default credentials when unset.
func New(ctx context.Context, cfg config.GCSConfig) (*Manager, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Manager{client: client, bucket: cfg.BucketName, timeout: timeout}, nil
}

// Close releases the storage client.
func (m *Manager) Close() error { return m.client.Close() }

// Ping verifies the bucket exists and is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	_, err := m.client.Bucket(m.bucket).Attrs(ctx)
	return err
}

// Upload stores the PDF at localPath under the document's canonical key
// and returns its gs:// URI, which the index records as gcs_path. Uploads
// are idempotent: when the object already exists with the same content
// checksum the upload is skipped. Transient failures retry with backoff
// inside the configured deadline.
func (m *Manager) Upload(ctx context.Context, doc *index.Document, localPath string, originalSize, optimizedSize int64) (string, error) {
	key := ObjectPath(doc)

	sum, err := fileChecksum(localPath)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", localPath, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	obj := m.client.Bucket(m.bucket).Object(key)
	if attrs, err := obj.Attrs(ctx); err == nil {
		if attrs.Metadata[checksumKey] == sum {
			log.Debug().Str("gcs_path", m.uri(key)).Msg("object already archived, skipping upload")
			return m.uri(key), nil
		}
	} else if !errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("check existing object %s: %w", key, err)
	}

	meta := ObjectMetadata(doc, originalSize, optimizedSize)
	meta[checksumKey] = sum

	err = retry.Do(
		func() error { return m.write(ctx, obj, localPath, meta) },
		retry.Context(ctx),
		retry.Attempts(uploadAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return m.uri(key), nil
}

// uri resolves an object key to its gs:// address.
func (m *Manager) uri(key string) string {
	return fmt.Sprintf("gs://%s/%s", m.bucket, key)
}

func (m *Manager) write(ctx context.Context, obj *storage.ObjectHandle, localPath string, meta map[string]string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := obj.NewWriter(ctx)
	w.ContentType = "application/pdf"
	w.Metadata = meta
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
