// Package pdfopt shrinks downloaded PDFs before archival. Optimization is
// best-effort: any failure or timeout falls back to the original file, so
// a pathological scan can never block the pipeline.
package pdfopt

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/titleplant/internal/config"
)

// DefaultTimeout bounds one optimization run. County scans are image-heavy
// and the occasional corrupt file can loop inside the parser.
const DefaultTimeout = 120 * time.Second

// Result reports the size effect of one optimization.
type Result struct {
	OriginalSize  int64
	OptimizedSize int64
	// Applied is false when optimization failed or timed out and the
	// original file was kept.
	Applied bool
}

// Optimizer rewrites PDFs in place via pdfcpu.
type Optimizer struct {
	enabled bool
	timeout time.Duration
}

func New(cfg config.OptimizerConfig) *Optimizer {
	t := cfg.Timeout
	if t <= 0 {
		t = DefaultTimeout
	}
	return &Optimizer{enabled: cfg.Enabled, timeout: t}
}

// Optimize rewrites path in place with pdfcpu's optimizer. The write is
// atomic: output goes to a sibling temp file that replaces the original
// only on success. On failure or timeout the original is untouched and the
// result reports Applied=false with equal sizes; the error is logged, not
// returned, because a stored original always beats a lost document.
func (o *Optimizer) Optimize(ctx context.Context, path string) (Result, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat pdf: %w", err)
	}
	res := Result{OriginalSize: fi.Size(), OptimizedSize: fi.Size()}
	if !o.enabled {
		return res, nil
	}

	tmp := path + ".opt"
	done := make(chan error, 1)
	go func() {
		done <- api.OptimizeFile(path, tmp, nil)
	}()

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()
	select {
	case err = <-done:
	case <-timer.C:
		err = fmt.Errorf("optimization exceeded %s", o.timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("pdf optimization failed, keeping original")
		os.Remove(tmp)
		return res, nil
	}

	oi, err := os.Stat(tmp)
	if err != nil {
		os.Remove(tmp)
		return res, nil
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return res, nil
	}
	res.OptimizedSize = oi.Size()
	res.Applied = true
	return res, nil
}
