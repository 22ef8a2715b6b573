package pipeline

import (
	"errors"
	"fmt"

	"github.com/local/titleplant/internal/portal"
)

// Class buckets every failure a download can hit. The class, not the error
// text, decides whether a document is retried, failed or skipped.
type Class string

const (
	ClassTimeout          Class = "timeout"
	ClassNetwork          Class = "network"
	ClassNotFound         Class = "not_found"
	ClassInvalidResponse  Class = "invalid_response"
	ClassNoImageAvailable Class = "no_image_available"
	ClassParseError       Class = "parse_error"
	ClassOptimizerFailure Class = "optimizer_failure"
	ClassUploadFailure    Class = "upload_failure"
	ClassDBError          Class = "db_error"
	ClassDuplicate        Class = "duplicate"
	ClassInvalidRecord    Class = "invalid_record"
	ClassExcludedPortal   Class = "excluded_portal"
)

// Policy is what the queue does with a document after a failure of a class.
type Policy struct {
	// Retry returns the document to pending while attempts remain.
	Retry bool
	// Skip moves the document to the terminal skipped status instead of
	// failed; used for rows that should never have reached a worker.
	Skip bool
}

// policies is the full disposition table. Transient transport and
// infrastructure failures retry; portal answers that will not change on a
// second ask fail permanently; structural exclusions skip.
var policies = map[Class]Policy{
	ClassTimeout:          {Retry: true},
	ClassNetwork:          {Retry: true},
	ClassInvalidResponse:  {Retry: true},
	ClassUploadFailure:    {Retry: true},
	ClassDBError:          {Retry: true},
	ClassNotFound:         {},
	ClassNoImageAvailable: {},
	ClassParseError:       {},
	ClassOptimizerFailure: {},
	ClassDuplicate:        {Skip: true},
	ClassInvalidRecord:    {Skip: true},
	ClassExcludedPortal:   {Skip: true},
}

// PolicyFor returns the disposition for a class. Unknown classes retry,
// the conservative default.
func PolicyFor(c Class) Policy {
	if p, ok := policies[c]; ok {
		return p
	}
	return Policy{Retry: true}
}

// stageError tags an error with the pipeline stage that produced it so
// classification does not depend on error text.
type stageError struct {
	class Class
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.class, e.err) }
func (e *stageError) Unwrap() error { return e.err }

func classErr(c Class, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{class: c, err: err}
}

// Classify maps any pipeline error to its class. Portal errors carry their
// own kind; stage-tagged errors carry their class; anything else counts as
// a network failure, the retryable bucket.
func Classify(err error) Class {
	var se *stageError
	if errors.As(err, &se) {
		return se.class
	}
	var fe *portal.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case portal.KindTimeout:
			return ClassTimeout
		case portal.KindNotFound:
			return ClassNotFound
		case portal.KindInvalidResponse:
			return ClassInvalidResponse
		case portal.KindNoImageAvailable:
			return ClassNoImageAvailable
		case portal.KindParseError:
			return ClassParseError
		default:
			return ClassNetwork
		}
	}
	return ClassNetwork
}
