package entigo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/entigo/model"
)

// ValidationError is re-exported from the model package: the planner and the
// clause builder fail with the same error class as model parsing.
type ValidationError = model.ValidationError

// IOError indicates a search backend communication failure.
//
// The underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Index string
	cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("search on index %q failed: %s", e.Index, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }

// IsIOError reports whether err is (or wraps) an IOError.
func IsIOError(err error) bool {
	var ioe *IOError
	return errors.As(err, &ioe)
}
