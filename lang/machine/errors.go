package machine

import (
	"fmt"

	"github.com/pkg/errors"
)

// ParseError reports a malformed token stream: mismatched/missing end, an
// opcode table index out of range. Fatal -- aborts the run.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return "parse error: " + e.msg }

func newParseError(format string, args ...any) error {
	return &ParseError{msg: fmt.Sprintf(format, args...)}
}

// TypeError reports an unknown token type surfacing in a cast/promotion
// path. Fatal -- aborts the run.
type TypeError struct {
	msg string
}

func (e *TypeError) Error() string { return "type error: " + e.msg }

func newTypeError(format string, args ...any) error {
	return &TypeError{msg: fmt.Sprintf(format, args...)}
}

// wrapFatal prepends a sweep-identifying context string to an error that
// aborts the interpreter, using github.com/pkg/errors so the original
// cause and a stack trace both survive to the top-level diagnostic.
func wrapFatal(err error, iteration int) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "sweep %d", iteration)
}
