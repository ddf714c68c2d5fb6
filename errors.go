package qb

import (
	"errors"
	"fmt"
)

// StatementError reports an invalid statement composition: a duplicate
// alias, an unbalanced condition block, a missing clause, or a malformed
// argument. The first error recorded by a builder sticks and is returned
// by Assemble.
type StatementError struct {
	msg string
}

func (e *StatementError) Error() string { return e.msg }

func errStatement(format string, args ...any) error {
	return &StatementError{msg: fmt.Sprintf(format, args...)}
}

// IsStatementError reports whether err is a StatementError.
func IsStatementError(err error) bool {
	var se *StatementError
	return errors.As(err, &se)
}
