package db

import (
	"errors"
	"testing"
)

func TestError_WrapsOp(t *testing.T) {
	inner := errors.New("connection reset")
	err := &Error{Op: OpIncrBy, Err: inner}

	if err.Error() != "INCRBY: connection reset" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to reach the wrapped error")
	}

	var dbErr *Error
	if !errors.As(error(err), &dbErr) || dbErr.Op != OpIncrBy {
		t.Errorf("errors.As failed: %v", dbErr)
	}
}
