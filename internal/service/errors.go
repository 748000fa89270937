package service

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

var (
	ErrInvalidToken         = errors.New("application token is not valid")
	ErrDocumentTypeMismatch = errors.New("document type does not belong to the application")
	ErrDuplicateKey         = errors.New("a live document with the same keys already exists")
	ErrReplaceNotAllowed    = errors.New("cannot replace the old document")
	ErrNotFound             = errors.New("document not found")
	ErrAccessDenied         = errors.New("application may not access this document")
	ErrUnknownStorageNode   = errors.New("unknown storage node")
	ErrInvalidUpload        = errors.New("invalid upload")
	ErrNodeNotLocal         = errors.New("storage node is not on this host")
	ErrNoLocalHost          = errors.New("no server host matches this machine")
)

// OpError is the failure result of an engine operation. Msg is a human-readable summary;
// Err keeps the cause chain so callers can match sentinels with errors.Is.
type OpError struct {
	Op  string
	Msg string
	Err error
}

func (e *OpError) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return e.Op + ": failed"
	case e.Msg == "":
		return e.Op + ": " + e.Err.Error()
	case e.Err == nil:
		return e.Op + ": " + e.Msg
	default:
		return e.Op + ": " + e.Msg + ": " + e.Err.Error()
	}
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op, msg string, err error) error {
	var oe *OpError
	if errors.As(err, &oe) && oe.Op == op {
		return err
	}
	return &OpError{Op: op, Msg: msg, Err: err}
}

// recoverOp turns a panic inside op into an OpError. Use with a named error result:
//
//	defer recoverOp(logger, "store", &err)
func recoverOp(logger *slog.Logger, op string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	logger.Error("operation_panic", "op", op, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	*err = &OpError{Op: op, Msg: "unexpected failure", Err: fmt.Errorf("panic: %v", r)}
}
