// Package store provides read access to the key/value store that the
// pipeline workers write their statistics into.
package store

import (
	"context"
	"errors"
	"fmt"
	"net"

	qserrors "github.com/vnykmshr/queuestat/pkg/common/errors"
)

// Store is the read contract the sampler depends on.
type Store interface {
	// HGetAll returns every field of the hash at key. A missing key yields an
	// empty map and no error.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// SCard returns the cardinality of the set at key. A missing key yields 0.
	SCard(ctx context.Context, key string) (int64, error)
}

// Operation names used in errors.
const (
	OpHGetAll = "HGETALL"
	OpSCard   = "SCARD"
	OpPing    = "PING"
)

// wrapError converts a driver error into an *errors.OperationError that
// matches ErrStoreUnavailable, and ErrTimeout when the call timed out.
func wrapError(op, key string, err error) error {
	if err == nil {
		return nil
	}

	cause := fmt.Errorf("%w: %w", qserrors.ErrStoreUnavailable, err)
	if isTimeout(err) {
		cause = fmt.Errorf("%w: %w: %w", qserrors.ErrStoreUnavailable, qserrors.ErrTimeout, err)
	}

	opErr := qserrors.NewOperationError("store", op, cause)
	if key != "" {
		opErr.WithContext("key " + key)
	}
	return opErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
