// Package lsmerrors collects the error kinds the engine can surface, per
// spec §7's classification of failures (not-found is never one of them —
// it is a normal, zero-value result).
package lsmerrors

import "fmt"

// ErrTreeFull is returned when a propagation would need to materialize a
// level beyond the configured MaxLevels.
var ErrTreeFull = fmt.Errorf("lsmkv: tree full: propagation would exceed max levels")

// ErrDictionaryOverflow is returned when dictionary encoding is enabled for
// a level and the number of distinct values it has seen exceeds the
// capacity of the dictionary id type (256 for the fixed uint8 id).
var ErrDictionaryOverflow = fmt.Errorf("lsmkv: dictionary overflow: level has more distinct values than the id type can address")

// IOError wraps a failure from opening, truncating, or mapping a level's
// backing files.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("lsmkv: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError wraps err as an IOError performing op on path. Returns nil if
// err is nil, so it can be used inline: `return NewIOError("open", path, err)`.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
