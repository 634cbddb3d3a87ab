package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer. The gate control loop itself has
// no failure path (bad input on the line channel is dropped, never
// answered); these cover the supervisor and its adapters.
var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrAlreadyParked = fmt.Errorf("vehicle already parked")
	ErrLotFull       = fmt.Errorf("parking lot full")
	ErrNoPendingExit = fmt.Errorf("no pending exit")
	ErrInvalidPlate  = fmt.Errorf("plate does not match expected format")
	ErrLinkDown      = fmt.Errorf("controller link down")
	ErrConfigLoad    = fmt.Errorf("failed to load configuration")
	ErrDecryption    = fmt.Errorf("decryption failed")
)

// WrapOp wraps err with a subsystem prefix, preserving errors.Is/As.
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
