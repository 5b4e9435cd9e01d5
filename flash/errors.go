package flash

import (
	"errors"
	"fmt"
)

var (
	// ErrAddressOutOfRange indicates an address at or past the end of the device.
	ErrAddressOutOfRange = errors.New("flash: address out of range")
	// ErrSizeOutOfRange indicates a region whose end reaches past the device bound.
	ErrSizeOutOfRange = errors.New("flash: size out of range")
	// ErrMediumUnavailable indicates the backing medium could not be opened or created.
	ErrMediumUnavailable = errors.New("flash: medium unavailable")
	// ErrMediumCorrupt indicates a transfer moved fewer bytes than requested,
	// or the medium does not have the expected size.
	ErrMediumCorrupt = errors.New("flash: medium corrupt")
	// ErrInvalidGeometry indicates inconsistent size parameters.
	ErrInvalidGeometry = errors.New("flash: invalid geometry")
)

// FatalError is produced when a read or write cannot reach the medium even
// after the lazy format. It is handed to the device's fatal handler, which by
// default terminates the process.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("flash: fatal %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Result is the abstract outcome of an operation. InvalidGeometry is a
// configuration mistake raised by New and never by an operation on the
// medium.
type Result int

const (
	Ok Result = iota
	AddressOutOfRange
	SizeOutOfRange
	MediumUnavailable
	MediumCorrupt
	InvalidGeometry
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "Ok"
	case AddressOutOfRange:
		return "AddressOutOfRange"
	case SizeOutOfRange:
		return "SizeOutOfRange"
	case MediumUnavailable:
		return "MediumUnavailable"
	case MediumCorrupt:
		return "MediumCorrupt"
	case InvalidGeometry:
		return "InvalidGeometry"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// ResultOf maps an error returned by this package to its result code.
// Any other error comes from the store itself (open, create or stat) and is
// reported as MediumUnavailable.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return Ok
	case errors.Is(err, ErrAddressOutOfRange):
		return AddressOutOfRange
	case errors.Is(err, ErrSizeOutOfRange):
		return SizeOutOfRange
	case errors.Is(err, ErrMediumCorrupt):
		return MediumCorrupt
	case errors.Is(err, ErrInvalidGeometry):
		return InvalidGeometry
	default:
		return MediumUnavailable
	}
}
