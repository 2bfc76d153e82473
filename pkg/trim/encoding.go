// Package trim computes trim codes for a probed analog node using a
// two-point linear calibration over the full code range.
package trim

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidEncoding is returned for an unknown kind or a width that
	// does not describe a representable code range.
	ErrInvalidEncoding = errors.New("invalid trim encoding")
	// ErrCalibrationDegenerate is returned when both calibration endpoints
	// measure the same voltage.
	ErrCalibrationDegenerate = errors.New("calibration degenerate: endpoints measure the same voltage")
	// ErrInvalidRequest is returned for a malformed calibration request.
	ErrInvalidRequest = errors.New("invalid calibration request")
)

// Kind is the signedness of a trim register.
type Kind int

const (
	Unsigned Kind = iota + 1
	TwosComplement
)

func (k Kind) String() string {
	switch k {
	case Unsigned:
		return "unsigned"
	case TwosComplement:
		return "twos_complement"
	default:
		return "unknown"
	}
}

// ParseKind accepts "unsigned" or "twos_complement" ("twos-complement",
// "signed").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unsigned":
		return Unsigned, nil
	case "twos_complement", "twos-complement", "signed":
		return TwosComplement, nil
	default:
		return 0, errors.Wrapf(ErrInvalidEncoding, "unknown kind %q", s)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if k != Unsigned && k != TwosComplement {
		return nil, errors.Wrapf(ErrInvalidEncoding, "unknown kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Encoding describes a trim register.
type Encoding struct {
	Width int  `yaml:"width"`
	Kind  Kind `yaml:"kind"`
}

// Bounds returns the code range of the encoding.
func (e Encoding) Bounds() (int64, int64, error) {
	return Bounds(e.Width, e.Kind)
}

// Bounds returns the smallest and largest code of a width-bit register.
// Unsigned registers span [0, 2^n-1], two's complement registers
// [-2^(n-1), 2^(n-1)-1]. Ranges must fit in int64.
func Bounds(width int, kind Kind) (int64, int64, error) {
	if width < 1 {
		return 0, 0, errors.Wrapf(ErrInvalidEncoding, "width %d", width)
	}
	switch kind {
	case Unsigned:
		if width > 63 {
			return 0, 0, errors.Wrapf(ErrInvalidEncoding, "unsigned width %d exceeds 63 bits", width)
		}
		return 0, int64(uint64(1)<<width - 1), nil
	case TwosComplement:
		if width > 64 {
			return 0, 0, errors.Wrapf(ErrInvalidEncoding, "two's complement width %d exceeds 64 bits", width)
		}
		hi := int64(uint64(1)<<(width-1) - 1)
		return -hi - 1, hi, nil
	default:
		return 0, 0, errors.Wrapf(ErrInvalidEncoding, "kind %d", int(kind))
	}
}
