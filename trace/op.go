package trace

import (
	"errors"
	"fmt"
)

// ErrUnknownOp is returned for an operation token that is not a
// recognized trace operation.
var ErrUnknownOp = errors.New("unknown trace operation")

// Op represents a trace operation kind.
type Op uint8

// Trace operations.
const (
	OpUnknown          Op = iota
	OpInstructionFetch    // I: code fetch, not simulated
	OpLoad                // L: data read
	OpStore               // S: data write
	OpModify              // M: data read followed by a write
)

// Token returns the single-letter trace token of the operation.
func (o Op) Token() string {
	switch o {
	case OpInstructionFetch:
		return "I"
	case OpLoad:
		return "L"
	case OpStore:
		return "S"
	case OpModify:
		return "M"
	default:
		return "?"
	}
}

// String returns a readable name of the operation.
func (o Op) String() string {
	switch o {
	case OpInstructionFetch:
		return "ifetch"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpModify:
		return "modify"
	default:
		return "unknown"
	}
}

// IsData reports whether the operation is a data access the cache
// simulates.
func (o Op) IsData() bool {
	return o == OpLoad || o == OpStore || o == OpModify
}

// Accesses returns how many cache accesses the operation performs.
func (o Op) Accesses() int {
	switch o {
	case OpLoad, OpStore:
		return 1
	case OpModify:
		return 2
	default:
		return 0
	}
}

// Classify maps a trace token to an operation. The instruction-fetch token
// is recognized so callers can filter it; anything else unrecognized is an
// error.
func Classify(token string) (Op, error) {
	switch token {
	case "I":
		return OpInstructionFetch, nil
	case "L":
		return OpLoad, nil
	case "S":
		return OpStore, nil
	case "M":
		return OpModify, nil
	default:
		return OpUnknown, fmt.Errorf("%w: %q", ErrUnknownOp, token)
	}
}
