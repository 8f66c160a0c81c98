package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLine parses a single non-blank trace line. The returned record has
// no line number.
func ParseLine(text string) (Record, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Record{}, fmt.Errorf("%w: expected \"<op> <addr>,<size>\"", ErrMalformed)
	}

	op, err := Classify(fields[0])
	if err != nil {
		return Record{}, err
	}

	// Tolerate "addr, size" by joining the remaining fields.
	operand := strings.Join(fields[1:], "")

	addrText, sizeText, found := strings.Cut(operand, ",")
	if !found || addrText == "" || sizeText == "" {
		return Record{}, fmt.Errorf("%w: missing address or size", ErrMalformed)
	}

	addr, err := parseAddress(addrText)
	if err != nil {
		return Record{}, err
	}

	size, err := strconv.ParseUint(sizeText, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad size %q", ErrMalformed, sizeText)
	}

	return Record{Op: op, Address: addr, Size: size}, nil
}

func parseAddress(text string) (uint64, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")

	addr, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad address %q", ErrMalformed, text)
	}

	return addr, nil
}
