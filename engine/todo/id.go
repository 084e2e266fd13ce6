package todo

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseID coerces an inbound identifier (path segment, CLI argument) to the
// integer form used by every persistence operation.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}
