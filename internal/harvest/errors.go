package harvest

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the failure classes the loop distinguishes.
// Pagination end and too-many-results are not errors; they are fields on the
// adapter's Page result.
var (
	ErrTransient        = errors.New("transient fetch failure")
	ErrUnparsable       = errors.New("unparsable item")
	ErrPublishForbidden = errors.New("publish forbidden")
	ErrNotFoundUpstream = errors.New("not found upstream")
	ErrStore            = errors.New("store failure")
)

// Wrap builds an error message that includes source context while tagging it
// with the provided marker for later classification with errors.Is. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, source, operation, message string, err error) error {
	detail := buildDetail(source, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(source, operation, message string) string {
	parts := make([]string, 0, 3)
	if source = strings.TrimSpace(source); source != "" {
		parts = append(parts, source)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "harvest failure"
	}
	return strings.Join(parts, ": ")
}
