package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnresolvedPricing = errors.New("unresolved pricing")
)

// CalculationError carries enough context to debug a misconfigured rate table.
type CalculationError struct {
	SubjectID uuid.UUID
	Quantity  int
	Attempted []PriceSource
	Err       error
}

func (e *CalculationError) Error() string {
	attempted := make([]string, 0, len(e.Attempted))
	for _, source := range e.Attempted {
		attempted = append(attempted, string(source))
	}
	if len(attempted) == 0 {
		return fmt.Sprintf("price subject %s quantity %d: %v", e.SubjectID, e.Quantity, e.Err)
	}
	return fmt.Sprintf("price subject %s quantity %d (tried %s): %v", e.SubjectID, e.Quantity, strings.Join(attempted, ","), e.Err)
}

func (e *CalculationError) Unwrap() error {
	return e.Err
}
