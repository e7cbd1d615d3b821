package pricing

import "fmt"

// PriceSource names where a resolved price came from.
type PriceSource string

const (
	SourceClient        PriceSource = "CLIENT"
	SourceGroup         PriceSource = "GROUP"
	SourceGroupDiscount PriceSource = "GROUP_DISCOUNT"
	SourceStandard      PriceSource = "STANDARD"
)

// Precedence lists the sources from highest to lowest priority.
var Precedence = []PriceSource{SourceClient, SourceGroup, SourceGroupDiscount, SourceStandard}

func ParsePriceSource(value string) (PriceSource, error) {
	switch source := PriceSource(value); source {
	case SourceClient, SourceGroup, SourceGroupDiscount, SourceStandard:
		return source, nil
	default:
		return "", fmt.Errorf("%w: unknown price source %q", ErrInvalidArgument, value)
	}
}

// HasTable reports whether the source is backed by its own tier table.
// GROUP_DISCOUNT is a percentage applied to the STANDARD price instead.
func (s PriceSource) HasTable() bool {
	return s == SourceClient || s == SourceGroup || s == SourceStandard
}

// Scoped reports whether lookups for the source need a client or group id.
func (s PriceSource) Scoped() bool {
	return s == SourceClient || s == SourceGroup || s == SourceGroupDiscount
}
