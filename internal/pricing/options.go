package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// OptionCharge is the surcharge one selected option adds to the unit price.
type OptionCharge struct {
	Kind  OptionKind `json:"kind"`
	ID    uuid.UUID  `json:"id"`
	Delta Money      `json:"delta"`
}

// SumOptions adds up the deltas of the selected options. Options without a
// configured delta contribute zero.
func SumOptions(ctx context.Context, catalog OptionCatalog, selections []OptionSelection) (Money, []OptionCharge, error) {
	if len(selections) == 0 {
		return 0, nil, nil
	}

	var total Money
	charges := make([]OptionCharge, 0, len(selections))
	for _, selection := range selections {
		if !selection.Kind.valid() {
			return 0, nil, fmt.Errorf("%w: unknown option kind %q", ErrInvalidArgument, selection.Kind)
		}

		delta, err := catalog.OptionDelta(ctx, selection)
		if err != nil {
			return 0, nil, fmt.Errorf("%s option %s: %w", selection.Kind, selection.ID, err)
		}

		var amount Money
		if delta != nil {
			amount = *delta
		}
		total += amount
		charges = append(charges, OptionCharge{
			Kind:  selection.Kind,
			ID:    selection.ID,
			Delta: amount,
		})
	}

	return total, charges, nil
}
