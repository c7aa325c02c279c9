package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

// ExtractEntities runs the extractor over the turn text. Duplicate and
// media-only turns skip extraction entirely.
func ExtractEntities(ctx context.Context, in *GraphState, extractor contractx.Extractor) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Duplicate || in.MediaOnly {
		return in, nil
	}

	in.Entities = extractor.Extract(ctx, in.Turn.Text, in.Session.PriorContext(), in.Turn.ReceivedAt)
	return in, nil
}
