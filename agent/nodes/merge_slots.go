package turnnode

import (
	"fmt"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

// MergeSlots folds the extracted entities into the session. Slot refinement
// is monotonic; see ConversationSession.MergeEntities.
func MergeSlots(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Duplicate || in.MediaOnly {
		return in, nil
	}

	in.Session.MergeEntities(in.Entities, in.Now)
	in.Session.PushSentiment(in.Entities.Sentiment)
	return in, nil
}
