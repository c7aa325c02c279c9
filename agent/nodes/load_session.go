package turnnode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	statex "github.com/hotelpassarim/concierge/agent/state"
)

// LoadSession loads or creates the guest session and records the inbound
// turn. A turn key seen before marks the state as a duplicate and replays the
// original reply instead of reprocessing.
func LoadSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.Turn.Identity)
	if err != nil {
		if !errors.Is(err, statex.ErrStateNotFound) {
			return nil, err
		}
		st = statex.NewConversationSession(in.Turn.Identity, in.Now)
	}

	if !st.RecordInbound(in.TurnKey, in.Turn.Text, in.Now) {
		in.Duplicate = true
		if reply, ok := st.ReplyAfter(in.TurnKey); ok {
			in.Reply = reply
			in.Action = st.LastAction
		}
	}

	in.Session = st
	return in, nil
}
