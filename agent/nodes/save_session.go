package turnnode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	statex "github.com/hotelpassarim/concierge/agent/state"
)

// saveAttempts bounds the compare-and-set retry loop. Merging is idempotent,
// so replaying the turn onto a fresher session is safe.
const saveAttempts = 3

// SaveSession records the outbound reply and persists the session with
// optimistic concurrency. On a version conflict the turn is re-applied to the
// freshly loaded session and the save retried.
func SaveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Duplicate {
		return in, nil
	}

	if in.Reply != "" {
		in.Session.RecordOutbound(in.Reply, in.Now)
	}
	in.Session.Touch(in.Now)

	var err error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		if vErr := in.Session.Validate(); vErr != nil {
			return nil, fmt.Errorf("session validation failed: %w", vErr)
		}
		err = store.Save(ctx, in.Session)
		if err == nil {
			return in, nil
		}
		if !errors.Is(err, statex.ErrVersionConflict) {
			return nil, err
		}

		fresh, loadErr := store.Load(ctx, in.Session.SessionID)
		if loadErr != nil {
			if !errors.Is(loadErr, statex.ErrStateNotFound) {
				return nil, loadErr
			}
			fresh = statex.NewConversationSession(in.Session.SessionID, in.Now)
		}
		replayTurn(in, fresh)
		in.Session = fresh
	}
	return nil, fmt.Errorf("%w: save gave up after %d attempts: %v", contractx.ErrSessionConflict, saveAttempts, err)
}

// replayTurn applies this turn's effects onto a session loaded after a
// conflicting write.
func replayTurn(in *GraphState, st *statex.ConversationSession) {
	if !st.RecordInbound(in.TurnKey, in.Turn.Text, in.Now) {
		return
	}
	if !in.MediaOnly {
		st.MergeEntities(in.Entities, in.Now)
		st.PushSentiment(in.Entities.Sentiment)
	}
	if in.PendingSet != nil {
		st.SetPending(*in.PendingSet)
	}
	if in.PendingCleared {
		st.ClearPending()
	}
	switch in.Action {
	case contractx.ActionQuote, contractx.ActionAvailability, contractx.ActionBooking:
		st.State = statex.StateActionDispatched
	}
	if in.EscalationRaised || in.Action == contractx.ActionHandoff {
		st.Escalate(in.EscalationReason)
	}
	st.LastAction = in.Action
	if in.Reply != "" {
		st.RecordOutbound(in.Reply, in.Now)
	}
	st.Touch(in.Now)
}
