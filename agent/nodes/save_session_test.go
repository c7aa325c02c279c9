package turnnode

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	statex "github.com/hotelpassarim/concierge/agent/state"
)

// flakyStore fails the first conflicts saves with ErrVersionConflict and
// serves Load from a fixed remote session, cloned so callers cannot mutate it.
type flakyStore struct {
	conflicts int
	remote    *statex.ConversationSession

	saves int
	saved *statex.ConversationSession
}

func (f *flakyStore) Load(ctx context.Context, sessionID string) (*statex.ConversationSession, error) {
	if f.remote == nil {
		return nil, statex.ErrStateNotFound
	}
	return cloneSession(f.remote), nil
}

func (f *flakyStore) Save(ctx context.Context, st *statex.ConversationSession) error {
	f.saves++
	if f.conflicts > 0 {
		f.conflicts--
		return statex.ErrVersionConflict
	}
	f.saved = cloneSession(st)
	return nil
}

func (f *flakyStore) Delete(ctx context.Context, sessionID string) error { return nil }

func cloneSession(st *statex.ConversationSession) *statex.ConversationSession {
	raw, _ := json.Marshal(st)
	out := &statex.ConversationSession{}
	_ = json.Unmarshal(raw, out)
	return out
}

func conflictTurnState(now time.Time) *GraphState {
	work := statex.NewConversationSession("5541-guest", now)
	work.RecordInbound("m2", "de 10 a 12 de fevereiro", now)

	ents := contractx.ExtractedEntities{
		Intent:           contractx.IntentPriceInquiry,
		IntentConfidence: 0.9,
		CheckIn: &contractx.DateEntity{
			Date:       time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC),
			Source:     contractx.DateSourceExplicit,
			Confidence: 0.95,
		},
		CheckOut: &contractx.DateEntity{
			Date:       time.Date(2025, time.February, 12, 0, 0, 0, 0, time.UTC),
			Source:     contractx.DateSourceExplicit,
			Confidence: 0.95,
		},
	}
	work.MergeEntities(ents, now)

	pending := statex.Clarification{
		Slot:     SlotAdults,
		Question: clarifyQuestions[SlotAdults],
		Intent:   contractx.IntentPriceInquiry,
	}
	work.SetPending(pending)

	return &GraphState{
		Turn: contractx.Turn{
			Identity:   "5541-guest",
			MessageID:  "m2",
			Text:       "de 10 a 12 de fevereiro",
			ReceivedAt: now,
		},
		TurnKey:    "m2",
		Now:        now,
		Session:    work,
		Entities:   ents,
		Action:     contractx.ActionClarify,
		Reply:      clarifyQuestions[SlotAdults],
		PendingSet: &pending,
	}
}

func TestSaveSessionReplaysTurnAfterConflict(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
	in := conflictTurnState(now)

	// A parallel delivery already bumped the stored session past the version
	// this turn was processed on.
	remote := statex.NewConversationSession("5541-guest", now)
	remote.RecordInbound("m1", "oi", now)
	remote.RecordOutbound("Olá! Como posso ajudar?", now)
	remote.Version = 1

	store := &flakyStore{conflicts: 1, remote: remote}
	out, err := SaveSession(context.Background(), in, store)
	if err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	if store.saves != 2 {
		t.Fatalf("saves = %d, want 2", store.saves)
	}

	st := out.Session
	if !st.Slots.CheckIn.Set || !st.Slots.CheckIn.Value.Equal(time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("check-in slot lost in replay: %+v", st.Slots.CheckIn)
	}
	if !st.Slots.CheckOut.Set {
		t.Error("check-out slot lost in replay")
	}
	if st.Pending == nil || st.Pending.Slot != SlotAdults {
		t.Errorf("pending clarification lost in replay: %+v", st.Pending)
	}
	if st.State != statex.StateCollectingSlots {
		t.Errorf("State = %q, want %q", st.State, statex.StateCollectingSlots)
	}
	reply, ok := st.ReplyAfter("m2")
	if !ok || reply != clarifyQuestions[SlotAdults] {
		t.Errorf("ReplyAfter(m2) = %q, %v, want the clarification question", reply, ok)
	}
	if _, ok := st.ReplyAfter("m1"); !ok {
		t.Error("replay dropped the earlier turn from the fresher session")
	}
	if store.saved == nil || store.saved.SessionID != "5541-guest" {
		t.Fatalf("saved session = %+v", store.saved)
	}
}

func TestSaveSessionGivesUpAfterBoundedRetries(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
	in := conflictTurnState(now)

	remote := statex.NewConversationSession("5541-guest", now)
	remote.Version = 7

	store := &flakyStore{conflicts: saveAttempts, remote: remote}
	_, err := SaveSession(context.Background(), in, store)
	if !errors.Is(err, contractx.ErrSessionConflict) {
		t.Fatalf("SaveSession() error = %v, want ErrSessionConflict", err)
	}
	if store.saves != saveAttempts {
		t.Errorf("saves = %d, want %d", store.saves, saveAttempts)
	}
}

func TestSaveSessionDuplicateSkipsStore(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
	in := conflictTurnState(now)
	in.Duplicate = true

	store := &flakyStore{}
	if _, err := SaveSession(context.Background(), in, store); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0", store.saves)
	}
}
