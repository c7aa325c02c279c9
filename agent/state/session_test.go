package state

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

var testNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMergeEntitiesIdempotent(t *testing.T) {
	t.Parallel()

	s := NewConversationSession("s1", testNow)
	ent := contractx.ExtractedEntities{
		Intent:   contractx.IntentPriceInquiry,
		CheckIn:  &contractx.DateEntity{Date: date(2025, 2, 10), Source: contractx.DateSourceExplicit, Confidence: 0.95},
		CheckOut: &contractx.DateEntity{Date: date(2025, 2, 12), Source: contractx.DateSourceExplicit, Confidence: 0.95},
		Adults:   &contractx.IntEntity{Value: 2, Confidence: 0.9},
	}

	s.MergeEntities(ent, testNow)
	first := s.Slots

	// webhook retry: same entities merged again
	s.MergeEntities(ent, testNow)
	if !reflect.DeepEqual(first, s.Slots) {
		t.Fatalf("re-merge changed slots:\nbefore=%+v\nafter=%+v", first, s.Slots)
	}
}

func TestRecordInboundDeduplicatesByKey(t *testing.T) {
	t.Parallel()

	s := NewConversationSession("s1", testNow)
	if !s.RecordInbound("turn-1", "oi", testNow) {
		t.Fatal("first record should succeed")
	}
	if s.RecordInbound("turn-1", "oi", testNow) {
		t.Fatal("duplicate turn key should be rejected")
	}
	if len(s.Turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(s.Turns))
	}
}

func TestMonotonicRefinement(t *testing.T) {
	t.Parallel()

	s := NewConversationSession("s1", testNow)
	s.MergeEntities(contractx.ExtractedEntities{
		Adults: &contractx.IntEntity{Value: 2, Confidence: 0.9},
	}, testNow)

	// unrelated ambiguous number: lower confidence must not overwrite
	s.MergeEntities(contractx.ExtractedEntities{
		Adults: &contractx.IntEntity{Value: 1, Confidence: 0.3},
	}, testNow)
	if s.Slots.Adults.Value != 2 {
		t.Fatalf("low-confidence merge overwrote adults: got %d", s.Slots.Adults.Value)
	}

	// explicit change request wins regardless of confidence
	s.MergeEntities(contractx.ExtractedEntities{
		Adults:         &contractx.IntEntity{Value: 3, Confidence: 0.3},
		ExplicitChange: true,
	}, testNow)
	if s.Slots.Adults.Value != 3 {
		t.Fatalf("explicit change did not overwrite adults: got %d", s.Slots.Adults.Value)
	}
}

func TestMergeNightsEllipsis(t *testing.T) {
	t.Parallel()

	s := NewConversationSession("s1", testNow)
	s.MergeEntities(contractx.ExtractedEntities{
		CheckIn: &contractx.DateEntity{Date: date(2025, 3, 7), Source: contractx.DateSourceExplicit, Confidence: 0.95},
	}, testNow)

	// "e por 3 noites?"
	s.MergeEntities(contractx.ExtractedEntities{
		Nights: &contractx.IntEntity{Value: 3, Confidence: 0.8},
	}, testNow)

	if !s.Slots.CheckOut.Set {
		t.Fatal("check-out was not inferred from nights")
	}
	if got := s.Slots.CheckOut.Value; !got.Equal(date(2025, 3, 10)) {
		t.Fatalf("check-out = %s, want 2025-03-10", got.Format("2006-01-02"))
	}
	if s.Slots.CheckOut.Source != contractx.DateSourceInferred {
		t.Fatalf("check-out source = %s, want inferred", s.Slots.CheckOut.Source)
	}
}

func TestFreshCheckInDropsStaleCheckOut(t *testing.T) {
	t.Parallel()

	s := NewConversationSession("s1", testNow)
	s.MergeEntities(contractx.ExtractedEntities{
		CheckIn:  &contractx.DateEntity{Date: date(2025, 2, 10), Source: contractx.DateSourceExplicit, Confidence: 0.95},
		CheckOut: &contractx.DateEntity{Date: date(2025, 2, 12), Source: contractx.DateSourceExplicit, Confidence: 0.95},
	}, testNow)

	// guest restates a later check-in; the old check-out no longer makes sense
	s.MergeEntities(contractx.ExtractedEntities{
		CheckIn:        &contractx.DateEntity{Date: date(2025, 2, 20), Source: contractx.DateSourceExplicit, Confidence: 0.95},
		ExplicitChange: true,
	}, testNow)

	if s.Slots.CheckOut.Set {
		t.Fatal("stale check-out should have been dropped")
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestSessionJSONRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewConversationSession("s1", testNow)
	s.MergeEntities(contractx.ExtractedEntities{
		Intent:    contractx.IntentPriceInquiry,
		CheckIn:   &contractx.DateEntity{Date: date(2025, 2, 10), Source: contractx.DateSourceExplicit, Confidence: 0.95},
		CheckOut:  &contractx.DateEntity{Date: date(2025, 2, 12), Source: contractx.DateSourceExplicit, Confidence: 0.95},
		Adults:    &contractx.IntEntity{Value: 2, Confidence: 0.9},
		ChildAges: &contractx.AgesEntity{Ages: []int{4, 7}, Confidence: 0.9},
		Language:  "pt",
	}, testNow)
	s.RecordInbound("k1", "quero reservar", testNow)
	s.PushSentiment(0.4)
	s.SetPending(Clarification{Slot: "meal_plan", Question: "Qual pensão?", Intent: contractx.IntentPriceInquiry})

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ConversationSession
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(s.Slots, back.Slots) {
		t.Fatalf("slots differ after round trip:\nwant=%+v\ngot=%+v", s.Slots, back.Slots)
	}
	if back.State != s.State || back.Pending == nil || back.Pending.Slot != "meal_plan" {
		t.Fatalf("dialogue state lost in round trip: %+v", back)
	}
}

func TestEscalateIsMonotonic(t *testing.T) {
	t.Parallel()

	s := NewConversationSession("s1", testNow)
	s.SetPending(Clarification{Slot: "check_in", Question: "Quando?", Intent: contractx.IntentPriceInquiry})
	s.Escalate("complaint")

	if s.State != StateEscalated || !s.Escalated {
		t.Fatalf("expected escalated state, got %s", s.State)
	}
	if s.EscalationReason != "complaint" {
		t.Fatalf("escalation reason = %q", s.EscalationReason)
	}

	// the first reason wins
	s.Escalate("negative_sentiment")
	if s.EscalationReason != "complaint" {
		t.Fatalf("escalation reason overwritten to %q", s.EscalationReason)
	}
	if s.Pending != nil {
		t.Fatal("escalation should clear pending clarification")
	}

	// later activity must not revert the state
	s.ClearPending()
	s.Touch(testNow.Add(time.Minute))
	if s.State != StateEscalated {
		t.Fatalf("escalation reverted to %s", s.State)
	}
}

func TestRollingSentiment(t *testing.T) {
	t.Parallel()

	s := NewConversationSession("s1", testNow)
	for _, v := range []float64{0.5, -0.6, -0.7, -0.8} {
		s.PushSentiment(v)
	}

	avg, n := s.RollingSentiment(3)
	if n != 3 {
		t.Fatalf("window size = %d, want 3", n)
	}
	want := (-0.6 + -0.7 + -0.8) / 3
	if diff := avg - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("rolling avg = %f, want %f", avg, want)
	}
}

func TestValidateRejectsInvertedRange(t *testing.T) {
	t.Parallel()

	s := NewConversationSession("s1", testNow)
	s.Slots.CheckIn = DateSlot{Set: true, Value: date(2025, 2, 12), Confidence: 1}
	s.Slots.CheckOut = DateSlot{Set: true, Value: date(2025, 2, 10), Confidence: 1}
	if err := s.Validate(); err == nil {
		t.Fatal("expected validation error for inverted range")
	}
}
