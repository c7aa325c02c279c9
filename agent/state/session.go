package state

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

// ConversationSession is the persistent per-guest dialogue state.
// - Slots are monotonically refined: a merge may overwrite a slot only with a
//   value of equal or higher confidence, unless the guest explicitly asks for
//   a change. A slot never silently reverts to unset.
// - At most one clarification is pending at a time.
// - Escalation is monotonic: once escalated the session stays escalated until
//   reset externally.
type ConversationSession struct {
	SessionID string `json:"session_id"`
	Version   int64  `json:"version"`

	State     DialogueState  `json:"state"`
	Slots     SlotSet        `json:"slots"`
	Pending   *Clarification `json:"pending,omitempty"`
	Escalated bool           `json:"escalated"`

	// EscalationReason records what first tripped the escalation.
	EscalationReason string `json:"escalation_reason,omitempty"`

	LastAction contractx.Action `json:"last_action,omitempty"`
	Language   string           `json:"language,omitempty"`

	// Sentiment holds the most recent scores, oldest first, bounded to
	// maxSentimentScores.
	Sentiment []float64 `json:"sentiment,omitempty"`

	// StuckTurns counts consecutive turns spent collecting the same slots.
	StuckTurns int `json:"stuck_turns,omitempty"`

	// Turns is the bounded transcript, oldest first.
	Turns []TurnRecord `json:"turns,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

type DialogueState string

const (
	StateAwaitingIntent   DialogueState = "awaiting_intent"
	StateCollectingSlots  DialogueState = "collecting_slots"
	StateReadyToAct       DialogueState = "ready_to_act"
	StateActionDispatched DialogueState = "action_dispatched"
	StateEscalated        DialogueState = "escalated"
)

const (
	maxTurnHistory     = 20
	maxSentimentScores = 10
)

// Clarification is the single pending question asked to complete a slot.
type Clarification struct {
	Slot     string           `json:"slot"`
	Question string           `json:"question"`
	Intent   contractx.Intent `json:"intent"`
}

// TurnRecord is one transcript entry. Inbound records carry the turn key used
// for idempotent reprocessing of webhook retries.
type TurnRecord struct {
	Key       string    `json:"key,omitempty"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

/* -------------------------------- Slots --------------------------------- */

type SlotSet struct {
	CheckIn   DateSlot `json:"check_in,omitempty"`
	CheckOut  DateSlot `json:"check_out,omitempty"`
	Adults    IntSlot  `json:"adults,omitempty"`
	ChildAges AgesSlot `json:"child_ages,omitempty"`
	RoomType  RoomSlot `json:"room_type,omitempty"`
	MealPlan  MealSlot `json:"meal_plan,omitempty"`
}

type DateSlot struct {
	Set        bool                 `json:"set,omitempty"`
	Value      time.Time            `json:"value,omitempty"`
	Source     contractx.DateSource `json:"source,omitempty"`
	Confidence float64              `json:"confidence,omitempty"`
}

type IntSlot struct {
	Set        bool    `json:"set,omitempty"`
	Value      int     `json:"value,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type AgesSlot struct {
	Set        bool    `json:"set,omitempty"`
	Ages       []int   `json:"ages,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type RoomSlot struct {
	Set        bool               `json:"set,omitempty"`
	Value      contractx.RoomType `json:"value,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
}

type MealSlot struct {
	Set        bool               `json:"set,omitempty"`
	Value      contractx.MealPlan `json:"value,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
}

func (s DateSlot) accepts(confidence float64, force bool) bool {
	return !s.Set || force || confidence >= s.Confidence
}

func (s IntSlot) accepts(confidence float64, force bool) bool {
	return !s.Set || force || confidence >= s.Confidence
}

func (s AgesSlot) accepts(confidence float64, force bool) bool {
	return !s.Set || force || confidence >= s.Confidence
}

func (s RoomSlot) accepts(confidence float64, force bool) bool {
	return !s.Set || force || confidence >= s.Confidence
}

func (s MealSlot) accepts(confidence float64, force bool) bool {
	return !s.Set || force || confidence >= s.Confidence
}

/* ------------------------------ Constructors ----------------------------- */

var (
	ErrInvalidSession  = errors.New("session id is empty")
	ErrNilSessionState = errors.New("session state is nil")
	ErrStateNotFound   = errors.New("session state not found")
	ErrVersionConflict = errors.New("session version conflict")
)

func NewConversationSession(sessionID string, now time.Time) *ConversationSession {
	return &ConversationSession{
		SessionID:      sessionID,
		State:          StateAwaitingIntent,
		CreatedAt:      now.UTC(),
		LastActivityAt: now.UTC(),
	}
}

func (s *ConversationSession) Touch(now time.Time) {
	s.LastActivityAt = now.UTC()
}

/* ------------------------------- Transcript ------------------------------ */

// RecordInbound appends a guest message. Returns false when the turn key was
// already recorded (webhook retry) so the caller can skip double-counting.
func (s *ConversationSession) RecordInbound(key, text string, now time.Time) bool {
	if s == nil {
		return false
	}
	if key != "" {
		for _, t := range s.Turns {
			if t.Direction == DirectionIn && t.Key == key {
				return false
			}
		}
	}
	s.appendTurn(TurnRecord{Key: key, Direction: DirectionIn, Text: text, At: now.UTC()})
	return true
}

func (s *ConversationSession) RecordOutbound(text string, now time.Time) {
	if s == nil {
		return
	}
	s.appendTurn(TurnRecord{Direction: DirectionOut, Text: text, At: now.UTC()})
}

func (s *ConversationSession) appendTurn(t TurnRecord) {
	s.Turns = append(s.Turns, t)
	if len(s.Turns) > maxTurnHistory {
		s.Turns = s.Turns[len(s.Turns)-maxTurnHistory:]
	}
}

// ReplyAfter returns the outbound reply that followed the inbound turn with
// the given key, so webhook retries can be answered without reprocessing.
func (s *ConversationSession) ReplyAfter(key string) (string, bool) {
	if s == nil || key == "" {
		return "", false
	}
	for i, t := range s.Turns {
		if t.Direction != DirectionIn || t.Key != key {
			continue
		}
		for _, u := range s.Turns[i+1:] {
			if u.Direction == DirectionOut {
				return u.Text, true
			}
		}
		return "", false
	}
	return "", false
}

// Transcript returns the recent transcript as plain lines for handoff.
func (s *ConversationSession) Transcript() []string {
	if s == nil {
		return nil
	}
	lines := make([]string, 0, len(s.Turns))
	for _, t := range s.Turns {
		prefix := "guest"
		if t.Direction == DirectionOut {
			prefix = "concierge"
		}
		lines = append(lines, prefix+": "+t.Text)
	}
	return lines
}

/* ------------------------------- Sentiment ------------------------------- */

func (s *ConversationSession) PushSentiment(score float64) {
	if s == nil {
		return
	}
	s.Sentiment = append(s.Sentiment, score)
	if len(s.Sentiment) > maxSentimentScores {
		s.Sentiment = s.Sentiment[len(s.Sentiment)-maxSentimentScores:]
	}
}

// RollingSentiment returns the mean of the last k scores and how many scores
// contributed to it.
func (s *ConversationSession) RollingSentiment(k int) (float64, int) {
	if s == nil || len(s.Sentiment) == 0 || k <= 0 {
		return 0, 0
	}
	window := s.Sentiment
	if len(window) > k {
		window = window[len(window)-k:]
	}
	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window)), len(window)
}

/* ------------------------------ Slot merging ----------------------------- */

// MergeEntities folds one turn's extracted entities into the session slots.
// The merge is idempotent: applying the same entities twice yields the same
// slot values. Only slots the guest addressed this turn are touched.
func (s *ConversationSession) MergeEntities(ent contractx.ExtractedEntities, now time.Time) {
	if s == nil {
		return
	}
	force := ent.ExplicitChange

	checkIn := ent.CheckIn
	checkOut := ent.CheckOut

	// "e por 3 noites?" style ellipsis: nights plus a known (or just stated)
	// check-in resolves the check-out.
	if checkOut == nil && ent.Nights != nil && ent.Nights.Value > 0 {
		switch {
		case checkIn != nil:
			checkOut = &contractx.DateEntity{
				Date:       checkIn.Date.AddDate(0, 0, ent.Nights.Value),
				Source:     contractx.DateSourceInferred,
				Confidence: min(checkIn.Confidence, ent.Nights.Confidence),
			}
		case s.Slots.CheckIn.Set:
			checkOut = &contractx.DateEntity{
				Date:       s.Slots.CheckIn.Value.AddDate(0, 0, ent.Nights.Value),
				Source:     contractx.DateSourceInferred,
				Confidence: ent.Nights.Confidence,
			}
		}
	}

	if checkIn != nil && s.Slots.CheckIn.accepts(checkIn.Confidence, force) {
		s.Slots.CheckIn = DateSlot{Set: true, Value: dateOnly(checkIn.Date), Source: checkIn.Source, Confidence: checkIn.Confidence}
	}
	if checkOut != nil && s.Slots.CheckOut.accepts(checkOut.Confidence, force) {
		s.Slots.CheckOut = DateSlot{Set: true, Value: dateOnly(checkOut.Date), Source: checkOut.Source, Confidence: checkOut.Confidence}
	}

	// Normalize an inverted range rather than storing it; the decision layer
	// still validates before quoting.
	if s.Slots.CheckIn.Set && s.Slots.CheckOut.Set && !s.Slots.CheckIn.Value.Before(s.Slots.CheckOut.Value) {
		if checkIn != nil && checkOut == nil {
			// fresh check-in collided with a stale check-out; drop the stale one
			s.Slots.CheckOut = DateSlot{}
		} else if checkOut != nil && checkIn == nil {
			s.Slots.CheckIn = DateSlot{}
		}
	}

	if ent.Adults != nil && s.Slots.Adults.accepts(ent.Adults.Confidence, force) {
		s.Slots.Adults = IntSlot{Set: true, Value: ent.Adults.Value, Confidence: ent.Adults.Confidence}
	}
	if ent.ChildAges != nil && s.Slots.ChildAges.accepts(ent.ChildAges.Confidence, force) {
		ages := append([]int(nil), ent.ChildAges.Ages...)
		s.Slots.ChildAges = AgesSlot{Set: true, Ages: ages, Confidence: ent.ChildAges.Confidence}
	}
	if ent.RoomType != "" && s.Slots.RoomType.accepts(0.9, force) {
		s.Slots.RoomType = RoomSlot{Set: true, Value: ent.RoomType, Confidence: 0.9}
	}
	if ent.MealPlan != "" && s.Slots.MealPlan.accepts(0.9, force) {
		s.Slots.MealPlan = MealSlot{Set: true, Value: ent.MealPlan, Confidence: 0.9}
	}

	if ent.Language != "" {
		s.Language = ent.Language
	}
	s.Touch(now)
}

// PriorContext exposes the slot view the extractor may use for ellipsis.
func (s *ConversationSession) PriorContext() contractx.PriorContext {
	prior := contractx.PriorContext{}
	if s == nil {
		return prior
	}
	if s.Slots.CheckIn.Set {
		v := s.Slots.CheckIn.Value
		prior.CheckIn = &v
	}
	if s.Slots.CheckOut.Set {
		v := s.Slots.CheckOut.Value
		prior.CheckOut = &v
	}
	if s.Slots.Adults.Set {
		prior.Adults = s.Slots.Adults.Value
	}
	if s.Pending != nil {
		prior.AwaitingSlot = s.Pending.Slot
		prior.ActiveIntent = s.Pending.Intent
	}
	return prior
}

/* ---------------------------- Dialogue control --------------------------- */

// SetPending replaces the pending clarification. The invariant of at most one
// pending clarification holds by construction.
func (s *ConversationSession) SetPending(c Clarification) {
	if s == nil {
		return
	}
	if s.Pending != nil && s.Pending.Slot == c.Slot {
		s.StuckTurns++
	} else {
		s.StuckTurns = 1
	}
	s.Pending = &c
	s.State = StateCollectingSlots
}

func (s *ConversationSession) ClearPending() {
	if s == nil {
		return
	}
	s.Pending = nil
	s.StuckTurns = 0
	if s.State == StateCollectingSlots {
		s.State = StateAwaitingIntent
	}
}

// Escalate marks the session escalated. The transition is one-way and the
// first reason wins.
func (s *ConversationSession) Escalate(reason string) {
	if s == nil {
		return
	}
	if !s.Escalated {
		s.EscalationReason = reason
	}
	s.Escalated = true
	s.State = StateEscalated
	s.Pending = nil
	s.StuckTurns = 0
}

func (s *ConversationSession) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if s.SessionID == "" {
		return ErrInvalidSession
	}
	if s.Escalated && s.State != StateEscalated {
		return fmt.Errorf("escalated session must be in state %s, got %s", StateEscalated, s.State)
	}
	if s.Pending != nil && s.State != StateCollectingSlots && s.State != StateEscalated {
		return fmt.Errorf("pending clarification requires state %s, got %s", StateCollectingSlots, s.State)
	}
	if s.Slots.CheckIn.Set && s.Slots.CheckOut.Set && !s.Slots.CheckIn.Value.Before(s.Slots.CheckOut.Value) {
		return fmt.Errorf("check-in %s is not before check-out %s",
			s.Slots.CheckIn.Value.Format("2006-01-02"), s.Slots.CheckOut.Value.Format("2006-01-02"))
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
