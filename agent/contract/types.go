package contract

import (
	"time"
)

// Intent is the closed set of guest intents. Exactly one is assigned per
// turn; ties resolve to the higher-priority intent (order of the constants).
type Intent string

const (
	IntentComplaint      Intent = "complaint"
	IntentBookingConfirm Intent = "booking_confirm"
	IntentPriceInquiry   Intent = "price_inquiry"
	IntentAvailability   Intent = "availability_inquiry"
	IntentServiceRequest Intent = "service_request"
	IntentInfoRequest    Intent = "info_request"
	IntentGreeting       Intent = "greeting"
	IntentUnknown        Intent = "unknown"
)

// intentPriority orders intents for tie-breaking; lower index wins.
var intentPriority = []Intent{
	IntentComplaint,
	IntentBookingConfirm,
	IntentPriceInquiry,
	IntentAvailability,
	IntentServiceRequest,
	IntentInfoRequest,
	IntentGreeting,
	IntentUnknown,
}

// IntentPriority returns the tie-break rank of an intent (lower wins).
func IntentPriority(in Intent) int {
	for i, candidate := range intentPriority {
		if candidate == in {
			return i
		}
	}
	return len(intentPriority)
}

// Action is the single business action dispatched for a turn.
type Action string

const (
	ActionGreet        Action = "greet"
	ActionQuote        Action = "quote"
	ActionAvailability Action = "availability_check"
	ActionBooking      Action = "booking_confirm"
	ActionService      Action = "service_request"
	ActionInfo         Action = "info"
	ActionClarify      Action = "clarify"
	ActionHandoff      Action = "human_handoff"
)

type RoomType string

const (
	RoomTerreo   RoomType = "terreo"
	RoomSuperior RoomType = "superior"
)

func RoomTypes() []RoomType {
	return []RoomType{RoomTerreo, RoomSuperior}
}

type MealPlan string

const (
	MealBreakfast MealPlan = "cafe_da_manha"
	MealHalfBoard MealPlan = "meia_pensao"
	MealFullBoard MealPlan = "pensao_completa"
)

func MealPlans() []MealPlan {
	return []MealPlan{MealBreakfast, MealHalfBoard, MealFullBoard}
}

// DateSource tags how a calendar date was resolved from text.
type DateSource string

const (
	DateSourceExplicit DateSource = "explicit"
	DateSourceRelative DateSource = "relative"
	DateSourceHoliday  DateSource = "holiday-name"
	DateSourceInferred DateSource = "inferred"
)

// ReasonCode explains a null or rejected entity. Never paired with a guess.
type ReasonCode string

const (
	ReasonAmbiguousDate ReasonCode = "AMBIGUOUS_DATE"
	ReasonOutOfRange    ReasonCode = "OUT_OF_RANGE"
)

// DateEntity is an absolute calendar date resolved from message text.
// The Date is midnight UTC; only the civil date is meaningful.
type DateEntity struct {
	Date       time.Time  `json:"date"`
	Source     DateSource `json:"source"`
	Confidence float64    `json:"confidence"`
}

type IntEntity struct {
	Value      int     `json:"value"`
	Confidence float64 `json:"confidence"`
}

type AgesEntity struct {
	Ages       []int   `json:"ages"`
	Confidence float64 `json:"confidence"`
}

// ExtractedEntities is the transient output of one extraction pass. Nil
// pointers mean the guest did not address that slot this turn; a ReasonCode
// marks a slot the guest addressed but that could not be parsed safely.
type ExtractedEntities struct {
	Intent           Intent     `json:"intent"`
	IntentConfidence float64    `json:"intent_confidence"`
	CheckIn          *DateEntity `json:"check_in,omitempty"`
	CheckOut         *DateEntity `json:"check_out,omitempty"`
	Nights           *IntEntity  `json:"nights,omitempty"`
	DateReason       ReasonCode  `json:"date_reason,omitempty"`
	Adults           *IntEntity  `json:"adults,omitempty"`
	AdultsReason     ReasonCode  `json:"adults_reason,omitempty"`
	ChildCount       *IntEntity  `json:"child_count,omitempty"`
	ChildAges        *AgesEntity `json:"child_ages,omitempty"`
	ChildReason      ReasonCode  `json:"child_reason,omitempty"`
	RoomType         RoomType    `json:"room_type,omitempty"`
	MealPlan         MealPlan    `json:"meal_plan,omitempty"`
	Sentiment        float64     `json:"sentiment"`
	Language         string      `json:"language"`
	ExplicitChange   bool        `json:"explicit_change,omitempty"`
}

// PriorContext is the slice of session slots the extractor may consult to
// resolve pronouns and ellipsis. It never fills slots the guest did not
// address this turn.
type PriorContext struct {
	CheckIn      *time.Time
	CheckOut     *time.Time
	Adults       int
	AwaitingSlot string
	ActiveIntent Intent
}

// Turn is one inbound message from the transport collaborator. MessageID is
// the transport's delivery id and is the idempotency key for retries.
type Turn struct {
	Identity   string    `json:"identity"`
	MessageID  string    `json:"message_id,omitempty"`
	Text       string    `json:"text,omitempty"`
	MediaRefs  []string  `json:"media_refs,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// TurnResult is the outbound reply handed back to the transport collaborator.
type TurnResult struct {
	ReplyText    string   `json:"reply_text"`
	QuickReplies []string `json:"quick_replies,omitempty"`
	Action       Action   `json:"action"`
	Escalate     bool     `json:"escalate"`
}

// IntentScore is the structured output of the optional language-model
// scoring capability.
type IntentScore struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Sentiment  float64 `json:"sentiment"`
}

type AvailabilityResult struct {
	Available bool   `json:"available"`
	Note      string `json:"note,omitempty"`
}

type BookingRequest struct {
	Identity   string    `json:"identity"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Adults     int       `json:"adults"`
	ChildAges  []int     `json:"child_ages,omitempty"`
	RoomType   RoomType  `json:"room_type"`
	MealPlan   MealPlan  `json:"meal_plan"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
}

type BookingConfirmation struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
