package contract

import (
	"context"
	"time"
)

// Extractor turns raw message text into typed intent and entities. The
// rule-based path is pure; implementations may consult a scoring model but
// must fall back to rules on any model failure.
type Extractor interface {
	Extract(ctx context.Context, text string, prior PriorContext, receivedAt time.Time) ExtractedEntities
}

// IntentScorer is the pluggable language-model capability used only when
// rule-based heuristics are inconclusive.
type IntentScorer interface {
	Score(ctx context.Context, text string, language string) (IntentScore, error)
}

// AvailabilityChecker is the external availability collaborator.
type AvailabilityChecker interface {
	Check(ctx context.Context, checkIn, checkOut time.Time, guests int) (AvailabilityResult, error)
}

// PaymentLinker generates a payment link for a quoted amount.
type PaymentLinker interface {
	CreateLink(ctx context.Context, identity string, amountCents int64, description string) (string, error)
}

// BookingDesk confirms reservations with the property system.
type BookingDesk interface {
	Confirm(ctx context.Context, req BookingRequest) (BookingConfirmation, error)
}

// HumanHandoff notifies the reception channel that a session was escalated.
type HumanHandoff interface {
	Notify(ctx context.Context, identity string, reason string, transcript []string) error
}
