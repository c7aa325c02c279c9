package turnnode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	statex "github.com/hotelpassarim/concierge/agent/state"
)

var (
	ErrInvalidIdentity = errors.New("turn identity is empty")
	ErrEmptyTurn       = errors.New("turn has no text and no media")
)

type GraphInput struct {
	Turn contractx.Turn
}

type GraphOutput struct {
	Result contractx.TurnResult
}

// GraphState flows through the turn pipeline. Each node reads what earlier
// nodes produced and fills in its own part.
type GraphState struct {
	Turn    contractx.Turn
	TurnKey string
	Now     time.Time

	// MediaOnly marks a turn that carried attachments but no text.
	MediaOnly bool

	Session  *statex.ConversationSession
	Entities contractx.ExtractedEntities

	// Duplicate marks a webhook retry; Reply then replays the original answer.
	Duplicate bool

	Action       contractx.Action
	Reply        string
	QuickReplies []string

	// PendingSet and PendingCleared record what this turn did to the open
	// clarification, so a conflict replay can redo it on a fresh session.
	PendingSet     *statex.Clarification
	PendingCleared bool

	// EscalationRaised is true only on the turn the escalation first fired.
	EscalationRaised bool
	EscalationReason string
}

// ValidateTurn checks the inbound turn and derives the idempotency key.
func ValidateTurn(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	identity := strings.TrimSpace(in.Turn.Identity)
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	text := strings.TrimSpace(in.Turn.Text)
	if text == "" && len(in.Turn.MediaRefs) == 0 {
		return nil, ErrEmptyTurn
	}

	now := nowFn().UTC()
	receivedAt := in.Turn.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}

	key := strings.TrimSpace(in.Turn.MessageID)
	if key == "" {
		key = fmt.Sprintf("%s:%d", identity, receivedAt.UnixMilli())
	}

	turn := in.Turn
	turn.Identity = identity
	turn.Text = text
	turn.ReceivedAt = receivedAt

	return &GraphState{
		Turn:      turn,
		TurnKey:   key,
		Now:       now,
		MediaOnly: text == "" && len(in.Turn.MediaRefs) > 0,
	}, nil
}
