// Package monitor decides when a conversation leaves the automated flow and
// goes to a human at reception. Escalation is one-way; this package only
// raises the flag, the session keeps it.
package monitor

import (
	"github.com/rs/zerolog"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	statex "github.com/hotelpassarim/concierge/agent/state"
	logx "github.com/hotelpassarim/concierge/pkg/logger"
)

const (
	// ReasonComplaint marks an explicit guest complaint.
	ReasonComplaint = "complaint"
	// ReasonSentiment marks a sustained negative sentiment window.
	ReasonSentiment = "negative_sentiment"
	// ReasonStuck marks a clarification loop that is not converging.
	ReasonStuck = "stuck_loop"
)

const (
	sentimentWindow    = 3
	sentimentThreshold = -0.5
	maxStuckTurns      = 3
)

type Monitor struct {
	log zerolog.Logger
}

func New() *Monitor {
	return &Monitor{log: logx.Component("monitor")}
}

// Evaluate inspects the session after the current turn was merged and
// reports whether it must be escalated, with the triggering reason. Sessions
// already escalated stay escalated regardless of later sentiment.
func (m *Monitor) Evaluate(st *statex.ConversationSession, intent contractx.Intent) (bool, string) {
	if st == nil {
		return false, ""
	}
	if st.Escalated {
		return true, ""
	}

	if intent == contractx.IntentComplaint {
		m.log.Info().Str("session_id", st.SessionID).Msg("escalating on complaint")
		return true, ReasonComplaint
	}

	if avg, n := st.RollingSentiment(sentimentWindow); n >= sentimentWindow && avg < sentimentThreshold {
		m.log.Info().
			Str("session_id", st.SessionID).
			Float64("avg_sentiment", avg).
			Msg("escalating on sustained negative sentiment")
		return true, ReasonSentiment
	}

	if st.StuckTurns > maxStuckTurns {
		m.log.Info().
			Str("session_id", st.SessionID).
			Int("stuck_turns", st.StuckTurns).
			Msg("escalating on clarification loop")
		return true, ReasonStuck
	}

	return false, ""
}
