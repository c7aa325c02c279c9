package turnnode

import (
	"fmt"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	"github.com/hotelpassarim/concierge/agent/monitor"
	statex "github.com/hotelpassarim/concierge/agent/state"
)

// Slot names used in clarifications.
const (
	SlotCheckIn   = "check_in"
	SlotCheckOut  = "check_out"
	SlotAdults    = "adults"
	SlotChildAges = "child_ages"
	SlotRoomType  = "room_type"
	SlotMealPlan  = "meal_plan"
)

var clarifyQuestions = map[string]string{
	SlotCheckIn:   "Para qual data você gostaria de vir? Pode me dizer o dia de entrada.",
	SlotCheckOut:  "Até quando você pretende ficar? Pode ser a data de saída ou o número de noites.",
	SlotAdults:    "Quantos adultos serão?",
	SlotChildAges: "Qual a idade das crianças? Assim consigo calcular o valor certinho.",
	SlotRoomType:  "Você prefere o quarto térreo ou o superior?",
	SlotMealPlan:  "Qual opção de refeição: só café da manhã, meia pensão ou pensão completa?",
}

var reasonQuestions = map[contractx.ReasonCode]map[string]string{
	contractx.ReasonAmbiguousDate: {
		SlotCheckIn: "Não consegui entender a data. Pode me dizer no formato dia/mês, por exemplo 10/02?",
	},
	contractx.ReasonOutOfRange: {
		SlotAdults:    "Nossos quartos acomodam até 4 adultos. Para grupos maiores, a recepção monta um pacote especial. Quantos adultos por quarto?",
		SlotChildAges: "Não consegui entender as idades. As crianças têm até 17 anos?",
	},
}

// PlanAction is the dialogue state machine. It decides the single action for
// the turn, maintains the pending clarification, and raises escalation.
func PlanAction(in *GraphState, mon *monitor.Monitor) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Duplicate {
		return in, nil
	}
	st := in.Session

	if in.MediaOnly {
		in.Action = contractx.ActionClarify
		return in, nil
	}

	if escalate, reason := mon.Evaluate(st, in.Entities.Intent); escalate {
		if !st.Escalated {
			st.Escalate(reason)
			in.EscalationRaised = true
			in.EscalationReason = reason
		}
		in.Action = contractx.ActionHandoff
		return in, nil
	}

	// A slot the guest addressed but that could not be parsed safely gets a
	// targeted follow-up before anything else.
	if slot, question, ok := reasonClarification(in.Entities); ok {
		c := statex.Clarification{Slot: slot, Question: question, Intent: activeIntent(st, in.Entities.Intent)}
		st.SetPending(c)
		in.PendingSet = &c
		in.Action = contractx.ActionClarify
		return in, nil
	}

	switch in.Entities.Intent {
	case contractx.IntentGreeting:
		in.Action = contractx.ActionGreet

	case contractx.IntentInfoRequest:
		in.Action = contractx.ActionInfo

	case contractx.IntentServiceRequest:
		in.Action = contractx.ActionService

	case contractx.IntentPriceInquiry, contractx.IntentAvailability, contractx.IntentBookingConfirm:
		intent := in.Entities.Intent
		if slot, ok := missingSlot(st, in.Entities, intent); ok {
			c := statex.Clarification{Slot: slot, Question: clarifyQuestions[slot], Intent: intent}
			st.SetPending(c)
			in.PendingSet = &c
			in.Action = contractx.ActionClarify
			return in, nil
		}
		st.ClearPending()
		in.PendingCleared = true
		st.State = statex.StateReadyToAct
		switch intent {
		case contractx.IntentPriceInquiry:
			in.Action = contractx.ActionQuote
		case contractx.IntentAvailability:
			in.Action = contractx.ActionAvailability
		default:
			in.Action = contractx.ActionBooking
		}

	default:
		// unknown: repeat the open question if one exists
		if st.Pending != nil {
			c := *st.Pending
			st.SetPending(c)
			in.PendingSet = &c
		}
		in.Action = contractx.ActionClarify
	}
	return in, nil
}

// missingSlot returns the first required slot still unfilled for the intent.
// The asking order mirrors how a receptionist would take the booking.
func missingSlot(st *statex.ConversationSession, ents contractx.ExtractedEntities, intent contractx.Intent) (string, bool) {
	if !st.Slots.CheckIn.Set {
		return SlotCheckIn, true
	}
	if !st.Slots.CheckOut.Set {
		return SlotCheckOut, true
	}
	if !st.Slots.Adults.Set {
		return SlotAdults, true
	}
	if ents.ChildCount != nil && ents.ChildCount.Value > 0 && !st.Slots.ChildAges.Set {
		return SlotChildAges, true
	}
	if intent == contractx.IntentBookingConfirm {
		if !st.Slots.RoomType.Set {
			return SlotRoomType, true
		}
		if !st.Slots.MealPlan.Set {
			return SlotMealPlan, true
		}
	}
	return "", false
}

func reasonClarification(ents contractx.ExtractedEntities) (string, string, bool) {
	if ents.DateReason != "" {
		if q, ok := reasonQuestions[ents.DateReason][SlotCheckIn]; ok {
			return SlotCheckIn, q, true
		}
	}
	if ents.AdultsReason != "" {
		if q, ok := reasonQuestions[ents.AdultsReason][SlotAdults]; ok {
			return SlotAdults, q, true
		}
	}
	if ents.ChildReason != "" {
		if q, ok := reasonQuestions[ents.ChildReason][SlotChildAges]; ok {
			return SlotChildAges, q, true
		}
	}
	return "", "", false
}

func activeIntent(st *statex.ConversationSession, fallback contractx.Intent) contractx.Intent {
	if st.Pending != nil && st.Pending.Intent != "" {
		return st.Pending.Intent
	}
	if fallback != "" && fallback != contractx.IntentUnknown {
		return fallback
	}
	return contractx.IntentPriceInquiry
}
