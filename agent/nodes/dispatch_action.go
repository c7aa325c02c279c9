package turnnode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	"github.com/hotelpassarim/concierge/agent/knowledge"
	"github.com/hotelpassarim/concierge/agent/nlu"
	"github.com/hotelpassarim/concierge/agent/pricing"
	statex "github.com/hotelpassarim/concierge/agent/state"
	logx "github.com/hotelpassarim/concierge/pkg/logger"
)

// Collaborators bundles the external systems the dispatcher talks to. Only
// Rates and Knowledge are required; nil collaborators degrade to an apology
// that keeps the conversation going.
type Collaborators struct {
	Rates        *pricing.RateConfig
	Knowledge    *knowledge.Base
	Availability contractx.AvailabilityChecker
	Payments     contractx.PaymentLinker
	Desk         contractx.BookingDesk
	Handoff      contractx.HumanHandoff
}

const (
	replyGreeting     = "Olá! Bem-vindo ao Hotel Passarim. Posso te passar valores, verificar datas ou tirar dúvidas sobre o hotel. Como posso ajudar?"
	replyMediaOnly    = "Recebi seu anexo, mas por aqui só consigo ler mensagens de texto. Pode me escrever o que precisa?"
	replyFallback     = "Desculpe, não entendi muito bem. Pode me dizer de outro jeito? Posso ajudar com valores, reservas e informações do hotel."
	replyService      = "Anotado! Já passei seu pedido para a recepção, eles providenciam o quanto antes."
	replyHandoffFirst = "Entendi. Vou te passar agora para a nossa equipe da recepção, que segue com você por aqui. Só um instante!"
	replyHandoffAgain = "Nossa equipe da recepção já está cuidando do seu atendimento e responde em instantes."
	replyCollabDown   = "Estou com dificuldade para consultar o sistema agora. Pode tentar de novo em alguns minutos? Se preferir, a recepção confirma por telefone."
)

// DispatchAction renders the reply for the planned action, calling out to
// collaborators where the action needs them. Collaborator failures never
// fail the turn; the session keeps everything merged so far.
func DispatchAction(ctx context.Context, in *GraphState, c Collaborators) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Duplicate {
		if in.Reply == "" {
			in.Reply = replyFallback
		}
		return in, nil
	}
	log := logx.Component("dispatch")

	if in.MediaOnly {
		in.Reply = replyMediaOnly
		in.Session.LastAction = in.Action
		return in, nil
	}

	switch in.Action {
	case contractx.ActionGreet:
		in.Reply = replyGreeting
		in.QuickReplies = []string{"Ver valores", "Disponibilidade", "Informações do hotel"}

	case contractx.ActionClarify:
		if in.Session.Pending != nil {
			in.Reply = in.Session.Pending.Question
			if in.Session.Pending.Slot == SlotRoomType {
				in.QuickReplies = []string{"Quarto térreo", "Quarto superior"}
			}
			if in.Session.Pending.Slot == SlotMealPlan {
				in.QuickReplies = []string{"Café da manhã", "Meia pensão", "Pensão completa"}
			}
		} else {
			in.Reply = replyFallback
		}

	case contractx.ActionInfo:
		answer, _ := c.Knowledge.Answer(nlu.Normalize(in.Turn.Text))
		in.Reply = answer

	case contractx.ActionService:
		in.Reply = replyService

	case contractx.ActionQuote:
		in.Reply = quoteReply(in, c, log)

	case contractx.ActionAvailability:
		in.Reply = availabilityReply(ctx, in, c, log)

	case contractx.ActionBooking:
		in.Reply = bookingReply(ctx, in, c, log)

	case contractx.ActionHandoff:
		in.Reply = replyHandoffAgain
		if in.EscalationRaised {
			in.Reply = replyHandoffFirst
			if c.Handoff != nil {
				if err := c.Handoff.Notify(ctx, in.Turn.Identity, in.EscalationReason, in.Session.Transcript()); err != nil {
					log.Error().Err(err).Str("session_id", in.Session.SessionID).Msg("handoff notify failed")
				}
			}
		}

	default:
		in.Reply = replyFallback
	}

	switch in.Action {
	case contractx.ActionQuote, contractx.ActionAvailability, contractx.ActionBooking:
		in.Session.State = statex.StateActionDispatched
	}

	in.Session.LastAction = in.Action
	return in, nil
}

func stayFromSlots(in *GraphState) pricing.QuoteRequest {
	slots := in.Session.Slots
	req := pricing.QuoteRequest{
		CheckIn:  slots.CheckIn.Value,
		CheckOut: slots.CheckOut.Value,
		Adults:   slots.Adults.Value,
		Now:      in.Now,
	}
	if slots.ChildAges.Set {
		req.ChildAges = append([]int(nil), slots.ChildAges.Ages...)
	}
	if slots.RoomType.Set {
		req.RoomType = slots.RoomType.Value
	}
	if slots.MealPlan.Set {
		req.MealPlan = slots.MealPlan.Value
	}
	return req
}

func quoteReply(in *GraphState, c Collaborators, log zerolog.Logger) string {
	quotes, err := pricing.Quote(stayFromSlots(in), c.Rates)
	if err != nil {
		return pricingErrorReply(err, log)
	}
	return pricing.FormatQuotes(quotes)
}

func availabilityReply(ctx context.Context, in *GraphState, c Collaborators, log zerolog.Logger) string {
	slots := in.Session.Slots
	guests := slots.Adults.Value + len(slots.ChildAges.Ages)
	if c.Availability == nil {
		// without a channel manager the quote doubles as availability
		return quoteReply(in, c, log)
	}
	res, err := c.Availability.Check(ctx, slots.CheckIn.Value, slots.CheckOut.Value, guests)
	if err != nil {
		log.Error().Err(err).Str("session_id", in.Session.SessionID).Msg("availability check failed")
		return replyCollabDown
	}
	if !res.Available {
		reply := "Poxa, não temos quartos livres nessas datas."
		if res.Note != "" {
			reply += " " + res.Note
		}
		return reply + " Quer tentar outras datas?"
	}
	return "Boa notícia: temos disponibilidade para essas datas! Quer que eu monte os valores?"
}

func bookingReply(ctx context.Context, in *GraphState, c Collaborators, log zerolog.Logger) string {
	if c.Desk == nil {
		return replyCollabDown
	}

	quotes, err := pricing.Quote(stayFromSlots(in), c.Rates)
	if err != nil {
		return pricingErrorReply(err, log)
	}
	q := quotes[0]

	conf, err := c.Desk.Confirm(ctx, contractx.BookingRequest{
		Identity:   in.Turn.Identity,
		CheckIn:    q.CheckIn,
		CheckOut:   q.CheckOut,
		Adults:     q.Adults,
		ChildAges:  q.ChildAges,
		RoomType:   q.RoomType,
		MealPlan:   q.MealPlan,
		TotalCents: q.TotalCents,
		Currency:   q.Currency,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", in.Session.SessionID).Msg("booking confirm failed")
		return replyCollabDown
	}

	reply := fmt.Sprintf(
		"Reserva confirmada! Código %s, entrada %s e saída %s, total %s.",
		conf.Code,
		q.CheckIn.Format("02/01/2006"),
		q.CheckOut.Format("02/01/2006"),
		pricing.FormatBRL(q.TotalCents),
	)

	if c.Payments != nil {
		link, err := c.Payments.CreateLink(ctx, in.Turn.Identity, q.TotalCents, "Reserva "+conf.Code)
		if err != nil {
			log.Error().Err(err).Str("session_id", in.Session.SessionID).Msg("payment link failed")
			reply += " O link de pagamento chega em instantes pela recepção."
		} else {
			reply += " Para garantir, o pagamento pode ser feito por aqui: " + link
		}
	}
	return reply + " Qualquer coisa é só chamar!"
}

func pricingErrorReply(err error, log zerolog.Logger) string {
	var minErr *pricing.MinimumStayError
	if errors.As(err, &minErr) {
		return fmt.Sprintf(
			"Nessas datas vale o %s, com mínimo de %d noites. Quer ajustar as datas para aproveitar o pacote?",
			minErr.OverrideName, minErr.MinNights,
		)
	}
	if errors.Is(err, pricing.ErrUnsupportedOccupancy) {
		return "Nossos quartos acomodam até 4 adultos cada. Para grupos maiores a recepção monta uma combinação de quartos, quer que eu acione?"
	}
	if errors.Is(err, pricing.ErrInvalidStay) {
		return "Acho que as datas ficaram invertidas. Pode me confirmar o dia de entrada e o de saída?"
	}
	log.Error().Err(err).Msg("pricing failed")
	return replyCollabDown
}
