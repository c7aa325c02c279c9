package nlu

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	"github.com/hotelpassarim/concierge/agent/pricing"
	logx "github.com/hotelpassarim/concierge/pkg/logger"
)

// scorerCutoff is the rule confidence below which the optional language-model
// scorer is consulted.
const scorerCutoff = 0.55

var intentStems = map[contractx.Intent][]string{
	contractx.IntentComplaint: {
		"reclama", "absurd", "pessim", "horrivel", "inaceitavel", "decepc",
		"nunca mais", "muito ruim", "frustr", "procon", "complaint", "unacceptable",
	},
	contractx.IntentBookingConfirm: {
		"confirmo", "pode confirmar", "confirmar a reserva", "fechado", "fechar a reserva",
		"aceito", "vamos fechar", "pode reservar", "confirm the booking",
	},
	contractx.IntentPriceInquiry: {
		"preco", "valor", "quanto custa", "quanto fica", "quanto sai", "diaria",
		"tarifa", "orcamento", "quero reservar", "gostaria de reservar", "fazer uma reserva",
		"how much", "price", "rate for",
	},
	contractx.IntentAvailability: {
		"disponib", "tem vaga", "tem quarto", "quarto livre", "vagas para", "available", "availability",
	},
	contractx.IntentServiceRequest: {
		"toalha", "limpeza", "arrumar o quarto", "travesseiro", "manutencao",
		"pode trazer", "preciso de", "room service", "servico de quarto", "late check",
	},
	contractx.IntentInfoRequest: {
		"wifi", "wi-fi", "senha", "horario", "check-in", "check in", "check-out", "check out",
		"restaurante", "piscina", "pet", "cachorro", "endereco", "como chegar",
		"estacionamento", "aceita cartao", "cafe da manha incluso", "what time", "address",
	},
	contractx.IntentGreeting: {
		"oi", "ola", "bom dia", "boa tarde", "boa noite", "tudo bem", "hello", "hi there", "hola",
	},
}

var changeStems = []string{
	"na verdade", "mudar", "troca", "ao inves", "melhor ", "errei", "corrigindo",
	"nao, ", "em vez de", "actually", "change it",
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
	"ñ", "n",
)

// RuleExtractor is the deterministic extraction pipeline. It is pure with
// respect to its inputs; an optional scorer is consulted only when the rules
// are inconclusive, and any scorer failure falls back to the rule result.
type RuleExtractor struct {
	rates  *pricing.RateConfig
	scorer contractx.IntentScorer
	log    zerolog.Logger
}

type Option func(*RuleExtractor)

// WithScorer attaches the language-model scoring capability.
func WithScorer(s contractx.IntentScorer) Option {
	return func(e *RuleExtractor) { e.scorer = s }
}

func New(rates *pricing.RateConfig, opts ...Option) *RuleExtractor {
	e := &RuleExtractor{rates: rates, log: logx.Component("nlu")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ contractx.Extractor = (*RuleExtractor)(nil)

func (e *RuleExtractor) Extract(ctx context.Context, text string, prior contractx.PriorContext, receivedAt time.Time) contractx.ExtractedEntities {
	norm := normalize(text)

	out := contractx.ExtractedEntities{
		Sentiment: scoreSentiment(norm),
		Language:  detectLanguage(norm),
	}

	dates := parseDates(norm, receivedAt, e.rates)
	out.CheckIn = dates.checkIn
	out.CheckOut = dates.checkOut
	out.Nights = dates.nights
	out.DateReason = dates.reason

	party := parseParty(norm, prior.AwaitingSlot == "child_ages")
	out.Adults = party.adults
	out.AdultsReason = party.adultsReason
	out.ChildCount = party.childCount
	out.ChildAges = party.childAges
	out.ChildReason = party.childReason

	out.RoomType = detectRoom(norm)
	out.MealPlan = detectMeal(norm)
	out.ExplicitChange = detectChange(norm)

	out.Intent, out.IntentConfidence = classify(norm, out, prior)

	if e.scorer != nil && out.IntentConfidence < scorerCutoff {
		if score, err := e.scorer.Score(ctx, text, out.Language); err != nil {
			e.log.Warn().Err(err).Msg("intent scorer failed, keeping rule result")
		} else if score.Confidence > out.IntentConfidence {
			out.Intent = score.Intent
			out.IntentConfidence = score.Confidence
			if out.Sentiment == 0 {
				out.Sentiment = score.Sentiment
			}
		}
	}
	return out
}

// classify scores each intent by stem hits. Ties resolve by intent priority.
// A message carrying only slot values while a slot is awaited keeps the
// active intent instead of falling to unknown.
func classify(norm string, ents contractx.ExtractedEntities, prior contractx.PriorContext) (contractx.Intent, float64) {
	tokens := map[string]bool{}
	for _, tok := range strings.FieldsFunc(norm, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		tokens[tok] = true
	}

	bestIntent := contractx.IntentUnknown
	bestHits := 0
	for _, intent := range []contractx.Intent{
		contractx.IntentComplaint,
		contractx.IntentBookingConfirm,
		contractx.IntentPriceInquiry,
		contractx.IntentAvailability,
		contractx.IntentServiceRequest,
		contractx.IntentInfoRequest,
		contractx.IntentGreeting,
	} {
		hits := 0
		for _, stem := range intentStems[intent] {
			if stemHit(norm, tokens, stem) {
				hits++
			}
		}
		if hits > bestHits {
			bestIntent = intent
			bestHits = hits
		}
	}
	if bestHits > 0 {
		return bestIntent, min(0.5+0.2*float64(bestHits), 0.95)
	}

	hasSlotValue := ents.CheckIn != nil || ents.CheckOut != nil || ents.Nights != nil ||
		ents.Adults != nil || ents.ChildAges != nil || ents.ChildCount != nil ||
		ents.RoomType != "" || ents.MealPlan != ""
	if hasSlotValue && (prior.AwaitingSlot != "" || prior.ActiveIntent != "" && prior.ActiveIntent != contractx.IntentUnknown) {
		if prior.ActiveIntent != "" {
			return prior.ActiveIntent, 0.6
		}
		return contractx.IntentPriceInquiry, 0.6
	}
	if hasSlotValue {
		return contractx.IntentPriceInquiry, 0.5
	}
	return contractx.IntentUnknown, 0.3
}

// stemHit matches short single-word stems against whole tokens so that "oi"
// does not fire inside "noite".
func stemHit(norm string, tokens map[string]bool, stem string) bool {
	if !strings.Contains(stem, " ") && len(stem) <= 3 {
		return tokens[stem]
	}
	return strings.Contains(norm, stem)
}

func detectRoom(norm string) contractx.RoomType {
	switch {
	case strings.Contains(norm, "terreo"):
		return contractx.RoomTerreo
	case strings.Contains(norm, "superior") || strings.Contains(norm, "andar de cima"):
		return contractx.RoomSuperior
	}
	return ""
}

func detectMeal(norm string) contractx.MealPlan {
	switch {
	case strings.Contains(norm, "pensao completa"):
		return contractx.MealFullBoard
	case strings.Contains(norm, "meia pensao"):
		return contractx.MealHalfBoard
	case strings.Contains(norm, "so cafe") || strings.Contains(norm, "apenas cafe") ||
		strings.Contains(norm, "com cafe da manha"):
		return contractx.MealBreakfast
	}
	return ""
}

func detectChange(norm string) bool {
	for _, stem := range changeStems {
		if strings.Contains(norm, stem) {
			return true
		}
	}
	return false
}

func normalize(text string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// Normalize lowercases and strips accents the same way the extractor does,
// for callers that match keywords against guest text.
func Normalize(text string) string {
	return normalize(text)
}
