// Package orchestrator wires the turn pipeline into a single entry point for
// transports (webhook handler, REPL).
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	"github.com/hotelpassarim/concierge/agent/monitor"
	nodex "github.com/hotelpassarim/concierge/agent/nodes"
	statex "github.com/hotelpassarim/concierge/agent/state"
	logx "github.com/hotelpassarim/concierge/pkg/logger"
)

var (
	ErrInvalidIdentity = nodex.ErrInvalidIdentity
	ErrEmptyTurn       = nodex.ErrEmptyTurn
)

type Orchestrator struct {
	store         statex.Store
	extractor     contractx.Extractor
	monitor       *monitor.Monitor
	collaborators nodex.Collaborators

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
	log zerolog.Logger
}

type Option func(*Orchestrator)

// WithNow pins the clock, mostly for tests and deterministic quoting.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(
	store statex.Store,
	extractor contractx.Extractor,
	collaborators nodex.Collaborators,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if extractor == nil {
		return nil, errors.New("entity extractor is required")
	}
	if collaborators.Rates == nil {
		return nil, errors.New("rate config is required")
	}
	if collaborators.Knowledge == nil {
		return nil, errors.New("knowledge base is required")
	}

	o := &Orchestrator{
		store:         store,
		extractor:     extractor,
		monitor:       monitor.New(),
		collaborators: collaborators,
		now:           time.Now,
		log:           logx.Component("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one inbound message end to end and returns the reply
// to send back on the guest's channel.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn contractx.Turn) (contractx.TurnResult, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Turn: turn})
	if err != nil {
		o.log.Error().Err(err).Str("identity", turn.Identity).Msg("turn failed")
		return contractx.TurnResult{}, err
	}
	return out.Result, nil
}
