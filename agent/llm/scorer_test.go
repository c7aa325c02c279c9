package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

type fakeChatModel struct {
	responses []*schema.Message
	err       error
	block     bool
	idx       int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func newFakeScorer(t *testing.T, fake *fakeChatModel, timeout time.Duration) *Scorer {
	t.Helper()
	s, err := NewScorer(context.Background(), fake, "scorer prompt", timeout)
	if err != nil {
		t.Fatalf("NewScorer() error = %v", err)
	}
	return s
}

func TestScorerScoreSuccess(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"intent":"price_inquiry","confidence":0.87,"sentiment":-0.1}`},
		},
	}
	s := newFakeScorer(t, fake, time.Second)

	out, err := s.Score(context.Background(), "quanto fica o fim de semana?", "pt")
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if out.Intent != contractx.IntentPriceInquiry {
		t.Fatalf("intent = %s, want %s", out.Intent, contractx.IntentPriceInquiry)
	}
	if out.Confidence != 0.87 {
		t.Fatalf("confidence = %v, want 0.87", out.Confidence)
	}
}

func TestScorerScoreClampsRanges(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"intent":"complaint","confidence":1.4,"sentiment":-3}`},
		},
	}
	s := newFakeScorer(t, fake, time.Second)

	out, err := s.Score(context.Background(), "pessimo", "pt")
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if out.Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", out.Confidence)
	}
	if out.Sentiment != -1 {
		t.Fatalf("sentiment = %v, want clamped to -1", out.Sentiment)
	}
}

func TestScorerScoreUnknownIntent(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{
			{Content: `{"intent":"weather_report","confidence":0.9,"sentiment":0}`},
		},
	}
	s := newFakeScorer(t, fake, time.Second)

	_, err := s.Score(context.Background(), "vai chover?", "pt")
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("err = %v, want %v", err, contractx.ErrSchemaViolation)
	}
}

func TestScorerScoreModelFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("upstream 500")}
	s := newFakeScorer(t, fake, time.Second)

	_, err := s.Score(context.Background(), "oi", "pt")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("err = %v, want %v", err, contractx.ErrModelInvoke)
	}
}

func TestScorerScoreTimeout(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{block: true}
	s := newFakeScorer(t, fake, 20*time.Millisecond)

	_, err := s.Score(context.Background(), "oi", "pt")
	if !errors.Is(err, contractx.ErrModelTimeout) {
		t.Fatalf("err = %v, want %v", err, contractx.ErrModelTimeout)
	}
}

func TestScorerScoreRejectsEmptyText(t *testing.T) {
	t.Parallel()

	s := newFakeScorer(t, &fakeChatModel{}, time.Second)

	_, err := s.Score(context.Background(), "   ", "pt")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("err = %v, want %v", err, contractx.ErrValidation)
	}
}
