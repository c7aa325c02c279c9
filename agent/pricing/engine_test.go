package pricing

import (
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

func TestQuoteNormalStay(t *testing.T) {
	cfg := mustRates(t)

	quotes, err := Quote(QuoteRequest{
		CheckIn:  day(2025, time.June, 10),
		CheckOut: day(2025, time.June, 12),
		Adults:   2,
		RoomType: contractx.RoomTerreo,
		MealPlan: contractx.MealBreakfast,
		Now:      day(2025, time.June, 1),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if got := quotes[0].TotalCents; got != 58000 {
		t.Errorf("total = %d, want 58000", got)
	}
	if quotes[0].Nights != 2 {
		t.Errorf("nights = %d, want 2", quotes[0].Nights)
	}
}

func TestQuoteWithChildren(t *testing.T) {
	cfg := mustRates(t)

	quotes, err := Quote(QuoteRequest{
		CheckIn:   day(2025, time.June, 10),
		CheckOut:  day(2025, time.June, 11),
		Adults:    2,
		ChildAges: []int{4, 7, 1},
		RoomType:  contractx.RoomTerreo,
		MealPlan:  contractx.MealBreakfast,
		Now:       day(2025, time.June, 1),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// 290 base + 40 (age 4) + 50 (age 7), age 1 stays free
	if got := quotes[0].TotalCents; got != 38000 {
		t.Errorf("total = %d, want 38000", got)
	}
	if got := len(quotes[0].Lines); got != 3 {
		t.Errorf("line items = %d, want 3", got)
	}
}

func TestQuoteCartesianIsDeterministic(t *testing.T) {
	cfg := mustRates(t)

	req := QuoteRequest{
		CheckIn:  day(2025, time.June, 10),
		CheckOut: day(2025, time.June, 12),
		Adults:   2,
		Now:      day(2025, time.June, 1),
	}
	first, err := Quote(req, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(first) != 6 {
		t.Fatalf("got %d quotes, want 6 (2 rooms x 3 meal plans)", len(first))
	}
	if first[0].RoomType != contractx.RoomTerreo || first[0].MealPlan != contractx.MealBreakfast {
		t.Errorf("first quote = %s/%s, want terreo/cafe_da_manha", first[0].RoomType, first[0].MealPlan)
	}

	second, err := Quote(req, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	for i := range first {
		if first[i].TotalCents != second[i].TotalCents ||
			first[i].RoomType != second[i].RoomType ||
			first[i].MealPlan != second[i].MealPlan {
			t.Fatalf("quote %d differs between identical queries", i)
		}
	}
}

func TestQuoteRejectsBadInput(t *testing.T) {
	cfg := mustRates(t)
	now := day(2025, time.June, 1)

	_, err := Quote(QuoteRequest{
		CheckIn:  day(2025, time.June, 12),
		CheckOut: day(2025, time.June, 10),
		Adults:   2,
		Now:      now,
	}, cfg)
	if !errors.Is(err, ErrInvalidStay) {
		t.Errorf("inverted range: err = %v, want ErrInvalidStay", err)
	}

	_, err = Quote(QuoteRequest{
		CheckIn:  day(2025, time.June, 10),
		CheckOut: day(2025, time.June, 12),
		Adults:   5,
		Now:      now,
	}, cfg)
	if !errors.Is(err, ErrUnsupportedOccupancy) {
		t.Errorf("5 adults: err = %v, want ErrUnsupportedOccupancy", err)
	}

	_, err = Quote(QuoteRequest{
		CheckIn:   day(2025, time.June, 10),
		CheckOut:  day(2025, time.June, 12),
		Adults:    2,
		ChildAges: []int{22},
		Now:       now,
	}, cfg)
	if !errors.Is(err, ErrInvalidChildAge) {
		t.Errorf("age 22: err = %v, want ErrInvalidChildAge", err)
	}
}

func TestQuoteHolidayMinimumStay(t *testing.T) {
	cfg := mustRates(t)

	_, err := Quote(QuoteRequest{
		CheckIn:  day(2025, time.April, 18),
		CheckOut: day(2025, time.April, 20),
		Adults:   2,
		RoomType: contractx.RoomTerreo,
		Now:      day(2025, time.April, 10),
	}, cfg)
	var minErr *MinimumStayError
	if !errors.As(err, &minErr) {
		t.Fatalf("err = %v, want MinimumStayError", err)
	}
	if !errors.Is(err, ErrMinimumStay) {
		t.Error("MinimumStayError should unwrap to ErrMinimumStay")
	}
	if minErr.OverrideKey != "pascoa" || minErr.MinNights != 3 || minErr.Nights != 2 {
		t.Errorf("MinimumStayError = %+v", minErr)
	}
}

func TestQuoteHolidayPackage(t *testing.T) {
	cfg := mustRates(t)

	// booked after the early-booking cutoff, no discount
	quotes, err := Quote(QuoteRequest{
		CheckIn:  day(2025, time.April, 17),
		CheckOut: day(2025, time.April, 20),
		Adults:   2,
		RoomType: contractx.RoomTerreo,
		Now:      day(2025, time.April, 10),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// packages sell full board only, so the meal-plan axis collapses
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if quotes[0].MealPlan != contractx.MealFullBoard {
		t.Errorf("meal plan = %s, want pensao_completa", quotes[0].MealPlan)
	}
	if got := quotes[0].TotalCents; got != 270930 {
		t.Errorf("total = %d, want 270930", got)
	}
}

func TestQuoteHolidayEarlyBookingDiscount(t *testing.T) {
	cfg := mustRates(t)

	quotes, err := Quote(QuoteRequest{
		CheckIn:  day(2025, time.April, 17),
		CheckOut: day(2025, time.April, 20),
		Adults:   2,
		RoomType: contractx.RoomTerreo,
		Now:      day(2025, time.April, 1),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// 270930 minus 10% early-booking discount
	if got := quotes[0].TotalCents; got != 243837 {
		t.Errorf("total = %d, want 243837", got)
	}
	last := quotes[0].Lines[len(quotes[0].Lines)-1]
	if last.TotalCents != -27093 {
		t.Errorf("discount line = %d, want -27093", last.TotalCents)
	}
	if quotes[0].SubtotalCents != 270930 {
		t.Errorf("subtotal = %d, want 270930", quotes[0].SubtotalCents)
	}
}

func TestQuoteHolidayPackageWithChild(t *testing.T) {
	cfg := mustRates(t)

	quotes, err := Quote(QuoteRequest{
		CheckIn:   day(2025, time.April, 17),
		CheckOut:  day(2025, time.April, 20),
		Adults:    2,
		ChildAges: []int{4},
		RoomType:  contractx.RoomTerreo,
		Now:       day(2025, time.April, 10),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// 270930 package + 79860 child band 3-5
	if got := quotes[0].TotalCents; got != 350790 {
		t.Errorf("total = %d, want 350790", got)
	}
}

func TestQuoteMinNightsHolidayWithoutPackages(t *testing.T) {
	cfg := mustRates(t)

	// natal has a minimum-stay rule but no own price table
	_, err := Quote(QuoteRequest{
		CheckIn:  day(2025, time.December, 23),
		CheckOut: day(2025, time.December, 25),
		Adults:   2,
		RoomType: contractx.RoomTerreo,
		MealPlan: contractx.MealBreakfast,
		Now:      day(2025, time.December, 1),
	}, cfg)
	if !errors.Is(err, ErrMinimumStay) {
		t.Fatalf("2 nights at natal: err = %v, want ErrMinimumStay", err)
	}

	quotes, err := Quote(QuoteRequest{
		CheckIn:  day(2025, time.December, 23),
		CheckOut: day(2025, time.December, 26),
		Adults:   2,
		RoomType: contractx.RoomTerreo,
		MealPlan: contractx.MealBreakfast,
		Now:      day(2025, time.December, 1),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// priced from the normal table: 290 x 3 nights
	if got := quotes[0].TotalCents; got != 87000 {
		t.Errorf("total = %d, want 87000", got)
	}
	if quotes[0].MealPlan != contractx.MealBreakfast {
		t.Errorf("meal plan = %s, want cafe_da_manha", quotes[0].MealPlan)
	}
}

func TestQuoteMixedNormalAndHolidaySegments(t *testing.T) {
	cfg := mustRates(t)

	// 2 normal nights (Apr 15, 16) then the 3-night easter package
	quotes, err := Quote(QuoteRequest{
		CheckIn:  day(2025, time.April, 15),
		CheckOut: day(2025, time.April, 20),
		Adults:   2,
		RoomType: contractx.RoomTerreo,
		Now:      day(2025, time.April, 10),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(quotes) != 1 || quotes[0].MealPlan != contractx.MealFullBoard {
		t.Fatalf("quotes = %+v, want single full-board option", quotes)
	}
	// 610 x 2 normal full-board nights + 2709.30 package
	if got := quotes[0].TotalCents; got != 392930 {
		t.Errorf("total = %d, want 392930", got)
	}
}

func TestQuotePromoCodeDiscount(t *testing.T) {
	cfg := mustRates(t)

	quotes, err := Quote(QuoteRequest{
		CheckIn:   day(2025, time.June, 10),
		CheckOut:  day(2025, time.June, 12),
		Adults:    2,
		RoomType:  contractx.RoomTerreo,
		MealPlan:  contractx.MealBreakfast,
		PromoCode: "soc10",
		Now:       day(2025, time.June, 1),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	q := quotes[0]
	if q.TotalCents != 52200 {
		t.Errorf("total = %d, want 52200", q.TotalCents)
	}
	last := q.Lines[len(q.Lines)-1]
	if last.RuleID != "promo:SOC10" || last.TotalCents != -5800 {
		t.Errorf("promo line = %+v, want promo:SOC10 for -5800", last)
	}
}

func TestQuotePromoCodeSkipsHolidayStay(t *testing.T) {
	cfg := mustRates(t)

	quotes, err := Quote(QuoteRequest{
		CheckIn:   day(2025, time.April, 17),
		CheckOut:  day(2025, time.April, 21),
		Adults:    2,
		RoomType:  contractx.RoomTerreo,
		PromoCode: "SOC10",
		Now:       day(2025, time.April, 10),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	for _, l := range quotes[0].Lines {
		if strings.HasPrefix(l.RuleID, "promo:") {
			t.Errorf("holiday stay must not carry a promo line, got %+v", l)
		}
	}
}

func TestQuoteUnknownPromoCodeIgnored(t *testing.T) {
	cfg := mustRates(t)

	req := QuoteRequest{
		CheckIn:  day(2025, time.June, 10),
		CheckOut: day(2025, time.June, 12),
		Adults:   2,
		RoomType: contractx.RoomTerreo,
		MealPlan: contractx.MealBreakfast,
		Now:      day(2025, time.June, 1),
	}
	plain, err := Quote(req, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	req.PromoCode = "NADA99"
	coded, err := Quote(req, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if plain[0].TotalCents != coded[0].TotalCents || len(plain[0].Lines) != len(coded[0].Lines) {
		t.Errorf("unknown code changed the quote: %d vs %d", plain[0].TotalCents, coded[0].TotalCents)
	}
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{58000, "R$ 580,00"},
		{270930, "R$ 2.709,30"},
		{123456789, "R$ 1.234.567,89"},
		{-27093, "-R$ 270,93"},
		{5, "R$ 0,05"},
	}
	for _, c := range cases {
		if got := FormatBRL(c.cents); got != c.want {
			t.Errorf("FormatBRL(%d) = %q, want %q", c.cents, got, c.want)
		}
	}
}

func TestFormatQuotes(t *testing.T) {
	cfg := mustRates(t)

	quotes, err := Quote(QuoteRequest{
		CheckIn:  day(2025, time.June, 10),
		CheckOut: day(2025, time.June, 12),
		Adults:   2,
		Now:      day(2025, time.June, 1),
	}, cfg)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	msg := FormatQuotes(quotes)
	for _, want := range []string{
		"10/06/2025",
		"12/06/2025",
		"2 noites",
		"Café da manhã",
		"Meia pensão",
		"Pensão completa",
		"R$ 580,00",
		"Posso confirmar a reserva",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
