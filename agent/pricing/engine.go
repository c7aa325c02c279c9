package pricing

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

var (
	ErrInvalidStay          = errors.New("invalid stay range")
	ErrUnsupportedOccupancy = errors.New("unsupported occupancy")
	ErrInvalidChildAge      = errors.New("invalid child age")
	ErrMinimumStay          = errors.New("minimum stay not met")
)

// MinimumStayError names the holiday override whose minimum-nights rule the
// requested stay violates.
type MinimumStayError struct {
	OverrideKey  string
	OverrideName string
	MinNights    int
	Nights       int
}

func (e *MinimumStayError) Error() string {
	return fmt.Sprintf("%s requires a minimum of %d nights, got %d", e.OverrideName, e.MinNights, e.Nights)
}

func (e *MinimumStayError) Unwrap() error { return ErrMinimumStay }

const maxAdultsPerRoom = 4

// QuoteRequest is one pricing query. Now is the clock used for early-booking
// discount cutoffs; passing it in keeps the engine deterministic.
type QuoteRequest struct {
	CheckIn   time.Time
	CheckOut  time.Time
	Adults    int
	ChildAges []int
	RoomType  contractx.RoomType // empty = all room types
	MealPlan  contractx.MealPlan // empty = all meal plans
	PromoCode string             // empty = no code; unknown codes are ignored
	Now       time.Time
}

func (r QuoteRequest) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// LineItem is one priced component of a quote. RuleID identifies the rate
// rule that produced the amount, for audit reproducibility.
type LineItem struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Nights      int    `json:"nights,omitempty"`
	UnitCents   int64  `json:"unit_cents,omitempty"`
	TotalCents  int64  `json:"total_cents"`
}

// ReservationQuote is an immutable itemized quote for one room/meal option.
type ReservationQuote struct {
	RoomType      contractx.RoomType `json:"room_type"`
	MealPlan      contractx.MealPlan `json:"meal_plan"`
	CheckIn       time.Time          `json:"check_in"`
	CheckOut      time.Time          `json:"check_out"`
	Nights        int                `json:"nights"`
	Adults        int                `json:"adults"`
	ChildAges     []int              `json:"child_ages,omitempty"`
	Lines         []LineItem         `json:"lines"`
	SubtotalCents int64              `json:"subtotal_cents"`
	TotalCents    int64              `json:"total_cents"`
	Currency      string             `json:"currency"`
}

// staySegment is a contiguous run of nights priced under the same regime.
type staySegment struct {
	start    time.Time
	nights   int
	override *HolidayOverride // nil for the normal table
}

// Quote prices a stay. When room type or meal plan are unset it returns the
// full cartesian set of options so the caller can present choices. Identical
// inputs always produce identical quotes.
func Quote(req QuoteRequest, cfg *RateConfig) ([]ReservationQuote, error) {
	if cfg == nil {
		return nil, errors.New("rate config is nil")
	}
	if req.CheckIn.IsZero() || req.CheckOut.IsZero() || !req.CheckIn.Before(req.CheckOut) {
		return nil, fmt.Errorf("%w: check-in must precede check-out", ErrInvalidStay)
	}
	nights := req.Nights()
	if nights < 1 {
		return nil, fmt.Errorf("%w: at least one night required", ErrInvalidStay)
	}
	if req.Adults < 1 || req.Adults > maxAdultsPerRoom {
		return nil, fmt.Errorf("%w: adults=%d, supported range is 1..%d", ErrUnsupportedOccupancy, req.Adults, maxAdultsPerRoom)
	}
	for _, age := range req.ChildAges {
		if age < 0 || age > 17 {
			return nil, fmt.Errorf("%w: age=%d", ErrInvalidChildAge, age)
		}
	}

	segments := segmentStay(req.CheckIn, nights, cfg)

	// Minimum-stay gates apply to the total stay length, and a violation
	// fails the whole query rather than quoting only the compliant nights.
	for _, seg := range segments {
		if seg.override != nil && seg.override.MinNights > nights {
			return nil, &MinimumStayError{
				OverrideKey:  seg.override.Key,
				OverrideName: seg.override.Name,
				MinNights:    seg.override.MinNights,
				Nights:       nights,
			}
		}
	}

	rooms := contractx.RoomTypes()
	if req.RoomType != "" {
		rooms = []contractx.RoomType{req.RoomType}
	}
	meals := contractx.MealPlans()
	if req.MealPlan != "" {
		meals = []contractx.MealPlan{req.MealPlan}
	}

	// Holiday packages only sell full board; when any segment is priced from
	// a package table the meal-plan axis collapses.
	for _, seg := range segments {
		if seg.override != nil && seg.override.HasPackages() {
			meals = []contractx.MealPlan{contractx.MealFullBoard}
			break
		}
	}

	quotes := make([]ReservationQuote, 0, len(rooms)*len(meals))
	for _, room := range rooms {
		for _, meal := range meals {
			q, err := buildQuote(req, cfg, segments, room, meal, nights)
			if err != nil {
				return nil, err
			}
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

func segmentStay(checkIn time.Time, nights int, cfg *RateConfig) []staySegment {
	var segments []staySegment
	for i := 0; i < nights; i++ {
		night := checkIn.AddDate(0, 0, i)
		override := cfg.OverrideForNight(night)
		if n := len(segments); n > 0 && sameOverride(segments[n-1].override, override) {
			segments[n-1].nights++
			continue
		}
		segments = append(segments, staySegment{start: night, nights: 1, override: override})
	}
	return segments
}

func sameOverride(a, b *HolidayOverride) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key == b.Key
}

func buildQuote(
	req QuoteRequest,
	cfg *RateConfig,
	segments []staySegment,
	room contractx.RoomType,
	meal contractx.MealPlan,
	nights int,
) (ReservationQuote, error) {
	var lines []LineItem

	for _, seg := range segments {
		if seg.override != nil {
			if pkg, ok := seg.override.PackageFor(room, seg.nights); ok {
				segLines, err := packageLines(req, cfg, seg, pkg, room)
				if err != nil {
					return ReservationQuote{}, err
				}
				lines = append(lines, segLines...)
				continue
			}
		}
		segLines, err := normalLines(req, cfg, seg, room, meal)
		if err != nil {
			return ReservationQuote{}, err
		}
		lines = append(lines, segLines...)
	}

	lines = appendPromoLine(lines, req, cfg, segments)

	var subtotal, total int64
	for _, l := range lines {
		if l.TotalCents > 0 {
			subtotal += l.TotalCents
		}
		total += l.TotalCents
	}

	return ReservationQuote{
		RoomType:      room,
		MealPlan:      meal,
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		Nights:        nights,
		Adults:        req.Adults,
		ChildAges:     append([]int(nil), req.ChildAges...),
		Lines:         lines,
		SubtotalCents: subtotal,
		TotalCents:    total,
		Currency:      cfg.Currency,
	}, nil
}

func normalLines(
	req QuoteRequest,
	cfg *RateConfig,
	seg staySegment,
	room contractx.RoomType,
	meal contractx.MealPlan,
) ([]LineItem, error) {
	base, ok := cfg.NightlyRate(room, req.Adults, meal)
	if !ok {
		return nil, fmt.Errorf("%w: no rate for room=%s adults=%d meal=%s", ErrUnsupportedOccupancy, room, req.Adults, meal)
	}

	lines := []LineItem{{
		RuleID:      fmt.Sprintf("normal:%s:%dad:%s", room, req.Adults, meal),
		Description: fmt.Sprintf("%d adulto(s), %s, %s", req.Adults, roomLabel(room), mealLabel(meal)),
		Nights:      seg.nights,
		UnitCents:   base,
		TotalCents:  base * int64(seg.nights),
	}}

	for _, age := range req.ChildAges {
		band, charged := cfg.BandForAge(age)
		if !charged {
			continue
		}
		unit := band.Nightly[meal]
		lines = append(lines, LineItem{
			RuleID:      fmt.Sprintf("child:%s:%s", band.Key, meal),
			Description: fmt.Sprintf("criança %d anos", age),
			Nights:      seg.nights,
			UnitCents:   unit,
			TotalCents:  unit * int64(seg.nights),
		})
	}
	return lines, nil
}

func packageLines(
	req QuoteRequest,
	cfg *RateConfig,
	seg staySegment,
	pkg PackageRate,
	room contractx.RoomType,
) ([]LineItem, error) {
	base, ok := pkg.Adults[req.Adults]
	if !ok {
		return nil, fmt.Errorf("%w: package %s has no rate for %d adults", ErrUnsupportedOccupancy, seg.override.Key, req.Adults)
	}

	lines := []LineItem{{
		RuleID:      fmt.Sprintf("holiday:%s:%s:%dn:%dad", seg.override.Key, room, seg.nights, req.Adults),
		Description: fmt.Sprintf("%s, %s, %d noite(s)", seg.override.Name, roomLabel(room), seg.nights),
		Nights:      seg.nights,
		TotalCents:  base,
	}}

	var segTotal = base
	for _, age := range req.ChildAges {
		band, charged := cfg.BandForAge(age)
		if !charged {
			continue
		}
		if pkgPrice, ok := pkg.ChildBand[band.Key]; ok {
			lines = append(lines, LineItem{
				RuleID:      fmt.Sprintf("holiday:%s:child:%s", seg.override.Key, band.Key),
				Description: fmt.Sprintf("criança %d anos", age),
				Nights:      seg.nights,
				TotalCents:  pkgPrice,
			})
			segTotal += pkgPrice
			continue
		}
		// band outside the package table: nightly full-board rate
		unit := band.Nightly[contractx.MealFullBoard]
		lines = append(lines, LineItem{
			RuleID:      fmt.Sprintf("child:%s:%s", band.Key, contractx.MealFullBoard),
			Description: fmt.Sprintf("criança %d anos", age),
			Nights:      seg.nights,
			UnitCents:   unit,
			TotalCents:  unit * int64(seg.nights),
		})
		segTotal += unit * int64(seg.nights)
	}

	if seg.override.DiscountPercent > 0 && !seg.override.DiscountUntil.IsZero() && !dayOf(req.Now).After(seg.override.DiscountUntil) {
		discount := segTotal * int64(seg.override.DiscountPercent) / 100
		lines = append(lines, LineItem{
			RuleID:      fmt.Sprintf("holiday:%s:early_booking", seg.override.Key),
			Description: fmt.Sprintf("desconto antecipado %d%%", seg.override.DiscountPercent),
			TotalCents:  -discount,
		})
	}

	return lines, nil
}

// appendPromoLine applies the request's discount code to the quote. Unknown
// codes leave the quote untouched, and a code that excludes holidays is
// ignored when any night of the stay falls under an override.
func appendPromoLine(lines []LineItem, req QuoteRequest, cfg *RateConfig, segments []staySegment) []LineItem {
	if req.PromoCode == "" {
		return lines
	}
	promo, ok := cfg.PromoByCode(req.PromoCode)
	if !ok {
		return lines
	}
	if promo.ExcludesHolidays {
		for _, seg := range segments {
			if seg.override != nil {
				return lines
			}
		}
	}

	var sum int64
	for _, l := range lines {
		sum += l.TotalCents
	}
	discount := sum * int64(promo.DiscountPercent) / 100
	if discount <= 0 {
		return lines
	}
	return append(lines, LineItem{
		RuleID:      "promo:" + promo.Key,
		Description: fmt.Sprintf("%s (-%d%%)", promo.Description, promo.DiscountPercent),
		TotalCents:  -discount,
	})
}

func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
