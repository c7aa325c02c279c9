package pricing

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	configx "github.com/hotelpassarim/concierge/pkg/config"
)

//go:embed rates.yaml
var defaultRatesYAML []byte

// RateConfig is the immutable pricing configuration: the normal rate table,
// child age bands, and the holiday override calendar. Loaded once at process
// start; the engine never mutates it.
type RateConfig struct {
	Currency string
	Timezone string

	loc *time.Location

	// rooms[room][adults][meal] = nightly price in cents
	rooms map[contractx.RoomType]map[int]map[contractx.MealPlan]int64

	bands    []ChildBand
	holidays []HolidayOverride
	promos   map[string]PromoCode
}

// PromoCode is an operator-issued discount code. Codes that exclude holidays
// never discount a stay touching an override interval.
type PromoCode struct {
	Key              string
	Description      string
	DiscountPercent  int
	ExcludesHolidays bool
}

// ChildBand is one child-age pricing tier. A band without nightly rates is
// free (infants). Ages outside every band are free as well.
type ChildBand struct {
	Key     string
	MinAge  int
	MaxAge  int
	Nightly map[contractx.MealPlan]int64
}

// HolidayOverride is a named calendar interval with its own minimum-stay rule
// and, optionally, its own package price table. Package prices are totals per
// stay length, not nightly rates, and always sell full board.
type HolidayOverride struct {
	Key             string
	Name            string
	Start           time.Time // first night covered
	End             time.Time // checkout day; nights covered are [Start, End)
	MinNights       int
	DiscountPercent int
	DiscountUntil   time.Time // zero when no early-booking discount

	// packages[room][nights]; absent entries fall back to the normal table
	packages map[contractx.RoomType]map[int]PackageRate
}

// PackageRate is the package price for one (room, stay length) cell.
type PackageRate struct {
	Adults    map[int]int64    // party size -> package total in cents
	ChildBand map[string]int64 // band key -> package total per child in cents
}

// Covers reports whether the night starting on day d falls inside the
// override interval.
func (h *HolidayOverride) Covers(d time.Time) bool {
	return !d.Before(h.Start) && d.Before(h.End)
}

// PackageFor returns the package rate for a room and stay length inside the
// override, when one is configured.
func (h *HolidayOverride) PackageFor(room contractx.RoomType, nights int) (PackageRate, bool) {
	byNights, ok := h.packages[room]
	if !ok {
		return PackageRate{}, false
	}
	rate, ok := byNights[nights]
	return rate, ok
}

// HasPackages reports whether the override carries its own price table at all.
func (h *HolidayOverride) HasPackages() bool {
	return len(h.packages) > 0
}

/* -------------------------------- Loading -------------------------------- */

type ratesFile struct {
	Currency   string            `mapstructure:"currency"`
	Timezone   string            `mapstructure:"timezone"`
	Rooms      []roomRatesEntry  `mapstructure:"rooms"`
	ChildBands []childBandEntry  `mapstructure:"child_bands"`
	Holidays   []holidayEntry    `mapstructure:"holidays"`
	PromoCodes []promoEntry      `mapstructure:"promo_codes"`
}

type promoEntry struct {
	Code             string `mapstructure:"code"`
	Description      string `mapstructure:"description"`
	DiscountPercent  int    `mapstructure:"discount_percent"`
	ExcludesHolidays bool   `mapstructure:"excludes_holidays"`
}

type roomRatesEntry struct {
	Room  string          `mapstructure:"room"`
	Rates []nightlyRates  `mapstructure:"rates"`
}

type nightlyRates struct {
	Adults    int     `mapstructure:"adults"`
	Breakfast float64 `mapstructure:"cafe_da_manha"`
	HalfBoard float64 `mapstructure:"meia_pensao"`
	FullBoard float64 `mapstructure:"pensao_completa"`
}

type childBandEntry struct {
	Key       string  `mapstructure:"key"`
	MinAge    int     `mapstructure:"min_age"`
	MaxAge    int     `mapstructure:"max_age"`
	Free      bool    `mapstructure:"free"`
	Breakfast float64 `mapstructure:"cafe_da_manha"`
	HalfBoard float64 `mapstructure:"meia_pensao"`
	FullBoard float64 `mapstructure:"pensao_completa"`
}

type holidayEntry struct {
	Key             string         `mapstructure:"key"`
	Name            string         `mapstructure:"name"`
	Start           string         `mapstructure:"start"`
	End             string         `mapstructure:"end"`
	MinNights       int            `mapstructure:"min_nights"`
	DiscountPercent int            `mapstructure:"discount_percent"`
	DiscountUntil   string         `mapstructure:"discount_until"`
	Packages        []packageEntry `mapstructure:"packages"`
}

type packageEntry struct {
	Room     string    `mapstructure:"room"`
	Nights   int       `mapstructure:"nights"`
	Adults   []float64 `mapstructure:"adults"` // index 0 = 1 adult
	Child35  float64   `mapstructure:"child_3_5"`
	Child610 float64   `mapstructure:"child_6_10"`
}

// LoadDefaultRates parses the embedded rate table.
func LoadDefaultRates() (*RateConfig, error) {
	raw, err := configx.DecodeYAML[ratesFile](defaultRatesYAML)
	if err != nil {
		return nil, err
	}
	return buildRateConfig(raw)
}

// LoadRatesFile parses an operator-supplied rate table.
func LoadRatesFile(path string) (*RateConfig, error) {
	raw, err := configx.DecodeYAMLFile[ratesFile](path)
	if err != nil {
		return nil, err
	}
	return buildRateConfig(raw)
}

// MustLoadDefaultRates panics on a broken embedded table; the data ships with
// the binary, so a failure here is a build defect.
func MustLoadDefaultRates() *RateConfig {
	cfg, err := LoadDefaultRates()
	if err != nil {
		panic(err)
	}
	return cfg
}

func buildRateConfig(raw *ratesFile) (*RateConfig, error) {
	cfg := &RateConfig{
		Currency: strings.TrimSpace(raw.Currency),
		Timezone: strings.TrimSpace(raw.Timezone),
		rooms:    make(map[contractx.RoomType]map[int]map[contractx.MealPlan]int64),
	}
	if cfg.Currency == "" {
		cfg.Currency = "BRL"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Sao_Paulo"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	cfg.loc = loc

	for _, room := range raw.Rooms {
		roomType, err := parseRoomType(room.Room)
		if err != nil {
			return nil, err
		}
		byAdults := make(map[int]map[contractx.MealPlan]int64, len(room.Rates))
		for _, r := range room.Rates {
			if r.Adults < 1 {
				return nil, fmt.Errorf("room %s: invalid adults count %d", room.Room, r.Adults)
			}
			byAdults[r.Adults] = map[contractx.MealPlan]int64{
				contractx.MealBreakfast: toCents(r.Breakfast),
				contractx.MealHalfBoard: toCents(r.HalfBoard),
				contractx.MealFullBoard: toCents(r.FullBoard),
			}
		}
		cfg.rooms[roomType] = byAdults
	}
	if len(cfg.rooms) == 0 {
		return nil, fmt.Errorf("rate table has no rooms")
	}

	for _, b := range raw.ChildBands {
		band := ChildBand{Key: b.Key, MinAge: b.MinAge, MaxAge: b.MaxAge}
		if !b.Free {
			band.Nightly = map[contractx.MealPlan]int64{
				contractx.MealBreakfast: toCents(b.Breakfast),
				contractx.MealHalfBoard: toCents(b.HalfBoard),
				contractx.MealFullBoard: toCents(b.FullBoard),
			}
		}
		cfg.bands = append(cfg.bands, band)
	}

	for _, h := range raw.Holidays {
		start, err := parseDay(h.Start)
		if err != nil {
			return nil, fmt.Errorf("holiday %s: start: %w", h.Key, err)
		}
		end, err := parseDay(h.End)
		if err != nil {
			return nil, fmt.Errorf("holiday %s: end: %w", h.Key, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("holiday %s: start must precede end", h.Key)
		}

		override := HolidayOverride{
			Key:             h.Key,
			Name:            h.Name,
			Start:           start,
			End:             end,
			MinNights:       h.MinNights,
			DiscountPercent: h.DiscountPercent,
		}
		if h.DiscountUntil != "" {
			until, err := parseDay(h.DiscountUntil)
			if err != nil {
				return nil, fmt.Errorf("holiday %s: discount_until: %w", h.Key, err)
			}
			override.DiscountUntil = until
		}

		for _, p := range h.Packages {
			roomType, err := parseRoomType(p.Room)
			if err != nil {
				return nil, fmt.Errorf("holiday %s: %w", h.Key, err)
			}
			if override.packages == nil {
				override.packages = make(map[contractx.RoomType]map[int]PackageRate)
			}
			if override.packages[roomType] == nil {
				override.packages[roomType] = make(map[int]PackageRate)
			}
			rate := PackageRate{
				Adults:    make(map[int]int64, len(p.Adults)),
				ChildBand: make(map[string]int64, 2),
			}
			for i, v := range p.Adults {
				rate.Adults[i+1] = toCents(v)
			}
			if p.Child35 > 0 {
				rate.ChildBand["3_5"] = toCents(p.Child35)
			}
			if p.Child610 > 0 {
				rate.ChildBand["6_10"] = toCents(p.Child610)
			}
			override.packages[roomType][p.Nights] = rate
		}

		cfg.holidays = append(cfg.holidays, override)
	}
	sort.Slice(cfg.holidays, func(i, j int) bool {
		return cfg.holidays[i].Start.Before(cfg.holidays[j].Start)
	})

	for _, p := range raw.PromoCodes {
		code := strings.ToUpper(strings.TrimSpace(p.Code))
		if code == "" {
			return nil, fmt.Errorf("promo code with empty code")
		}
		if p.DiscountPercent < 1 || p.DiscountPercent > 100 {
			return nil, fmt.Errorf("promo %s: invalid discount_percent %d", code, p.DiscountPercent)
		}
		if cfg.promos == nil {
			cfg.promos = make(map[string]PromoCode, len(raw.PromoCodes))
		}
		cfg.promos[code] = PromoCode{
			Key:              code,
			Description:      strings.TrimSpace(p.Description),
			DiscountPercent:  p.DiscountPercent,
			ExcludesHolidays: p.ExcludesHolidays,
		}
	}

	return cfg, nil
}

/* -------------------------------- Lookups -------------------------------- */

// Location is the hotel timezone; relative guest dates ("hoje", "amanhã")
// resolve against this calendar, not the server's.
func (c *RateConfig) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// NightlyRate returns the normal-table nightly price for a cell.
func (c *RateConfig) NightlyRate(room contractx.RoomType, adults int, meal contractx.MealPlan) (int64, bool) {
	byAdults, ok := c.rooms[room]
	if !ok {
		return 0, false
	}
	byMeal, ok := byAdults[adults]
	if !ok {
		return 0, false
	}
	price, ok := byMeal[meal]
	return price, ok
}

// BandForAge returns the child band an age falls into, or false when the age
// is free of charge.
func (c *RateConfig) BandForAge(age int) (ChildBand, bool) {
	for _, b := range c.bands {
		if age >= b.MinAge && age <= b.MaxAge {
			if b.Nightly == nil {
				return ChildBand{}, false
			}
			return b, true
		}
	}
	return ChildBand{}, false
}

// OverrideForNight returns the holiday override covering the night starting
// on day d, if any.
func (c *RateConfig) OverrideForNight(d time.Time) *HolidayOverride {
	for i := range c.holidays {
		if c.holidays[i].Covers(d) {
			return &c.holidays[i]
		}
	}
	return nil
}

// HolidayByKey resolves a named holiday ("pascoa", "natal", "ano_novo") to
// its nearest occurrence that has not fully passed relative to ref.
func (c *RateConfig) HolidayByKey(key string, ref time.Time) (*HolidayOverride, bool) {
	key = strings.TrimSpace(strings.ToLower(key))
	var best *HolidayOverride
	for i := range c.holidays {
		h := &c.holidays[i]
		if h.Key != key || h.End.Before(ref) {
			continue
		}
		if best == nil || h.Start.Before(best.Start) {
			best = h
		}
	}
	return best, best != nil
}

// PromoByCode resolves a discount code, case-insensitively.
func (c *RateConfig) PromoByCode(code string) (PromoCode, bool) {
	p, ok := c.promos[strings.ToUpper(strings.TrimSpace(code))]
	return p, ok
}

// Holidays exposes the override calendar (read-only use).
func (c *RateConfig) Holidays() []HolidayOverride {
	return c.holidays
}

func parseRoomType(raw string) (contractx.RoomType, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case string(contractx.RoomTerreo):
		return contractx.RoomTerreo, nil
	case string(contractx.RoomSuperior):
		return contractx.RoomSuperior, nil
	default:
		return "", fmt.Errorf("unknown room type %q", raw)
	}
}

func parseDay(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(raw))
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}
