package pricing

import (
	"testing"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

func mustRates(t *testing.T) *RateConfig {
	t.Helper()
	cfg, err := LoadDefaultRates()
	if err != nil {
		t.Fatalf("LoadDefaultRates: %v", err)
	}
	return cfg
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLoadDefaultRates(t *testing.T) {
	cfg := mustRates(t)

	if cfg.Currency != "BRL" {
		t.Errorf("currency = %q, want BRL", cfg.Currency)
	}

	rate, ok := cfg.NightlyRate(contractx.RoomTerreo, 2, contractx.MealBreakfast)
	if !ok || rate != 29000 {
		t.Errorf("terreo 2 adults breakfast = %d (ok=%v), want 29000", rate, ok)
	}
	rate, ok = cfg.NightlyRate(contractx.RoomSuperior, 4, contractx.MealFullBoard)
	if !ok || rate != 113000 {
		t.Errorf("superior 4 adults full board = %d (ok=%v), want 113000", rate, ok)
	}
	if _, ok := cfg.NightlyRate(contractx.RoomTerreo, 5, contractx.MealBreakfast); ok {
		t.Error("expected no rate for 5 adults")
	}

	promo, ok := cfg.PromoByCode("soc10")
	if !ok || promo.DiscountPercent != 10 || !promo.ExcludesHolidays {
		t.Errorf("PromoByCode(soc10) = %+v (ok=%v)", promo, ok)
	}
	if _, ok := cfg.PromoByCode("NADA99"); ok {
		t.Error("expected no promo for NADA99")
	}
}

func TestBandForAge(t *testing.T) {
	cfg := mustRates(t)

	if _, charged := cfg.BandForAge(1); charged {
		t.Error("age 1 should be free")
	}
	band, charged := cfg.BandForAge(7)
	if !charged || band.Key != "6_10" {
		t.Errorf("age 7 band = %q (charged=%v), want 6_10", band.Key, charged)
	}
	if band.Nightly[contractx.MealBreakfast] != 5000 {
		t.Errorf("6_10 breakfast = %d, want 5000", band.Nightly[contractx.MealBreakfast])
	}
}

func TestOverrideForNight(t *testing.T) {
	cfg := mustRates(t)

	if ov := cfg.OverrideForNight(day(2025, time.April, 18)); ov == nil || ov.Key != "pascoa" {
		t.Fatalf("2025-04-18 override = %v, want pascoa", ov)
	}
	// the end date is a check-out day, not a priced night
	if ov := cfg.OverrideForNight(day(2025, time.April, 21)); ov != nil {
		t.Errorf("2025-04-21 override = %q, want none", ov.Key)
	}
	if ov := cfg.OverrideForNight(day(2025, time.June, 10)); ov != nil {
		t.Errorf("2025-06-10 override = %q, want none", ov.Key)
	}
}

func TestHolidayByKeyResolvesNextOccurrence(t *testing.T) {
	cfg := mustRates(t)

	ov, ok := cfg.HolidayByKey("pascoa", day(2025, time.February, 1))
	if !ok || !ov.Start.Equal(day(2025, time.April, 17)) {
		t.Fatalf("pascoa from february = %+v (ok=%v)", ov, ok)
	}
	if _, ok := cfg.HolidayByKey("carnaval", day(2025, time.February, 1)); ok {
		t.Error("unknown holiday key should not resolve")
	}
}
