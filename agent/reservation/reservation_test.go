package reservation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

func validBooking() contractx.BookingRequest {
	return contractx.BookingRequest{
		Identity:   "5541999990000",
		CheckIn:    time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Adults:     2,
		RoomType:   contractx.RoomTerreo,
		MealPlan:   contractx.MealBreakfast,
		TotalCents: 58000,
		Currency:   "BRL",
	}
}

func TestMemoryDeskConfirm(t *testing.T) {
	desk := NewMemoryDesk()

	conf, err := desk.Confirm(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !strings.HasPrefix(conf.Code, "HP-") || len(conf.Code) != 11 {
		t.Errorf("code = %q, want HP- prefix with 8 hex chars", conf.Code)
	}
	if got := desk.Bookings(); len(got) != 1 || got[0].Code != conf.Code {
		t.Errorf("stored bookings = %+v", got)
	}
}

func TestMemoryDeskRejectsInvalid(t *testing.T) {
	desk := NewMemoryDesk()

	req := validBooking()
	req.CheckOut = req.CheckIn
	if _, err := desk.Confirm(context.Background(), req); !errors.Is(err, contractx.ErrValidation) {
		t.Errorf("zero-night stay: err = %v, want ErrValidation", err)
	}

	req = validBooking()
	req.Identity = ""
	if _, err := desk.Confirm(context.Background(), req); !errors.Is(err, contractx.ErrValidation) {
		t.Errorf("missing identity: err = %v, want ErrValidation", err)
	}

	req = validBooking()
	req.TotalCents = 0
	if _, err := desk.Confirm(context.Background(), req); !errors.Is(err, contractx.ErrValidation) {
		t.Errorf("zero total: err = %v, want ErrValidation", err)
	}
}

func TestNewCodeIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewCode()
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
	}
}
