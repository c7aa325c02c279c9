package reservation

import (
	"context"
	"sync"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

// MemoryDesk is an in-process BookingDesk for tests and the local REPL.
type MemoryDesk struct {
	mu       sync.Mutex
	now      func() time.Time
	bookings []Booking
}

var _ contractx.BookingDesk = (*MemoryDesk)(nil)

func NewMemoryDesk() *MemoryDesk {
	return &MemoryDesk{now: time.Now}
}

func (d *MemoryDesk) Confirm(_ context.Context, req contractx.BookingRequest) (contractx.BookingConfirmation, error) {
	if err := validateRequest(req); err != nil {
		return contractx.BookingConfirmation{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	row := Booking{
		Code:       NewCode(),
		Identity:   req.Identity,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Adults:     req.Adults,
		ChildAges:  req.ChildAges,
		RoomType:   string(req.RoomType),
		MealPlan:   string(req.MealPlan),
		TotalCents: req.TotalCents,
		Currency:   req.Currency,
		CreatedAt:  d.now().UTC(),
	}
	d.bookings = append(d.bookings, row)
	return contractx.BookingConfirmation{Code: row.Code, CreatedAt: row.CreatedAt}, nil
}

// Bookings returns a copy of everything confirmed so far.
func (d *MemoryDesk) Bookings() []Booking {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Booking, len(d.bookings))
	copy(out, d.bookings)
	return out
}
