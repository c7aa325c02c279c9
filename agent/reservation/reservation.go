// Package reservation persists confirmed bookings. The Postgres repository is
// the production BookingDesk; an in-memory desk backs tests and the local REPL.
package reservation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	logx "github.com/hotelpassarim/concierge/pkg/logger"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	QueryTimeout time.Duration `envconfig:"QUERY_TIMEOUT" split_words:"true" default:"5s"`
}

// Booking is one confirmed reservation row.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID         int64     `bun:"id,pk,autoincrement"`
	Code       string    `bun:"code,notnull,unique"`
	Identity   string    `bun:"identity,notnull"`
	CheckIn    time.Time `bun:"check_in,notnull"`
	CheckOut   time.Time `bun:"check_out,notnull"`
	Adults     int       `bun:"adults,notnull"`
	ChildAges  []int     `bun:"child_ages,array"`
	RoomType   string    `bun:"room_type,notnull"`
	MealPlan   string    `bun:"meal_plan,notnull"`
	TotalCents int64     `bun:"total_cents,notnull"`
	Currency   string    `bun:"currency,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Repository stores bookings in Postgres.
type Repository struct {
	db      *bun.DB
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

var _ contractx.BookingDesk = (*Repository)(nil)

func NewRepository(cfg Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("%w: reservation dsn is required", contractx.ErrValidation)
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Repository{
		db:      db,
		timeout: timeout,
		now:     time.Now,
		log:     logx.Component("reservation"),
	}, nil
}

// Init creates the bookings table when it does not exist yet.
func (r *Repository) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if _, err := r.db.NewCreateTable().Model((*Booking)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create bookings table: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Confirm(ctx context.Context, req contractx.BookingRequest) (contractx.BookingConfirmation, error) {
	if err := validateRequest(req); err != nil {
		return contractx.BookingConfirmation{}, err
	}

	row := &Booking{
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
		CreatedAt:  r.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return contractx.BookingConfirmation{}, fmt.Errorf("%w: insert booking: %v", contractx.ErrCollaborator, err)
	}

	r.log.Info().
		Str("code", row.Code).
		Str("identity", row.Identity).
		Int64("total_cents", row.TotalCents).
		Msg("booking confirmed")

	return contractx.BookingConfirmation{Code: row.Code, CreatedAt: row.CreatedAt}, nil
}

// ByCode looks a booking up for reception-side checks.
func (r *Repository) ByCode(ctx context.Context, code string) (*Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	row := new(Booking)
	if err := r.db.NewSelect().Model(row).Where("code = ?", code).Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: select booking: %v", contractx.ErrCollaborator, err)
	}
	return row, nil
}

// NewCode mints a short human-readable confirmation code.
func NewCode() string {
	raw := strings.ToUpper(uuid.NewString())
	return "HP-" + strings.ReplaceAll(raw, "-", "")[:8]
}

func validateRequest(req contractx.BookingRequest) error {
	if strings.TrimSpace(req.Identity) == "" {
		return fmt.Errorf("%w: booking identity is required", contractx.ErrValidation)
	}
	if req.CheckIn.IsZero() || req.CheckOut.IsZero() || !req.CheckIn.Before(req.CheckOut) {
		return fmt.Errorf("%w: booking stay range is invalid", contractx.ErrValidation)
	}
	if req.Adults < 1 {
		return fmt.Errorf("%w: booking needs at least one adult", contractx.ErrValidation)
	}
	if req.TotalCents <= 0 {
		return fmt.Errorf("%w: booking total must be positive", contractx.ErrValidation)
	}
	return nil
}
