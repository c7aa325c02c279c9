package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hotelpassarim/concierge/agent/agents/orchestrator"
	contractx "github.com/hotelpassarim/concierge/agent/contract"
	"github.com/hotelpassarim/concierge/agent/knowledge"
	"github.com/hotelpassarim/concierge/agent/llm"
	"github.com/hotelpassarim/concierge/agent/nlu"
	nodex "github.com/hotelpassarim/concierge/agent/nodes"
	"github.com/hotelpassarim/concierge/agent/pricing"
	promptx "github.com/hotelpassarim/concierge/agent/prompt"
	"github.com/hotelpassarim/concierge/agent/reservation"
	statex "github.com/hotelpassarim/concierge/agent/state"
	configx "github.com/hotelpassarim/concierge/pkg/config"
	_ "github.com/hotelpassarim/concierge/pkg/logger/autoload"
)

var ratesPath string

func main() {
	root := &cobra.Command{
		Use:           "concierge",
		Short:         "Hotel Passarim conversational concierge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&ratesPath, "rates", "", "path to a rates YAML file (default: embedded table)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newQuoteCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadRates() (*pricing.RateConfig, error) {
	if ratesPath != "" {
		return pricing.LoadRatesFile(ratesPath)
	}
	return pricing.LoadDefaultRates()
}

func newServeCmd() *cobra.Command {
	var identity string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an interactive concierge session on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			rates, err := loadRates()
			if err != nil {
				return err
			}

			extractor := nlu.New(rates, scorerOptions(ctx)...)
			orc, err := orchestrator.New(buildStore(), extractor, nodex.Collaborators{
				Rates:     rates,
				Knowledge: knowledge.MustLoadDefault(),
				Desk:      buildDesk(ctx),
			})
			if err != nil {
				return err
			}

			fmt.Println("Concierge pronto. Digite sua mensagem (ctrl+d para sair).")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				res, err := orc.HandleTurn(ctx, contractx.Turn{
					Identity:   identity,
					Text:       text,
					ReceivedAt: time.Now(),
				})
				if err != nil {
					log.Error().Err(err).Msg("turn failed")
					continue
				}
				fmt.Println(res.ReplyText)
				if len(res.QuickReplies) > 0 {
					fmt.Println("  [" + strings.Join(res.QuickReplies, " | ") + "]")
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "repl-guest", "guest identity for the session")
	return cmd
}

// scorerOptions enables the model-assisted intent scorer when OpenRouter
// credentials are present; without them the extractor runs rules-only.
func scorerOptions(ctx context.Context) []nlu.Option {
	if os.Getenv("OPENROUTER_API_KEY") == "" {
		log.Info().Msg("no openrouter credentials, extractor runs rules-only")
		return nil
	}

	cfg := configx.MustNew[llm.Config]("OPENROUTER")
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("invalid model config, extractor runs rules-only")
		return nil
	}
	orCfg := cfg.OpenRouterFor(llm.CapabilityScorer)
	chatModel, err := orCfg.New(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("chat model init failed, extractor runs rules-only")
		return nil
	}
	scorer, err := llm.NewScorer(ctx, chatModel, promptx.LoadPromptSet().Scorer, cfg.Timeout)
	if err != nil {
		log.Warn().Err(err).Msg("scorer init failed, extractor runs rules-only")
		return nil
	}
	log.Info().Str("model", orCfg.Model).Msg("intent scorer enabled")
	return []nlu.Option{nlu.WithScorer(scorer)}
}

// buildStore picks the session store from the environment: plain Redis,
// Upstash REST, or in-process memory.
func buildStore() statex.Store {
	if os.Getenv("REDIS_ADDR") != "" {
		store, err := statex.NewRedisStore(*configx.MustNew[statex.RedisConfig]("REDIS"))
		if err != nil {
			log.Fatal().Err(err).Msg("redis store init failed")
		}
		log.Info().Msg("using redis session store")
		return store
	}
	if os.Getenv("UPSTASH_REDIS_URL") != "" {
		store, err := statex.NewUpstashRedisStore(*configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS"))
		if err != nil {
			log.Fatal().Err(err).Msg("upstash store init failed")
		}
		log.Info().Msg("using upstash session store")
		return store
	}
	log.Info().Msg("using in-memory session store")
	return statex.NewMemoryStore()
}

// buildDesk uses the Postgres reservation repository when a DSN is set.
func buildDesk(ctx context.Context) contractx.BookingDesk {
	if os.Getenv("RESERVATION_DSN") == "" {
		log.Info().Msg("using in-memory booking desk")
		return reservation.NewMemoryDesk()
	}
	repo, err := reservation.NewRepository(*configx.MustNew[reservation.Config]("RESERVATION"))
	if err != nil {
		log.Fatal().Err(err).Msg("reservation repository init failed")
	}
	if err := repo.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("reservation schema init failed")
	}
	log.Info().Msg("using postgres booking desk")
	return repo
}

func newQuoteCmd() *cobra.Command {
	var (
		checkIn  string
		checkOut string
		adults   int
		children string
		room     string
		meal     string
		promo    string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a stay from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			rates, err := loadRates()
			if err != nil {
				return err
			}

			req := pricing.QuoteRequest{
				Adults:    adults,
				RoomType:  contractx.RoomType(room),
				MealPlan:  contractx.MealPlan(meal),
				PromoCode: promo,
				Now:       time.Now(),
			}
			if req.CheckIn, err = time.Parse("2006-01-02", checkIn); err != nil {
				return fmt.Errorf("invalid --check-in: %w", err)
			}
			if req.CheckOut, err = time.Parse("2006-01-02", checkOut); err != nil {
				return fmt.Errorf("invalid --check-out: %w", err)
			}
			if req.ChildAges, err = parseAges(children); err != nil {
				return err
			}

			quotes, err := pricing.Quote(req, rates)
			if err != nil {
				return err
			}
			fmt.Println(pricing.FormatQuotes(quotes))
			return nil
		},
	}
	cmd.Flags().StringVar(&checkIn, "check-in", "", "check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&checkOut, "check-out", "", "check-out date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&adults, "adults", 2, "number of adults")
	cmd.Flags().StringVar(&children, "children", "", "comma-separated child ages")
	cmd.Flags().StringVar(&room, "room", "", "room type (terreo|superior, empty for all)")
	cmd.Flags().StringVar(&meal, "meal", "", "meal plan (cafe_da_manha|meia_pensao|pensao_completa, empty for all)")
	cmd.Flags().StringVar(&promo, "promo", "", "discount code")
	_ = cmd.MarkFlagRequired("check-in")
	_ = cmd.MarkFlagRequired("check-out")
	return cmd
}

func parseAges(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var ages []int
	for _, part := range strings.Split(raw, ",") {
		age, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid --children: %w", err)
		}
		ages = append(ages, age)
	}
	return ages, nil
}
