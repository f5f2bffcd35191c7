package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/tazhate/olivabot/config"
	"github.com/tazhate/olivabot/internal/booking"
	"github.com/tazhate/olivabot/internal/bot"
	"github.com/tazhate/olivabot/internal/clients/caldav"
	"github.com/tazhate/olivabot/internal/datetime"
	"github.com/tazhate/olivabot/internal/history"
	"github.com/tazhate/olivabot/internal/intent"
	"github.com/tazhate/olivabot/internal/scheduler"
	"github.com/tazhate/olivabot/internal/scheduling"
	"github.com/tazhate/olivabot/internal/service"
	"github.com/tazhate/olivabot/internal/storage"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(env *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram webhook, Twilio webhook, REST API and cron jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			cfg, logger, err := env.load()
			if err != nil {
				return err
			}
			if err := cfg.RequireTelegram(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			st, err := env.openStorage()
			if err != nil {
				return err
			}
			defer st.Close()

			handler, err := newBookingHandler(cfg, st, logger)
			if err != nil {
				return err
			}
			if cfg.CalDAVEnabled() {
				client := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
				handler.AddListener(service.NewCalendarService(st, client, cfg.CalDAVCalendar, logger))
				logger.Info("calendar push enabled", zap.String("calendar", cfg.CalDAVCalendar))
			}

			hist, closeHistory, err := openHistory(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeHistory()

			agenda := service.NewAgendaService(st, cfg.Timezone)
			tgBot, err := bot.New(cfg, bot.Deps{
				Storage: st,
				Booking: handler,
				Intents: intent.NewClassifier(nil, logger),
				Agenda:  agenda,
				History: hist,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("init bot: %w", err)
			}
			if err := tgBot.SetupWebhook(); err != nil {
				return fmt.Errorf("setup webhook: %w", err)
			}

			sched := scheduler.New(cfg, agenda, logger)
			sched.SetSender(tgBot)
			go func() {
				if err := sched.Start(ctx); err != nil {
					logger.Error("scheduler error", zap.Error(err))
					cancel()
				}
			}()

			logger.Info("oliva started", zap.String("version", Version))
			serveErr := tgBot.Start(ctx)

			logger.Info("shutting down")
			cancel()
			sched.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := tgBot.Stop(shutdownCtx); err != nil {
				logger.Warn("stop http server", zap.Error(err))
			}

			logger.Info("oliva stopped")
			return serveErr
		},
	}
}

func newBookingHandler(cfg *config.Config, st *storage.Storage, logger *zap.Logger) (*booking.Handler, error) {
	hours, err := scheduling.ParseBusinessHours(cfg.BusinessOpen, cfg.BusinessClose)
	if err != nil {
		return nil, err
	}
	engine := scheduling.NewEngine(hours, logger)
	opts := booking.Options{
		Suggestions: cfg.SuggestionCount,
		Step:        cfg.SlotStep(),
		Location:    cfg.Timezone,
	}
	return booking.NewHandler(engine, booking.StorageSessions(st), datetime.NewExtractor(cfg.Timezone), opts, logger), nil
}

// openHistory connects to Redis when configured; the returned func closes the client
func openHistory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (history.Store, func(), error) {
	if !cfg.HistoryEnabled() {
		return history.Nop{}, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("chat history enabled", zap.String("redis", cfg.RedisAddr))
	return history.NewRedisStore(rdb, cfg.HistoryMaxMessages), func() { _ = rdb.Close() }, nil
}
