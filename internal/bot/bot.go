package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/olivabot/config"
	"github.com/tazhate/olivabot/internal/booking"
	"github.com/tazhate/olivabot/internal/history"
	"github.com/tazhate/olivabot/internal/intent"
	"github.com/tazhate/olivabot/internal/service"
	"github.com/tazhate/olivabot/internal/storage"
	"go.uber.org/zap"
)

const updateTimeout = time.Minute

// Sender is the part of tgbotapi.BotAPI the handlers use
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Deps struct {
	Storage *storage.Storage
	Booking *booking.Handler
	Intents *intent.Classifier
	Agenda  *service.AgendaService
	History history.Store
	Logger  *zap.Logger
}

type Bot struct {
	api     *tgbotapi.BotAPI
	sender  Sender
	cfg     *config.Config
	storage *storage.Storage
	booking *booking.Handler
	intents *intent.Classifier
	agenda  *service.AgendaService
	history history.Store
	limiter *chatLimiter
	flows   *flowStore
	server  *http.Server
	logger  *zap.Logger
	now     func() time.Time
}

func New(cfg *config.Config, deps Deps) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	bot := newBot(cfg, api, deps)
	bot.api = api
	bot.logger.Info("authorized", zap.String("username", api.Self.UserName))

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func newBot(cfg *config.Config, sender Sender, deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hist := deps.History
	if hist == nil {
		hist = history.Nop{}
	}
	return &Bot{
		sender:  sender,
		cfg:     cfg,
		storage: deps.Storage,
		booking: deps.Booking,
		intents: deps.Intents,
		agenda:  deps.Agenda,
		history: hist,
		limiter: newChatLimiter(cfg.RateLimitPerMinute),
		flows:   newFlowStore(),
		logger:  logger.Named("bot"),
		now:     time.Now,
	}
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "menu", Description: "📱 Menú principal"},
		{Command: "servicios", Description: "💇 Ver servicios"},
		{Command: "agendar", Description: "📅 Agendar cita"},
		{Command: "citas", Description: "📋 Mis citas"},
		{Command: "help", Description: "❓ Ayuda"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.sender.Request(cfg); err != nil {
		b.logger.Warn("failed to set commands", zap.Error(err))
	}
}

func (b *Bot) SetupWebhook() error {
	webhookURL := b.cfg.WebhookURL + "/bot"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	if _, err := b.sender.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	if b.api != nil {
		info, err := b.api.GetWebhookInfo()
		if err != nil {
			return fmt.Errorf("get webhook info: %w", err)
		}
		if info.LastErrorDate != 0 {
			b.logger.Warn("webhook last error", zap.String("message", info.LastErrorMessage))
		}
	}

	b.logger.Info("webhook set", zap.String("url", webhookURL))
	return nil
}

// Routes mounts the Telegram webhook, health check, Twilio webhook and REST API
func (b *Bot) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bot", b.webhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if b.cfg.TwilioEnabled {
		mux.HandleFunc("/twilio_webhook", b.twilioWebhook)
	}
	b.setupAPI(mux)
	return mux
}

// Start serves HTTP until ctx is done
func (b *Bot) Start(ctx context.Context) error {
	b.server = &http.Server{
		Addr:              ":" + b.cfg.ServerPort,
		Handler:           b.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("starting webhook server", zap.String("port", b.cfg.ServerPort))
		if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	return nil
}

func (b *Bot) webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	ctx := context.WithoutCancel(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(ctx, updateTimeout)
		defer cancel()
		b.handleUpdate(ctx, update)
	}()
}

// SendMessage sends an HTML message; it satisfies scheduler.MessageSender
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.sender.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	_, err := b.sender.Send(msg)
	return err
}

// show edits the message a callback came from, or sends a new one
func (b *Bot) show(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	var c tgbotapi.Chattable
	if msgID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.ReplyMarkup = kb
		c = edit
	} else {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if kb != nil {
			msg.ReplyMarkup = *kb
		}
		c = msg
	}
	if _, err := b.sender.Send(c); err != nil {
		b.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.remember(context.Background(), "telegram", strconv.FormatInt(chatID, 10), history.RoleAssistant, text, "")
}

func (b *Bot) reply(chatID int64, text string) {
	b.show(chatID, 0, text, nil)
}

func (b *Bot) remember(ctx context.Context, channel, user, role, content string, in intent.Intent) {
	msg := history.Message{Role: role, Content: content, Intent: string(in), Timestamp: b.now().UTC()}
	if err := b.history.Save(ctx, channel, user, msg); err != nil {
		b.logger.Debug("history save failed", zap.Error(err))
	}
}
