package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/olivabot/internal/intent"
	"go.uber.org/zap"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.cmdStart(ctx, msg)
	case "menu":
		b.flows.Clear(chatID)
		kb := mainMenuKeyboard()
		b.show(chatID, 0, "¿Qué deseas hacer?", &kb)
	case "servicios":
		b.showCategories(ctx, chatID, 0)
	case "productos":
		b.answerIntent(ctx, chatID, msg.From, intent.ListProducts)
	case "agendar":
		b.showBookableServices(ctx, chatID, 0)
	case "citas":
		b.showMyAppointments(ctx, chatID, 0, msg.From)
	case "salir":
		b.flows.Clear(chatID)
		b.reply(chatID, "Listo, dejamos la cita pendiente. /menu para empezar de nuevo.")
	case "agenda":
		b.cmdAgenda(ctx, msg, args)
	case "help":
		b.cmdHelp(chatID)
	default:
		b.reply(chatID, "Comando desconocido. /help para ver las opciones")
	}
}

func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cust, err := b.customer(ctx, msg.From)
	if err != nil {
		b.logger.Error("register customer failed", zap.Error(err))
		b.reply(chatID, "❌ Error de registro, intenta de nuevo.")
		return
	}

	kb := mainMenuKeyboard()
	b.show(chatID, 0, b.greeting(msg.From.FirstName), &kb)

	if cust.Phone == "" {
		if err := b.SendMessageWithKeyboard(chatID, "Si quieres, comparte tu número para confirmar tus citas.", phoneKeyboard()); err != nil {
			b.logger.Warn("send phone keyboard failed", zap.Error(err))
		}
	}
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Comandos:</b>

/menu — menú principal
/servicios — ver servicios por categoría
/productos — productos a la venta
/agendar — agendar una cita
/citas — mis próximas citas
/salir — dejar la cita que estás agendando

💡 También puedes escribir lo que necesitas, por ejemplo "¿dónde están?"`

	if b.cfg.IsOwner(chatID) {
		text += "\n\n<b>Salón</b>\n/agenda [AAAA-MM-DD] — citas del día"
	}
	b.reply(chatID, text)
}

// cmdAgenda shows the salon agenda; owner only
func (b *Bot) cmdAgenda(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	if !b.cfg.IsOwner(msg.From.ID) {
		b.reply(chatID, "⛔ Acceso denegado")
		return
	}

	day, err := b.agendaDay(args)
	if err != nil {
		b.reply(chatID, "Fecha inválida, usa AAAA-MM-DD")
		return
	}
	appts, err := b.agenda.Day(ctx, day)
	if err != nil {
		b.logger.Error("agenda failed", zap.Error(err))
		b.reply(chatID, "❌ "+err.Error())
		return
	}
	b.reply(chatID, b.agenda.FormatDayAgenda(day, appts))
}
