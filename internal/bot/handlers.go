package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/olivabot/internal/booking"
	"github.com/tazhate/olivabot/internal/domain"
	"github.com/tazhate/olivabot/internal/history"
	"github.com/tazhate/olivabot/internal/intent"
	"github.com/tazhate/olivabot/internal/storage"
	"go.uber.org/zap"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func displayName(u *tgbotapi.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.UserName
	}
	return name
}

// customer returns the registered customer for the Telegram user, registering on first contact
func (b *Bot) customer(ctx context.Context, from *tgbotapi.User) (*domain.Customer, error) {
	c, created, err := b.storage.EnsureTelegramCustomer(ctx, from.ID, displayName(from))
	if err != nil {
		return nil, fmt.Errorf("ensure customer: %w", err)
	}
	if created {
		b.logger.Info("customer registered", zap.Int64("customer_id", c.ID), zap.Int64("telegram_id", from.ID))
	}
	return c, nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	chat := strconv.FormatInt(chatID, 10)

	if !b.limiter.Allow(chat) {
		b.logger.Warn("rate limit exceeded", zap.Int64("chat_id", chatID))
		return
	}

	if msg.Contact != nil {
		b.savePhone(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		b.remember(ctx, "telegram", chat, history.RoleUser, text, "")
		b.handleCommand(ctx, msg)
		return
	}

	cust, err := b.customer(ctx, msg.From)
	if err != nil {
		b.logger.Error("customer lookup failed", zap.Error(err))
		b.reply(chatID, "❌ Ocurrió un error, intenta de nuevo más tarde.")
		return
	}

	if pending, ok := b.flows.Get(chatID); ok {
		b.remember(ctx, "telegram", chat, history.RoleUser, text, intent.BookAppointment)
		b.bookFromText(ctx, chatID, cust, pending, text)
		return
	}

	pred := b.intents.Predict(ctx, text)
	b.remember(ctx, "telegram", chat, history.RoleUser, text, pred.Intent)
	b.logger.Debug("intent", zap.String("intent", string(pred.Intent)), zap.String("source", pred.Source))
	b.answerIntent(ctx, chatID, msg.From, pred.Intent)
}

func (b *Bot) answerIntent(ctx context.Context, chatID int64, from *tgbotapi.User, in intent.Intent) {
	switch in {
	case intent.Greeting:
		kb := mainMenuKeyboard()
		b.show(chatID, 0, b.greeting(from.FirstName), &kb)
	case intent.ListServices:
		b.showCategories(ctx, chatID, 0)
	case intent.BookAppointment:
		b.showBookableServices(ctx, chatID, 0)
	case intent.Other:
		kb := mainMenuKeyboard()
		b.show(chatID, 0, unknownText, &kb)
	default:
		text, err := b.textReply(ctx, in)
		if err != nil {
			b.logger.Error("reply failed", zap.String("intent", string(in)), zap.Error(err))
			text = "❌ Ocurrió un error, intenta de nuevo más tarde."
		}
		b.reply(chatID, text)
	}
}

func (b *Bot) savePhone(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Contact.UserID != 0 && msg.Contact.UserID != msg.From.ID {
		b.reply(msg.Chat.ID, "Comparte tu propio número, por favor.")
		return
	}
	cust, err := b.customer(ctx, msg.From)
	if err != nil {
		b.logger.Error("customer lookup failed", zap.Error(err))
		return
	}

	var digits strings.Builder
	for _, r := range msg.Contact.PhoneNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	phone := digits.String()
	if len(phone) > 10 {
		phone = phone[len(phone)-10:]
	}

	if err := b.storage.SetCustomerPhone(ctx, cust.ID, phone); err != nil {
		if storage.IsConflict(err) {
			b.reply(msg.Chat.ID, "Ese número ya está registrado con otra cuenta.")
			return
		}
		b.logger.Error("save phone failed", zap.Error(err))
		return
	}
	kb := mainMenuKeyboard()
	b.show(msg.Chat.ID, 0, "✅ Número guardado. ¿Qué deseas hacer?", &kb)
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID

	if !b.limiter.Allow(strconv.FormatInt(chatID, 10)) {
		b.answer(callback.ID, "Demasiados mensajes, espera un momento.")
		return
	}
	b.answer(callback.ID, "")

	parts := strings.Split(callback.Data, ":")
	switch parts[0] {
	case "menu":
		if len(parts) < 2 {
			return
		}
		switch parts[1] {
		case "services":
			b.showCategories(ctx, chatID, msgID)
		case "book":
			b.showBookableServices(ctx, chatID, msgID)
		case "mine":
			b.showMyAppointments(ctx, chatID, msgID, callback.From)
		default:
			b.flows.Clear(chatID)
			kb := mainMenuKeyboard()
			b.show(chatID, msgID, "¿Qué deseas hacer?", &kb)
		}

	case "cat":
		// cat:<category>
		category := strings.Join(parts[1:], ":")
		b.showCategory(ctx, chatID, msgID, category)

	case "svc":
		// svc:<service>
		id, ok := parseID(parts, 1)
		if !ok {
			return
		}
		b.showService(ctx, chatID, msgID, id)

	case "book":
		// book:<service>
		id, ok := parseID(parts, 1)
		if !ok {
			return
		}
		b.showStaff(ctx, chatID, msgID, id)

	case "emp":
		// emp:<service>:<employee>
		svcID, ok1 := parseID(parts, 1)
		empID, ok2 := parseID(parts, 2)
		if !ok1 || !ok2 {
			return
		}
		b.flows.Start(chatID, svcID, empID)
		b.show(chatID, msgID, "📅 "+bookingHint, nil)

	case "slot":
		// slot:<service>:<employee>:<YYYY-MM-DD>:<HHMM>
		svcID, ok1 := parseID(parts, 1)
		empID, ok2 := parseID(parts, 2)
		if !ok1 || !ok2 || len(parts) < 5 || len(parts[4]) != 4 {
			return
		}
		cust, err := b.customer(ctx, callback.From)
		if err != nil {
			b.logger.Error("customer lookup failed", zap.Error(err))
			return
		}
		req := booking.Request{
			CustomerID: booking.Int(cust.ID),
			ServiceID:  booking.Int(svcID),
			EmployeeID: booking.Int(empID),
			Date:       parts[3],
			Time:       parts[4][:2] + ":" + parts[4][2:],
		}
		b.submitBooking(ctx, chatID, pendingBooking{ServiceID: svcID, EmployeeID: empID}, req)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Debug("callback answer failed", zap.Error(err))
	}
}

func parseID(parts []string, i int) (int64, bool) {
	if len(parts) <= i {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[i], 10, 64)
	return id, err == nil
}

func (b *Bot) showCategories(ctx context.Context, chatID int64, msgID int) {
	categories, err := b.storage.ListCategories(ctx)
	if err != nil {
		b.logger.Error("list categories failed", zap.Error(err))
		return
	}
	if len(categories) == 0 {
		b.show(chatID, msgID, "Por ahora no hay servicios publicados.", nil)
		return
	}
	kb := categoriesKeyboard(categories)
	b.show(chatID, msgID, "Elige una categoría de servicios:", &kb)
}

func (b *Bot) showCategory(ctx context.Context, chatID int64, msgID int, category string) {
	services, err := b.storage.ListServicesByCategory(ctx, category)
	if err != nil {
		b.logger.Error("list services failed", zap.Error(err))
		return
	}
	kb := servicesKeyboard(services, "svc")
	b.show(chatID, msgID, fmt.Sprintf("Servicios disponibles en <b>%s</b>:", category), &kb)
}

func (b *Bot) showBookableServices(ctx context.Context, chatID int64, msgID int) {
	services, err := b.storage.ListActiveServices(ctx)
	if err != nil {
		b.logger.Error("list services failed", zap.Error(err))
		return
	}
	kb := servicesKeyboard(services, "book")
	b.show(chatID, msgID, "¿Cuál servicio deseas agendar?", &kb)
}

func (b *Bot) showService(ctx context.Context, chatID int64, msgID int, serviceID int64) {
	svc, err := b.storage.GetService(ctx, serviceID)
	if err != nil {
		b.logger.Error("get service failed", zap.Error(err))
		return
	}
	if svc == nil || !svc.Active {
		b.show(chatID, msgID, "Servicio no encontrado.", nil)
		return
	}
	kb := serviceKeyboard(svc.ID)
	b.show(chatID, msgID, svc.Card(), &kb)
}

func (b *Bot) showStaff(ctx context.Context, chatID int64, msgID int, serviceID int64) {
	staff, err := b.storage.ListEmployees(ctx)
	if err != nil {
		b.logger.Error("list staff failed", zap.Error(err))
		return
	}
	if len(staff) == 0 {
		b.show(chatID, msgID, "No hay personal disponible por ahora.", nil)
		return
	}
	kb := staffKeyboard(serviceID, staff)
	b.show(chatID, msgID, "¿Con quién te gustaría agendar?", &kb)
}

func (b *Bot) showMyAppointments(ctx context.Context, chatID int64, msgID int, from *tgbotapi.User) {
	cust, err := b.customer(ctx, from)
	if err != nil {
		b.logger.Error("customer lookup failed", zap.Error(err))
		return
	}
	appts, err := b.agenda.Upcoming(ctx, cust.ID, b.now())
	if err != nil {
		b.logger.Error("list appointments failed", zap.Error(err))
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(backRow())
	b.show(chatID, msgID, "📋 <b>Mis citas</b>\n\n"+b.agenda.FormatCustomerAppointments(appts), &kb)
}

func (b *Bot) bookFromText(ctx context.Context, chatID int64, cust *domain.Customer, p pendingBooking, text string) {
	req := booking.Request{
		CustomerID: booking.Int(cust.ID),
		ServiceID:  booking.Int(p.ServiceID),
		EmployeeID: booking.Int(p.EmployeeID),
		DateText:   text,
	}
	b.submitBooking(ctx, chatID, p, req)
}

func (b *Bot) submitBooking(ctx context.Context, chatID int64, p pendingBooking, req booking.Request) {
	resp, err := b.booking.ProcessBooking(ctx, req)
	if err != nil {
		if storage.IsConflict(err) {
			b.reply(chatID, "Ese horario se acaba de ocupar. Intenta con otra hora.")
			return
		}
		b.logger.Error("booking failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(chatID, "❌ No pudimos agendar tu cita, intenta de nuevo más tarde.")
		return
	}

	switch resp.Outcome {
	case booking.OutcomeBooked:
		b.flows.Clear(chatID)
		b.reply(chatID, b.bookedText(ctx, resp.Appointment))
	case booking.OutcomeSlotOccupied:
		if len(resp.Suggestions) == 0 {
			b.reply(chatID, "Ese horario no está disponible y no quedan espacios ese día. Prueba con otra fecha.")
			return
		}
		kb := suggestionsKeyboard(p.ServiceID, p.EmployeeID, resp.Suggestions)
		b.show(chatID, 0, "Ese horario no está disponible. Estos son los siguientes espacios libres:", &kb)
	case booking.OutcomeValidationError:
		b.reply(chatID, "⚠️ "+resp.Detail+"\n\n"+bookingHint)
	case booking.OutcomeServiceNotFound:
		b.flows.Clear(chatID)
		b.reply(chatID, "Ese servicio ya no está disponible.")
	}
}

func (b *Bot) bookedText(ctx context.Context, appt *domain.Appointment) string {
	full, err := b.storage.GetAppointment(ctx, appt.ID)
	if err != nil || full == nil {
		full = appt
	}
	end := appt.EndsAt(appt.Duration)

	var sb strings.Builder
	sb.WriteString("✅ <b>Cita confirmada</b>\n\n")
	if full.ServiceName != "" {
		sb.WriteString("Servicio: " + full.ServiceName + "\n")
	}
	if full.EmployeeName != "" {
		sb.WriteString("Con: " + full.EmployeeName + "\n")
	}
	sb.WriteString(fmt.Sprintf("Día: %s\n", appt.StartsAt.Format("02/01/2006")))
	sb.WriteString(fmt.Sprintf("Hora: %s–%s\n", appt.StartsAt.Format(domain.ClockLayout), end.Format(domain.ClockLayout)))
	sb.WriteString(fmt.Sprintf("Folio: #%d", appt.ID))
	return sb.String()
}

// agendaDay parses an optional YYYY-MM-DD argument, defaulting to today
func (b *Bot) agendaDay(arg string) (time.Time, error) {
	loc := b.cfg.Timezone
	if loc == nil {
		loc = time.Local
	}
	if arg == "" {
		return domain.Day(b.now().In(loc)), nil
	}
	return time.ParseInLocation(domain.DateLayout, arg, loc)
}
