package bot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/olivabot/config"
	"github.com/tazhate/olivabot/internal/booking"
	"github.com/tazhate/olivabot/internal/datetime"
	"github.com/tazhate/olivabot/internal/domain"
	"github.com/tazhate/olivabot/internal/intent"
	"github.com/tazhate/olivabot/internal/scheduling"
	"github.com/tazhate/olivabot/internal/service"
	"github.com/tazhate/olivabot/internal/storage"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// last returns the text and inline keyboard of the latest message or edit
func (f *fakeSender) last(t *testing.T) (string, *tgbotapi.InlineKeyboardMarkup) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("nothing sent")
	}
	switch m := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		kb, _ := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		return m.Text, &kb
	case tgbotapi.EditMessageTextConfig:
		return m.Text, m.ReplyMarkup
	}
	t.Fatalf("unexpected chattable %T", f.sent[len(f.sent)-1])
	return "", nil
}

type fixture struct {
	bot     *Bot
	sender  *fakeSender
	storage *storage.Storage
	svc     *domain.Service
	emp     *domain.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := storage.New(filepath.Join(t.TempDir(), "oliva.db"), time.UTC)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	svc := &domain.Service{Category: "Cabello", Name: "Corte Dama", PriceTxt: "$400 MXP", DurationMin: domain.IntPtr(60), Active: true}
	if _, err := st.UpsertService(ctx, svc); err != nil {
		t.Fatal(err)
	}
	emp := &domain.Employee{Name: "Ana", Role: "estilista"}
	if _, err := st.UpsertEmployee(ctx, emp); err != nil {
		t.Fatal(err)
	}
	price := 250.0
	if _, err := st.UpsertProduct(ctx, &domain.Product{Name: "Shampoo", Category: "Cuidado", Price: &price}); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		SalonName:       "Oliva",
		SalonAddress:    "Av. Reforma 10, CDMX",
		OwnerTelegramID: 99,
		Timezone:        time.UTC,
		APIUsername:     "admin",
		APIPassword:     "secret",
		TwilioEnabled:   true,
	}
	engine := scheduling.NewEngine(scheduling.BusinessHours{Open: 9 * time.Hour, Close: 20 * time.Hour}, nil)
	handler := booking.NewHandler(engine, booking.StorageSessions(st), datetime.NewExtractor(time.UTC), booking.Options{Location: time.UTC}, nil)

	sender := &fakeSender{}
	b := newBot(cfg, sender, Deps{
		Storage: st,
		Booking: handler,
		Intents: intent.NewClassifier(nil, nil),
		Agenda:  service.NewAgendaService(st, time.UTC),
	})
	return &fixture{bot: b, sender: sender, storage: st, svc: svc, emp: emp}
}

func textMessage(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: userID},
		From: &tgbotapi.User{ID: userID, FirstName: "Lucía"},
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callback(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID, FirstName: "Lucía"},
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func TestStartRegistersCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.handleUpdate(ctx, textMessage(42, "/start"))

	cust, err := f.storage.GetCustomerByTelegramID(ctx, 42)
	if err != nil || cust == nil {
		t.Fatalf("customer not registered: %v %v", cust, err)
	}
	if cust.Name != "Lucía" {
		t.Fatalf("name = %q", cust.Name)
	}
	if len(f.sender.sent) != 2 {
		t.Fatalf("sent %d messages, want greeting and phone request", len(f.sender.sent))
	}
	greeting := f.sender.sent[0].(tgbotapi.MessageConfig)
	if !strings.Contains(greeting.Text, "¡Hola Lucía! Soy Oliva") {
		t.Fatalf("greeting = %q", greeting.Text)
	}

	// second /start does not create another customer
	f.bot.handleUpdate(ctx, textMessage(42, "/start"))
	again, _ := f.storage.GetCustomerByTelegramID(ctx, 42)
	if again.ID != cust.ID {
		t.Fatalf("customer duplicated")
	}
}

func TestBookingFlowWithSuggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.emp.ID
	svc := f.svc.ID

	// first customer books 10:00 through the free text flow
	f.bot.handleUpdate(ctx, callback(1, "emp:"+itoa(svc)+":"+itoa(emp)))
	if text, _ := f.sender.last(t); !strings.Contains(text, "fecha y la hora") {
		t.Fatalf("hint = %q", text)
	}
	f.bot.handleUpdate(ctx, textMessage(1, "el 17/07/2030 10:00"))
	text, _ := f.sender.last(t)
	if !strings.Contains(text, "Cita confirmada") || !strings.Contains(text, "10:00–11:00") || !strings.Contains(text, "Ana") {
		t.Fatalf("booked text = %q", text)
	}
	if _, ok := f.bot.flows.Get(1); ok {
		t.Fatalf("flow not cleared after booking")
	}

	// second customer asks for the same slot and gets buttons
	f.bot.handleUpdate(ctx, callback(2, "emp:"+itoa(svc)+":"+itoa(emp)))
	f.bot.handleUpdate(ctx, textMessage(2, "17/07/2030 10:00"))
	text, kb := f.sender.last(t)
	if !strings.Contains(text, "no está disponible") {
		t.Fatalf("conflict text = %q", text)
	}
	want := "slot:" + itoa(svc) + ":" + itoa(emp) + ":2030-07-17:1100"
	if kb == nil || len(kb.InlineKeyboard) == 0 || kb.InlineKeyboard[0][0].CallbackData == nil || *kb.InlineKeyboard[0][0].CallbackData != want {
		t.Fatalf("first suggestion button = %+v, want %s", kb, want)
	}
	if _, ok := f.bot.flows.Get(2); !ok {
		t.Fatalf("flow dropped on conflict")
	}

	// pressing the suggestion books it
	f.bot.handleUpdate(ctx, callback(2, want))
	if text, _ := f.sender.last(t); !strings.Contains(text, "11:00–12:00") {
		t.Fatalf("suggestion booking = %q", text)
	}

	appts, err := f.storage.ListAppointmentsByDate(ctx, time.Date(2030, 7, 17, 0, 0, 0, 0, time.UTC))
	if err != nil || len(appts) != 2 {
		t.Fatalf("appointments = %v %v", appts, err)
	}
}

func TestBookingFlowValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.handleUpdate(ctx, callback(1, "emp:"+itoa(f.svc.ID)+":"+itoa(f.emp.ID)))
	f.bot.handleUpdate(ctx, textMessage(1, "17/07/2030"))
	if text, _ := f.sender.last(t); !strings.Contains(text, "Falta hora") {
		t.Fatalf("text = %q", text)
	}
	if _, ok := f.bot.flows.Get(1); !ok {
		t.Fatalf("flow dropped on validation error")
	}

	f.bot.handleUpdate(ctx, textMessage(1, "/salir"))
	if _, ok := f.bot.flows.Get(1); ok {
		t.Fatalf("flow kept after /salir")
	}
}

func TestIntentReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		text string
		want string
	}{
		{"¿dónde están?", "Av. Reforma 10"},
		{"aceptan tarjeta?", "transferencia"},
		{"qué productos tienen", "Shampoo · $250 MXP"},
		{"hola", "¡Hola Lucía!"},
		{"servicios", "Elige una categoría"},
		{"xyz", "No entendí"},
	}
	for _, tt := range tests {
		f.bot.handleUpdate(ctx, textMessage(7, tt.text))
		if text, _ := f.sender.last(t); !strings.Contains(text, tt.want) {
			t.Errorf("%q -> %q, want %q", tt.text, text, tt.want)
		}
	}
}

func TestCatalogCallbacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.handleUpdate(ctx, callback(3, "cat:Cabello"))
	_, kb := f.sender.last(t)
	if kb == nil || *kb.InlineKeyboard[0][0].CallbackData != "svc:"+itoa(f.svc.ID) {
		t.Fatalf("category keyboard = %+v", kb)
	}

	f.bot.handleUpdate(ctx, callback(3, "svc:"+itoa(f.svc.ID)))
	text, kb := f.sender.last(t)
	if !strings.Contains(text, "<b>Corte Dama</b>") || *kb.InlineKeyboard[0][0].CallbackData != "book:"+itoa(f.svc.ID) {
		t.Fatalf("card = %q %+v", text, kb)
	}

	f.bot.handleUpdate(ctx, callback(3, "book:"+itoa(f.svc.ID)))
	_, kb = f.sender.last(t)
	if *kb.InlineKeyboard[0][0].CallbackData != "emp:"+itoa(f.svc.ID)+":"+itoa(f.emp.ID) {
		t.Fatalf("staff keyboard = %+v", kb)
	}

	f.bot.handleUpdate(ctx, callback(3, "svc:999"))
	if text, _ := f.sender.last(t); text != "Servicio no encontrado." {
		t.Fatalf("missing service = %q", text)
	}
}

func TestAgendaOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.handleUpdate(ctx, textMessage(7, "/agenda"))
	if text, _ := f.sender.last(t); !strings.Contains(text, "Acceso denegado") {
		t.Fatalf("non-owner got %q", text)
	}
	f.bot.handleUpdate(ctx, textMessage(99, "/agenda 2030-07-17"))
	if text, _ := f.sender.last(t); !strings.Contains(text, "Sin citas") {
		t.Fatalf("owner got %q", text)
	}
}

func TestRateLimitDropsMessages(t *testing.T) {
	f := newFixture(t)
	f.bot.limiter = newChatLimiter(1)
	ctx := context.Background()

	f.bot.handleUpdate(ctx, textMessage(8, "hola"))
	f.bot.handleUpdate(ctx, textMessage(8, "hola"))
	if len(f.sender.sent) != 1 {
		t.Fatalf("sent %d, want 1", len(f.sender.sent))
	}
}

func TestTwilioWebhook(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.bot.Routes())
	defer srv.Close()

	resp, err := http.PostForm(srv.URL+"/twilio_webhook", url.Values{"Body": {"hola"}, "From": {"whatsapp:+5215512345678"}})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "<Response><Message>¡Hola! Soy Oliva.") {
		t.Fatalf("twiml = %s", body)
	}
}

func TestTwilioDisabled(t *testing.T) {
	f := newFixture(t)
	f.bot.cfg.TwilioEnabled = false
	rec := httptest.NewRecorder()
	f.bot.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/twilio_webhook", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebhookRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	h := f.bot.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bot", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /bot = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bot", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func apiRequest(t *testing.T, h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.SetBasicAuth("admin", "secret")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIRequiresAuth(t *testing.T) {
	f := newFixture(t)
	rec := apiRequest(t, f.bot.Routes(), http.MethodGet, "/api/services", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPIBookings(t *testing.T) {
	f := newFixture(t)
	h := f.bot.Routes()
	ctx := context.Background()
	cust := &domain.Customer{Name: "Marta", Phone: "5511112222"}
	if err := f.storage.CreateCustomer(ctx, cust); err != nil {
		t.Fatal(err)
	}

	rec := apiRequest(t, h, http.MethodGet, "/api/services", "", true)
	var list struct {
		Success bool              `json:"success"`
		Data    []ServiceResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || !list.Success || len(list.Data) != 1 || list.Data[0].Duration != 60 {
		t.Fatalf("services = %s (%v)", rec.Body.String(), err)
	}

	payload := `{"cliente_id":` + itoa(cust.ID) + `,"servicio_id":"` + itoa(f.svc.ID) + `","empleado_id":` + itoa(f.emp.ID) + `,"fecha":"2030-07-17","hora":"10:00"}`

	rec = apiRequest(t, h, http.MethodPost, "/api/availability", payload, true)
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("availability = %s", rec.Body.String())
	}

	rec = apiRequest(t, h, http.MethodPost, "/api/bookings", payload, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"inicio":"2030-07-17T10:00:00","fin":"2030-07-17T11:00:00"`) {
		t.Fatalf("booking = %d %s", rec.Code, rec.Body.String())
	}

	rec = apiRequest(t, h, http.MethodPost, "/api/bookings", payload, true)
	if strings.TrimSpace(rec.Body.String()) != `{"ok":false,"reason":"slot_occupied","suggestions":["11:00","11:30","12:00"]}` {
		t.Fatalf("second booking = %s", rec.Body.String())
	}

	rec = apiRequest(t, h, http.MethodGet, "/api/appointments?date=2030-07-17", "", true)
	var agenda struct {
		Data []AppointmentResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &agenda); err != nil || len(agenda.Data) != 1 || agenda.Data[0].Customer != "Marta" {
		t.Fatalf("agenda = %s", rec.Body.String())
	}

	rec = apiRequest(t, h, http.MethodGet, "/api/appointments?date=17-07-2030", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date = %d", rec.Code)
	}

	rec = apiRequest(t, h, http.MethodPost, "/api/bookings", "{", true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d", rec.Code)
	}
}

func TestChatLimiter(t *testing.T) {
	l := newChatLimiter(2)
	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst not allowed")
	}
	if l.Allow("a") {
		t.Fatalf("third message allowed")
	}
	if !l.Allow("b") {
		t.Fatalf("other chat limited")
	}
	if !newChatLimiter(0).Allow("a") {
		t.Fatalf("zero limit should disable")
	}
}

func TestFlowExpires(t *testing.T) {
	s := newFlowStore()
	now := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.Start(1, 2, 3)
	if p, ok := s.Get(1); !ok || p.ServiceID != 2 || p.EmployeeID != 3 {
		t.Fatalf("flow = %+v %v", p, ok)
	}
	now = now.Add(flowTTL + time.Minute)
	if _, ok := s.Get(1); ok {
		t.Fatalf("flow should expire")
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
