package bot

import (
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/tazhate/olivabot/internal/history"
	"go.uber.org/zap"
)

// twimlResponse is <Response><Message>…</Message></Response>
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// POST /twilio_webhook - WhatsApp/SMS messages forwarded by Twilio
func (b *Bot) twilioWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	body := strings.TrimSpace(r.PostForm.Get("Body"))
	from := strings.TrimPrefix(r.PostForm.Get("From"), "whatsapp:")
	b.logger.Info("twilio message", zap.String("from", from), zap.Int("length", len(body)))

	if !b.limiter.Allow(from) {
		writeTwiML(w, "Recibimos muchos mensajes seguidos, espera un momento por favor.")
		return
	}

	reply := "Recibido"
	if body != "" {
		pred := b.intents.Predict(ctx, body)
		b.remember(ctx, "twilio", from, history.RoleUser, body, pred.Intent)

		text, err := b.textReply(ctx, pred.Intent)
		if err != nil {
			b.logger.Error("twilio reply failed", zap.Error(err))
		} else {
			reply = text
		}
	}

	b.remember(ctx, "twilio", from, history.RoleAssistant, reply, "")
	writeTwiML(w, reply)
}

func writeTwiML(w http.ResponseWriter, text string) {
	out, err := xml.Marshal(twimlResponse{Message: text})
	if err != nil {
		http.Error(w, "encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	w.Write(out)
}
