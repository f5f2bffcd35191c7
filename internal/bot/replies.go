package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/tazhate/olivabot/internal/intent"
)

const (
	paymentText = "💳 Aceptamos efectivo, tarjeta y transferencia. Algunos servicios piden un depósito para apartar la cita."
	supportText = "🛠 Lamento el inconveniente. Una persona del equipo te contactará en breve."
	unknownText = "No entendí. Usa el menú 👇"
	bookingHint = "Escribe la fecha y la hora que prefieres, por ejemplo: <i>mañana a las 5 pm</i> o <i>17/07/2025 10:30</i>."
)

func (b *Bot) greeting(name string) string {
	if name == "" {
		return fmt.Sprintf("¡Hola! Soy %s. ¿Qué deseas hacer?", b.cfg.SalonName)
	}
	return fmt.Sprintf("¡Hola %s! Soy %s. ¿Qué deseas hacer?", name, b.cfg.SalonName)
}

func (b *Bot) locationText() string {
	if b.cfg.SalonAddress == "" {
		return fmt.Sprintf("📍 Escríbenos y te compartimos la ubicación de %s.", b.cfg.SalonName)
	}
	return fmt.Sprintf("📍 Estamos en %s.", b.cfg.SalonAddress)
}

func (b *Bot) servicesText(ctx context.Context) (string, error) {
	services, err := b.storage.ListActiveServices(ctx)
	if err != nil {
		return "", fmt.Errorf("list services: %w", err)
	}
	if len(services) == 0 {
		return "Por ahora no hay servicios publicados.", nil
	}

	var sb strings.Builder
	sb.WriteString("💇 Nuestros servicios:\n")
	category := ""
	for _, s := range services {
		if s.Category != category {
			category = s.Category
			sb.WriteString("\n" + category + "\n")
		}
		line := "• " + s.Name
		if s.PriceTxt != "" {
			line += " · " + s.PriceTxt
		}
		sb.WriteString(line + "\n")
	}
	return sb.String(), nil
}

func (b *Bot) productsText(ctx context.Context) (string, error) {
	products, err := b.storage.ListProducts(ctx)
	if err != nil {
		return "", fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return "Por ahora no hay productos a la venta.", nil
	}

	var sb strings.Builder
	sb.WriteString("🧴 Productos disponibles:\n")
	for _, p := range products {
		sb.WriteString("• " + p.Line() + "\n")
	}
	return sb.String(), nil
}

// textReply answers an intent with plain text; used where there are no keyboards
func (b *Bot) textReply(ctx context.Context, in intent.Intent) (string, error) {
	switch in {
	case intent.Greeting:
		return b.greeting(""), nil
	case intent.Location:
		return b.locationText(), nil
	case intent.Payment:
		return paymentText, nil
	case intent.ListServices:
		return b.servicesText(ctx)
	case intent.ListProducts:
		return b.productsText(ctx)
	case intent.BookAppointment:
		return "📅 Para agendar dinos el servicio, la fecha y la hora que prefieres, o escríbenos por Telegram.", nil
	case intent.Support:
		return supportText, nil
	default:
		return "No entendí tu mensaje. Puedes preguntar por servicios, productos, ubicación o agendar una cita.", nil
	}
}
