// Package intent classifies inbound chat messages
package intent

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

type Intent string

const (
	Greeting        Intent = "saludo"
	Location        Intent = "ubicacion"
	Payment         Intent = "pago"
	ListServices    Intent = "listar_servicios"
	ListProducts    Intent = "listar_productos"
	BookAppointment Intent = "agendar_cita"
	Support         Intent = "soporte_tecnico"
	Other           Intent = "otro"
)

// MinFallbackConfidence is the lowest confidence accepted from a Fallback
const MinFallbackConfidence = 0.25

var allowed = map[Intent]bool{
	Greeting: true, Location: true, Payment: true, ListServices: true,
	ListProducts: true, BookAppointment: true, Support: true, Other: true,
}

func Valid(i Intent) bool {
	return allowed[i]
}

type rule struct {
	intent  Intent
	pattern *regexp.Regexp
}

// words matches any alternative as a whole word; letters with accents count as word characters
func words(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + alternatives + `)(?:$|[^\p{L}\p{N}_])`)
}

// first match wins
var quickRules = []rule{
	{Greeting, words(`hola|buenas|hey|qué onda`)},
	{Location, words(`ubicaci[oó]n|d[oó]nde est[aá]n?`)},
	{Payment, words(`pago|tarjeta|factura|transferencia`)},
	{ListServices, words(`servicios?|corte|tinte|tratamiento`)},
	{ListProducts, words(`productos?|shampoo|crema|aceite`)},
	{BookAppointment, words(`cita|agendar|reservar|apartad[oa]`)},
	{Support, words(`ayuda|soporte|no funciona`)},
}

type Prediction struct {
	Intent     Intent
	Confidence float64
	Source     string // "rules", "fallback" or "default"
}

// Fallback is a slower classifier consulted when no rule matches
type Fallback interface {
	Classify(ctx context.Context, text string) (Intent, float64, error)
}

type Classifier struct {
	fallback Fallback
	logger   *zap.Logger
}

func NewClassifier(fallback Fallback, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{fallback: fallback, logger: logger}
}

// Predict runs the cascade: quick rules, then the fallback, then Other
func (c *Classifier) Predict(ctx context.Context, text string) Prediction {
	text = strings.ToLower(strings.TrimSpace(text))

	for _, r := range quickRules {
		if r.pattern.MatchString(text) {
			return Prediction{Intent: r.intent, Confidence: 1.0, Source: "rules"}
		}
	}

	if c.fallback != nil && text != "" {
		label, conf, err := c.fallback.Classify(ctx, text)
		switch {
		case err != nil:
			c.logger.Warn("fallback classifier failed", zap.Error(err))
		case Valid(label) && conf >= MinFallbackConfidence:
			return Prediction{Intent: label, Confidence: conf, Source: "fallback"}
		}
	}

	return Prediction{Intent: Other, Confidence: 0, Source: "default"}
}
