package intent

import (
	"context"
	"errors"
	"testing"
)

func TestQuickRules(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"Hola!", Greeting},
		{"¿Dónde están?", Location},
		{"cual es su ubicación", Location},
		{"aceptan tarjeta?", Payment},
		{"qué servicios tienen", ListServices},
		{"cuánto cuesta un tinte", ListServices},
		{"venden shampoo?", ListProducts},
		{"quiero agendar", BookAppointment},
		{"Quiero una cita", BookAppointment},
		{"la app no funciona", Support},
		// first rule wins
		{"hola, quiero una cita", Greeting},
		// whole words only
		{"cortesía", Other},
	}
	c := NewClassifier(nil, nil)
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := c.Predict(context.Background(), tt.text)
			if got.Intent != tt.want {
				t.Fatalf("Predict(%q) = %s, want %s", tt.text, got.Intent, tt.want)
			}
			if tt.want != Other && got.Confidence != 1.0 {
				t.Fatalf("rule confidence = %v", got.Confidence)
			}
		})
	}
}

type stubFallback struct {
	label Intent
	conf  float64
	err   error
	calls int
}

func (s *stubFallback) Classify(context.Context, string) (Intent, float64, error) {
	s.calls++
	return s.label, s.conf, s.err
}

func TestFallback(t *testing.T) {
	ctx := context.Background()

	fb := &stubFallback{label: Payment, conf: 0.8}
	got := NewClassifier(fb, nil).Predict(ctx, "cuánto es")
	if got.Intent != Payment || got.Source != "fallback" {
		t.Fatalf("expected fallback label, got %+v", got)
	}

	fb = &stubFallback{label: Payment, conf: 0.1}
	if got := NewClassifier(fb, nil).Predict(ctx, "cuánto es"); got.Intent != Other {
		t.Fatalf("low confidence should fall to Other, got %+v", got)
	}

	fb = &stubFallback{label: Intent("spam"), conf: 0.9}
	if got := NewClassifier(fb, nil).Predict(ctx, "cuánto es"); got.Intent != Other {
		t.Fatalf("unknown label should fall to Other, got %+v", got)
	}

	fb = &stubFallback{err: errors.New("timeout")}
	if got := NewClassifier(fb, nil).Predict(ctx, "cuánto es"); got.Intent != Other {
		t.Fatalf("fallback error should fall to Other, got %+v", got)
	}

	fb = &stubFallback{label: Payment, conf: 0.9}
	NewClassifier(fb, nil).Predict(ctx, "hola")
	if fb.calls != 0 {
		t.Fatal("fallback must not run when a rule matches")
	}
}
