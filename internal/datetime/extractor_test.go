package datetime

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func newTestExtractor() *Extractor {
	e := NewExtractor(time.UTC)
	// Friday
	e.now = func() time.Time { return time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC) }
	return e
}

func TestExtract(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Quiero agendar para mañana a las 3 pm", []string{"2025-01-11T15:00:00"}},
		{"17/07/2025 a las 20:14", []string{"2025-07-17T20:14:00"}},
		{"2025-02-03 10:30", []string{"2025-02-03T10:30:00"}},
		{"el 17 de julio de 2025 a las 5", []string{"2025-07-17T17:00:00"}},
		{"hoy 10:30", []string{"2025-01-10T10:30:00"}},
		{"pasado mañana a medio día", []string{"2025-01-12T12:00:00"}},
		{"el lunes a las 2:30pm", []string{"2025-01-13T14:30:00"}},
		{"el viernes", []string{"2025-01-17"}},
		{"por la mañana a las 11", []string{"2025-01-10T11:00:00"}},
		{"a las 3:05 pm", []string{"2025-01-10T15:05:00"}},
		{"31/02/2025 a las 10:00", nil},
		{"a las 25:00", nil},
		{"hola, qué servicios tienen?", nil},
		{"", nil},
	}
	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := e.Extract(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractKeepsMentionOrder(t *testing.T) {
	e := newTestExtractor()
	got, err := e.Extract(context.Background(), "20/01/2025 a las 10:00 o 21/01/2025 a las 12:00")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{"2025-01-20T10:00:00", "2025-01-21T12:00:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
