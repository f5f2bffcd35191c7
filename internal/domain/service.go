package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDuration is used when a service has no duration recorded
const DefaultDuration = 60

// Service is a catalog entry of the salon (corte, tinte, tratamiento...)
type Service struct {
	ID          int64
	Category    string
	Name        string
	DurationTxt string // "1-1.5 horas", shown to customers
	PriceTxt    string // "$400–$500 MXP"
	DepositTxt  string // "No" | "$300 MXP"
	Details     string
	DurationMin *int // minutes
	DurationMax *int // minutes
	PriceMin    *float64
	PriceMax    *float64
	Deposit     *float64 // nil if no deposit
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectiveDuration returns the minutes reserved for the service:
// the maximum duration, else the minimum, else DefaultDuration.
func (s *Service) EffectiveDuration() int {
	if s.DurationMax != nil && *s.DurationMax > 0 {
		return *s.DurationMax
	}
	if s.DurationMin != nil && *s.DurationMin > 0 {
		return *s.DurationMin
	}
	return DefaultDuration
}

// Length is EffectiveDuration as a time.Duration
func (s *Service) Length() time.Duration {
	return time.Duration(s.EffectiveDuration()) * time.Minute
}

// Card renders the service detail shown in chat
func (s *Service) Card() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b>\n", s.Name))
	sb.WriteString(fmt.Sprintf("Categoría: %s\n", s.Category))
	if s.DurationTxt != "" {
		sb.WriteString(fmt.Sprintf("Duración: %s\n", s.DurationTxt))
	}
	if s.PriceTxt != "" {
		sb.WriteString(fmt.Sprintf("Precio: %s\n", s.PriceTxt))
	}
	if s.DepositTxt != "" {
		sb.WriteString(fmt.Sprintf("Depósito: %s\n", s.DepositTxt))
	}
	if s.Details != "" {
		sb.WriteString(fmt.Sprintf("Detalles: %s\n", s.Details))
	}
	return sb.String()
}

// IntPtr is a helper for optional integer columns
func IntPtr(v int) *int {
	return &v
}
