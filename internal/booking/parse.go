package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

// Extractor pulls ISO-8601 datetimes out of free text; only the first one is used
type Extractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

type parsedRequest struct {
	customerID int64
	serviceID  int64
	employeeID int64
	start      time.Time
}

var extractedLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type extractedInstant struct {
	t        time.Time
	hasClock bool
}

func requireInt(f FlexInt, key string) (int64, error) {
	if !f.Valid {
		return 0, invalid("Parámetro faltante o inválido: " + key)
	}
	return f.Value, nil
}

// parse runs before any session is opened
func (h *Handler) parse(ctx context.Context, req Request, needCustomer bool) (*parsedRequest, error) {
	p := &parsedRequest{}
	var err error

	if needCustomer {
		if p.customerID, err = requireInt(req.CustomerID, "cliente_id"); err != nil {
			return nil, err
		}
	}
	if p.serviceID, err = requireInt(req.ServiceID, "servicio_id"); err != nil {
		return nil, err
	}
	if p.employeeID, err = requireInt(req.EmployeeID, "empleado_id"); err != nil {
		return nil, err
	}

	// the free text is extracted at most once and shared by date and time
	var extracted *extractedInstant
	var done bool
	extractOnce := func() (*extractedInstant, error) {
		if done || strings.TrimSpace(req.DateText) == "" || h.extractor == nil {
			return extracted, nil
		}
		done = true
		instants, err := h.extractor.Extract(ctx, req.DateText)
		if err != nil {
			return nil, fmt.Errorf("extract datetime: %w", err)
		}
		if len(instants) == 0 {
			return nil, nil
		}
		inst, err := parseExtracted(instants[0], h.loc)
		if err != nil {
			return nil, invalid(fmt.Sprintf("Fecha inválida: %s", instants[0]))
		}
		extracted = &inst
		return extracted, nil
	}

	var day time.Time
	if d := strings.TrimSpace(req.Date); d != "" {
		day, err = time.ParseInLocation(domain.DateLayout, d, h.loc)
		if err != nil {
			return nil, invalid(fmt.Sprintf("Fecha inválida: %s", d))
		}
	} else {
		t, err := extractOnce()
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, invalid("Falta fecha")
		}
		day = domain.Day(t.t)
	}

	var clock time.Time
	if c := strings.TrimSpace(req.Time); c != "" {
		clock, err = parseClock(c)
		if err != nil {
			return nil, invalid(fmt.Sprintf("Hora inválida: %s", c))
		}
	} else {
		t, err := extractOnce()
		if err != nil {
			return nil, err
		}
		if t == nil || !t.hasClock {
			return nil, invalid("Falta hora")
		}
		clock = t.t
	}

	p.start = domain.At(day, clock)
	return p, nil
}

func parseClock(s string) (time.Time, error) {
	if t, err := time.Parse(domain.ClockLayoutSec, s); err == nil {
		return t, nil
	}
	return time.Parse(domain.ClockLayout, s)
}

func parseExtracted(s string, loc *time.Location) (extractedInstant, error) {
	s = strings.TrimSpace(s)
	for _, layout := range extractedLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return extractedInstant{t: t, hasClock: true}, nil
		}
	}
	if t, err := time.ParseInLocation(domain.DateLayout, s, loc); err == nil {
		return extractedInstant{t: t}, nil
	}
	return extractedInstant{}, fmt.Errorf("unrecognized datetime %q", s)
}
