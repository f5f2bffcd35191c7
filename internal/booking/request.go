package booking

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Request is the function-calling payload for availability checks and bookings
type Request struct {
	CustomerID FlexInt `json:"cliente_id"`
	ServiceID  FlexInt `json:"servicio_id"`
	EmployeeID FlexInt `json:"empleado_id"`
	Date       string  `json:"fecha,omitempty"`
	Time       string  `json:"hora,omitempty"`
	DateText   string  `json:"fecha_texto,omitempty"`
}

// FlexInt accepts a JSON number or a numeric string. Anything else leaves it
// invalid instead of failing the whole decode, so validation can report it.
type FlexInt struct {
	Value int64
	Valid bool
}

func Int(v int64) FlexInt {
	return FlexInt{Value: v, Valid: true}
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	*f = FlexInt{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			*f = Int(v)
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return nil
	}
	if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
		*f = Int(int64(n))
	}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, f.Value, 10), nil
}
