package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

var bookingProperties = map[string]Property{
	"cliente_id":  {Type: "integer", Description: "ID del cliente"},
	"servicio_id": {Type: "integer", Description: "ID del servicio"},
	"empleado_id": {Type: "integer", Description: "ID del empleado"},
	"fecha":       {Type: "string", Description: "Fecha YYYY-MM-DD"},
	"hora":        {Type: "string", Description: "Hora HH:MM"},
	"fecha_texto": {Type: "string", Description: "Fecha y hora en texto libre, por ejemplo \"mañana a las 5 pm\""},
}

func without(props map[string]Property, key string) map[string]Property {
	out := make(map[string]Property, len(props))
	for k, v := range props {
		if k != key {
			out[k] = v
		}
	}
	return out
}

var tools = []Tool{
	{
		Name:        "oliva_list_services",
		Description: "Lista los servicios activos del salón con duración, precio y depósito.",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
	},
	{
		Name:        "oliva_list_staff",
		Description: "Lista el personal del salón con su puesto.",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
	},
	{
		Name:        "oliva_check_availability",
		Description: "Revisa si un empleado está libre para un servicio. Si está ocupado devuelve horarios sugeridos.",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: without(bookingProperties, "cliente_id"),
			Required:   []string{"servicio_id", "empleado_id"},
		},
	},
	{
		Name:        "oliva_book_appointment",
		Description: "Agenda una cita. Devuelve cita_id, inicio y fin, o el motivo por el que no se pudo agendar.",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: bookingProperties,
			Required:   []string{"cliente_id", "servicio_id", "empleado_id"},
		},
	},
	{
		Name:        "oliva_agenda",
		Description: "Citas de un día agrupadas por empleado.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"date": {Type: "string", Description: "Fecha YYYY-MM-DD (hoy por defecto)"},
			},
		},
	},
}

func (s *MCPServer) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32602, Message: "Invalid params"},
		}
	}

	var result string
	var isError bool

	switch params.Name {
	case "oliva_list_services":
		result, isError = s.apiRequest(http.MethodGet, "/api/services", nil)
	case "oliva_list_staff":
		result, isError = s.apiRequest(http.MethodGet, "/api/staff", nil)
	case "oliva_check_availability":
		result, isError = s.apiRequest(http.MethodPost, "/api/availability", params.Arguments)
	case "oliva_book_appointment":
		result, isError = s.apiRequest(http.MethodPost, "/api/bookings", params.Arguments)
	case "oliva_agenda":
		path := "/api/appointments"
		if date, ok := params.Arguments["date"].(string); ok && date != "" {
			path += "?date=" + date
		}
		result, isError = s.apiRequest(http.MethodGet, path, nil)
	default:
		result = "Unknown tool: " + params.Name
		isError = true
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

func (s *MCPServer) apiRequest(method, path string, body interface{}) (string, bool) {
	url := s.apiURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return fmt.Sprintf("Error creating request: %v", err), true
	}

	req.SetBasicAuth(s.apiUsername, s.apiPassword)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Sprintf("Error making request: %v", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err), true
	}
	return formatResponse(resp.StatusCode, respBody)
}

// formatResponse unwraps {success, data, error} listings; booking calls
// answer with their own {ok, reason, ...} shape, which is passed through.
func formatResponse(status int, body []byte) (string, bool) {
	var apiResp struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return string(bytes.TrimSpace(body)), status >= 400
	}

	if apiResp.Success == nil {
		return indent(body), status >= 400
	}
	if !*apiResp.Success {
		return fmt.Sprintf("API Error: %s", apiResp.Error), true
	}
	return indent(apiResp.Data), false
}

func indent(raw []byte) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}
