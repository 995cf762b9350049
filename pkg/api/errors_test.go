package api

import (
	"encoding/json"
	"testing"
)

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with param",
			&APIError{Type: ErrorTypeInvalidRequest, Param: "input", Message: "no input messages"},
			"invalid_request: no input messages (param: input)",
		},
		{
			"without param",
			&APIError{Type: ErrorTypeServerError, Message: "backend connection error"},
			"server_error: backend connection error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *APIError
		wantType  ErrorType
		wantParam string
	}{
		{"invalid request", NewInvalidRequestError("messages", "no messages"), ErrorTypeInvalidRequest, "messages"},
		{"not found", NewNotFoundError("session not found"), ErrorTypeNotFound, ""},
		{"server error", NewServerError("internal failure"), ErrorTypeServerError, ""},
		{"model error", NewModelError("model overloaded"), ErrorTypeModelError, ""},
		{"too many requests", NewTooManyRequestsError("rate limit exceeded"), ErrorTypeTooManyRequests, ""},
		{"config", NewConfigError("api_key", "LLM_API_KEY not configured"), ErrorTypeConfiguration, "api_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
			if tt.err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", tt.err.Param, tt.wantParam)
			}
		})
	}
}

func TestConfigErrorCode(t *testing.T) {
	err := NewConfigError("api_key", "not configured")
	if err.Code != "missing_api_key" {
		t.Errorf("Code = %q, want %q", err.Code, "missing_api_key")
	}
}

func TestErrorResponseHasErrorField(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Error: NewInvalidRequestError("input", "No input messages")})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["error"]["message"] != "No input messages" {
		t.Errorf("error.message = %v, want %q", m["error"]["message"], "No input messages")
	}
	if _, ok := m["error"]["code"]; ok {
		t.Error("empty code should be omitted from JSON")
	}
}
