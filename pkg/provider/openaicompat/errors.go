package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rhuss/copaw/pkg/api"
)

// maxErrorExcerpt bounds how much of an upstream error body is echoed back.
const maxErrorExcerpt = 200

// MapHTTPError converts an HTTP response with a non-2xx status code into
// an APIError. The message names the status and carries the backend's own
// error message, or an excerpt of the raw body when it is not JSON.
func MapHTTPError(resp *http.Response) *api.APIError {
	detail := ExtractErrorMessage(resp.Body)
	message := fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode)
	if detail != "" {
		message += ": " + detail
	}

	var apiErr *api.APIError
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		apiErr = api.NewInvalidRequestError("", message)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		apiErr = api.NewServerError(message)
		apiErr.Code = "upstream_auth_failed"
	case resp.StatusCode == http.StatusNotFound:
		apiErr = api.NewNotFoundError(message)
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr = api.NewTooManyRequestsError(message)
	case resp.StatusCode == http.StatusServiceUnavailable:
		apiErr = api.NewModelError(message)
	default:
		apiErr = api.NewServerError(message)
	}
	return apiErr
}

// MapNetworkError converts a network-level error (connection refused, timeout,
// DNS resolution failure) into an APIError with a descriptive message.
func MapNetworkError(err error) *api.APIError {
	return api.NewServerError(fmt.Sprintf("backend connection error: %s", err.Error()))
}

// ExtractErrorMessage reads an error body and returns the backend's error
// message when the body is a ChatErrorResponse, otherwise a trimmed excerpt
// of at most maxErrorExcerpt bytes.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return Truncate(errResp.Error.Message, maxErrorExcerpt)
	}

	return Truncate(strings.TrimSpace(string(data)), maxErrorExcerpt)
}

// Truncate limits a string to maxLen runes for log and error output.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
