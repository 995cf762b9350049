package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	messageIDPrefix = "msg_"
	runIDPrefix     = "run_"

	// messageIDHexLen is the number of hex characters after the prefix.
	messageIDHexLen = 12
)

// NewMessageID generates an AG-UI message ID: "msg_" followed by the first
// 12 hex characters of a random UUID.
func NewMessageID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return messageIDPrefix + hex[:messageIDHexLen]
}

// NewRunID derives a run ID from the given time in unix seconds.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("%s%d", runIDPrefix, now.Unix())
}

// NewRequestID generates a request ID for log correlation.
func NewRequestID() string {
	return uuid.NewString()
}
