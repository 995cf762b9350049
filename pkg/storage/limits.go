package storage

// DefaultMaxHistory is the number of conversation rounds kept per session.
// Each round is a user turn plus an assistant turn, so a session holds at
// most 2*DefaultMaxHistory turns.
const DefaultMaxHistory = 20

// MaxTurns converts a history limit in rounds into a turn cap.
// A non-positive limit means no cap.
func MaxTurns(maxHistory int) int {
	if maxHistory <= 0 {
		return 0
	}
	return maxHistory * 2
}
