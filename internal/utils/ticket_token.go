package utils

import (
	"strings"

	"github.com/google/uuid"
)

// TicketTokenLength is the number of characters in a redemption token.
const TicketTokenLength = 12

// NewTicketToken returns a short redemption code taken from a random UUID:
// separators stripped, first TicketTokenLength hex digits, upper-cased.
// Uniqueness is structural; the unique index on tickets.token is the final
// arbiter.
func NewTicketToken() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:TicketTokenLength])
}

// NewTicketTokens returns n tokens that are distinct from each other.
func NewTicketTokens(n int) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		t := NewTicketToken()
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
