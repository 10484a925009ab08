package auth

import (
	"sync"
	"time"

	"github.com/jrsteele09/notes-auth-client/token"
)

// PendingTicket holds a sign-in that still needs its second factor. The provisional
// token stays inside the ticket and is only ever committed to the session store.
// A ticket can be redeemed or abandoned once.
type PendingTicket struct {
	token    string
	username string
	issuedAt time.Time
	mu       sync.Mutex
	consumed bool
}

func newPendingTicket(rawToken string, claims *token.Claims, now time.Time) *PendingTicket {
	return &PendingTicket{token: rawToken, username: claims.Subject, issuedAt: now}
}

// Username is the account the ticket was issued for.
func (t *PendingTicket) Username() string {
	return t.username
}

func (t *PendingTicket) IssuedAt() time.Time {
	return t.issuedAt
}

func (t *PendingTicket) Consumed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consumed
}

// Abandon discards the ticket. Later redemption fails with ErrTicketConsumed.
func (t *PendingTicket) Abandon() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consumed = true
}

// redeem runs fn with the provisional token and consumes the ticket when fn succeeds.
// Concurrent redemptions are serialised so at most one can succeed.
func (t *PendingTicket) redeem(fn func(pendingToken string) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.consumed {
		return ErrTicketConsumed
	}
	if err := fn(t.token); err != nil {
		return err
	}
	t.consumed = true
	t.token = ""
	return nil
}
