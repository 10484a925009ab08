package auth

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// LoginStep is either LoginStep1 (collect credentials) or LoginStep2 (collect a code).
type LoginStep interface {
	isLoginStep()
}

type LoginStep1 struct{}

// LoginStep2 carries the ticket waiting for its second factor.
type LoginStep2 struct {
	Ticket *PendingTicket
}

func (LoginStep1) isLoginStep() {}
func (LoginStep2) isLoginStep() {}

// LoginFlow is the two-step sign-in a front end walks through. Only LoginStep2 holds a
// ticket, so a code can never be submitted without one.
type LoginFlow struct {
	auth      *Authenticator
	twoFactor *TwoFactor
	step      LoginStep
	lock      sync.Mutex
}

func NewLoginFlow(a *Authenticator, tf *TwoFactor) (*LoginFlow, error) {
	if a == nil || tf == nil {
		return nil, errors.New("[NewLoginFlow] authenticator and two-factor controller are required")
	}
	return &LoginFlow{auth: a, twoFactor: tf, step: LoginStep1{}}, nil
}

func (f *LoginFlow) Step() LoginStep {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.step
}

// Submit sends credentials. A challenged sign-in moves the flow to LoginStep2.
func (f *LoginFlow) Submit(ctx context.Context, username, password string) (LoginOutcome, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if _, ok := f.step.(LoginStep1); !ok {
		return nil, errors.Wrap(ErrInvalidState, "[LoginFlow.Submit] a code is expected")
	}
	outcome, err := f.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if challenge, ok := outcome.(*ChallengeRequired); ok {
		f.step = LoginStep2{Ticket: challenge.Ticket}
	}
	return outcome, nil
}

// Verify submits the second-factor code. Success returns the flow to LoginStep1; a wrong
// code keeps the ticket for another try.
func (f *LoginFlow) Verify(ctx context.Context, code string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	step, ok := f.step.(LoginStep2)
	if !ok {
		return errors.Wrap(ErrInvalidState, "[LoginFlow.Verify] no sign-in is waiting for a code")
	}
	err := f.twoFactor.VerifyLoginChallenge(ctx, step.Ticket, code)
	if err == nil || errors.Is(err, ErrTicketConsumed) {
		f.step = LoginStep1{}
	}
	return err
}

// Abandon drops any pending ticket and returns to LoginStep1.
func (f *LoginFlow) Abandon() {
	f.lock.Lock()
	defer f.lock.Unlock()

	if step, ok := f.step.(LoginStep2); ok {
		step.Ticket.Abandon()
	}
	f.step = LoginStep1{}
}
