package account

import "context"

// Optimistic applies a change locally, commits it remotely and rolls the local change
// back if the commit fails. Callers serialise runs that touch the same state.
type Optimistic struct {
	Apply    func()
	Commit   func(ctx context.Context) error
	Rollback func()
}

// Run returns the commit error, after Rollback has run.
func (o Optimistic) Run(ctx context.Context) error {
	if o.Apply != nil {
		o.Apply()
	}
	if err := o.Commit(ctx); err != nil {
		if o.Rollback != nil {
			o.Rollback()
		}
		return err
	}
	return nil
}
