// Package auth signs users in and out of the notes identity provider.
//
// An Authenticator exchanges credentials for a session, handing the token straight to
// the session store, or returns a PendingTicket when the account has two-factor
// enabled. TwoFactor verifies that ticket and manages enrollment. LoginFlow ties the
// two together for interactive front ends.
package auth
