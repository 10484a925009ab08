// Package session holds the single authenticated session of a running client.
//
// The Store is the only writer of the Session. Other components read it, subscribe to
// changes, or ask it for a transition (Set, Clear). The Session is persisted through a
// Repo under two fixed keys, JWT_TOKEN and USER, which are always written and removed
// together, so a restarted client rehydrates the same Session with Load.
package session
