package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/notes-auth-client/internal/errors"
	"github.com/jrsteele09/notes-auth-client/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ErrNoSession is returned when an operation needs a Session and there is none.
var ErrNoSession = apperrors.ErrNoSession

// Store owns the process-wide Session.
type Store struct {
	repo    Repo
	maxAge  time.Duration    // applies to tokens without exp
	nowTime func() time.Time // injectable for testing

	writeMu sync.Mutex // held across a storage write and the matching memory swap

	mu      sync.RWMutex
	current *Session
	version uint64

	pubMu     sync.Mutex
	published uint64

	subsMu  sync.Mutex
	subs    map[int]func(*Session)
	nextSub int
}

var _ oauth2.TokenSource = (*Store)(nil)

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithMaxSessionAge bounds the lifetime of tokens that carry no exp claim.
func WithMaxSessionAge(d time.Duration) StoreOption {
	return func(s *Store) {
		s.maxAge = d
	}
}

// NewStore creates an empty Store persisting through repo. Call Load to rehydrate.
func NewStore(repo Repo, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("[session.NewStore] repo is required")
	}
	s := &Store{
		repo:    repo,
		nowTime: time.Now,
		subs:    make(map[int]func(*Session)),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Load rehydrates the Session from durable storage. A stored token that cannot be
// decoded, has expired, or does not match its stored summary is treated as absent and
// storage is cleared. A half-written pair is cleared too.
func (s *Store) Load() error {
	s.writeMu.Lock()
	sess, err := s.load()
	v, changed := s.swap(sess)
	s.writeMu.Unlock()

	if changed {
		s.publish(v, sess)
	}
	return err
}

func (s *Store) load() (*Session, error) {
	rec, err := s.repo.Get()
	if apperrors.Is(err, ErrNotFound) {
		if err := s.repo.Delete(); err != nil {
			return nil, fmt.Errorf("[session.Load] repo.Delete: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[session.Load] repo.Get: %w", err)
	}

	sess, reason := s.restore(rec)
	if sess == nil {
		log.Warn().Str("reason", reason).Msg("discarding stored session")
		if err := s.repo.Delete(); err != nil {
			return nil, fmt.Errorf("[session.Load] repo.Delete: %w", err)
		}
		return nil, nil
	}
	return sess, nil
}

func (s *Store) restore(rec *Record) (*Session, string) {
	claims, err := token.Decode(rec.Token)
	if err != nil {
		return nil, "malformed token"
	}
	if claims.Expired(s.nowTime(), s.maxAge) {
		return nil, "token expired"
	}
	var summary userSummary
	if err := json.Unmarshal(rec.User, &summary); err != nil {
		return nil, "unreadable user summary"
	}
	if summary.Username != claims.Subject {
		return nil, "user summary does not match token"
	}
	return &Session{Token: rec.Token, Identity: IdentityFromClaims(claims)}, ""
}

// Get returns a copy of the current Session.
func (s *Store) Get() (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	return s.current.clone(), true
}

// Set replaces the Session and persists it. On a persistence failure the previous
// Session is kept.
func (s *Store) Set(rawToken string, identity Identity) error {
	if rawToken == "" {
		return fmt.Errorf("[session.Set] %w: empty token", apperrors.ErrValidation)
	}
	summary, err := json.Marshal(userSummary{Username: identity.Username, Roles: nonNil(identity.Roles)})
	if err != nil {
		return fmt.Errorf("[session.Set] marshal user: %w", err)
	}
	next := (&Session{Token: rawToken, Identity: identity}).clone()

	s.writeMu.Lock()
	if err := s.repo.Put(Record{Token: rawToken, User: summary}); err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("[session.Set] repo.Put: %w", err)
	}
	v, _ := s.swap(next)
	s.writeMu.Unlock()

	s.publish(v, next)
	log.Debug().Str("username", identity.Username).Msg("session set")
	return nil
}

// SetToken decodes rawToken and stores it with the derived identity.
func (s *Store) SetToken(rawToken string) (*Session, error) {
	claims, err := token.Decode(rawToken)
	if err != nil {
		return nil, err
	}
	identity := IdentityFromClaims(claims)
	if err := s.Set(rawToken, identity); err != nil {
		return nil, err
	}
	return &Session{Token: rawToken, Identity: identity}, nil
}

// Clear removes the Session from memory and durable storage. Memory is cleared even if
// storage fails, in which case the error is returned.
func (s *Store) Clear() error {
	s.writeMu.Lock()
	v, changed := s.swap(nil)
	err := s.repo.Delete()
	s.writeMu.Unlock()

	if changed {
		s.publish(v, nil)
	}
	if err != nil {
		return fmt.Errorf("[session.Clear] repo.Delete: %w", err)
	}
	log.Debug().Msg("session cleared")
	return nil
}

// Token implements oauth2.TokenSource so the Session can authorize outgoing requests.
// An expired Session is cleared and reported as ErrNoSession.
func (s *Store) Token() (*oauth2.Token, error) {
	sess, ok := s.Get()
	if !ok {
		return nil, ErrNoSession
	}
	claims := token.Claims{IssuedAt: sess.Identity.IssuedAt, ExpiresAt: sess.Identity.ExpiresAt}
	if claims.Expired(s.nowTime(), s.maxAge) {
		if err := s.Clear(); err != nil {
			log.Err(err).Msg("failed to clear expired session")
		}
		return nil, ErrNoSession
	}
	return &oauth2.Token{
		AccessToken: sess.Token,
		TokenType:   "Bearer",
		Expiry:      sess.Identity.ExpiresAt,
	}, nil
}

// Subscribe registers fn to be called with every new Session (nil after Clear). The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(*Session)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// swap installs next in memory and returns its version. changed is false when both
// the old and new Session are nil.
func (s *Store) swap(next *Session) (v uint64, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed = s.current != nil || next != nil
	s.current = next
	if changed {
		s.version++
	}
	return s.version, changed
}

// publish tells subscribers about version v unless a newer one already went out.
func (s *Store) publish(v uint64, next *Session) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if v <= s.published {
		return
	}
	s.published = v

	s.subsMu.Lock()
	fns := make([]func(*Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(next.clone())
	}
}

func nonNil(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
