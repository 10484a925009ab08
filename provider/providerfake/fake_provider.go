// Package providerfake is an in-memory notes identity provider for tests and local runs.
package providerfake

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/notes-auth-client/internal/utils"
	"github.com/jrsteele09/notes-auth-client/provider"
	"github.com/jrsteele09/notes-auth-client/token/tokenfake"
	"golang.org/x/crypto/bcrypt"
)

// Op names a provider operation for hooks and call counts.
type Op string

const (
	OpSignIn               Op = "signin"
	OpSignUp               Op = "signup"
	OpVerifyTwoFactorLogin Op = "verify-2fa-login"
	OpTwoFactorStatus      Op = "2fa-status"
	OpEnableTwoFactor      Op = "enable-2fa"
	OpVerifyTwoFactor      Op = "verify-2fa"
	OpDisableTwoFactor     Op = "disable-2fa"
	OpCurrentUser          Op = "current-user"
	OpUpdateCredentials    Op = "update-credentials"
	OpUpdateStatus         Op = "update-status"
	OpForgotPassword       Op = "forgot-password"
	OpResetPassword        Op = "reset-password"
)

// Hook runs before an operation. A non-nil error is returned in place of the result.
type Hook func(ctx context.Context) error

const (
	defaultSecret   = "notes-fake-provider-secret"
	defaultTokenTTL = 48 * time.Hour
	resetTokenTTL   = 15 * time.Minute
)

// Account seeds an account with AddAccount.
type Account struct {
	Username string
	Email    string
	Password string
	Roles    []string
	// TwoFactorSecret enables two-factor sign-in when set. Use GenerateSecret for a valid one.
	TwoFactorSecret string
}

type account struct {
	record        provider.AccountRecord
	passwordHash  []byte
	secret        string
	pendingSecret string
}

type resetToken struct {
	accountID int64
	expires   time.Time
	used      bool
}

// FakeProvider keeps accounts in memory and issues HS256 tokens.
type FakeProvider struct {
	minter    *tokenfake.Minter
	tokenTTL  time.Duration
	nowTime   func() time.Time
	nextID    int64
	accounts  map[int64]*account
	usernames map[string]int64 // current and previous usernames
	resets    map[string]*resetToken
	lastReset map[string]string // email to most recent reset token
	hooks     map[Op]Hook
	calls     map[Op]int
	lock      sync.Mutex
}

var _ provider.Provider = (*FakeProvider)(nil)

type Option func(*FakeProvider)

func WithNowTime(nowTime func() time.Time) Option {
	return func(f *FakeProvider) {
		f.nowTime = nowTime
	}
}

// WithTokenTTL sets the exp of issued tokens. Zero issues tokens without exp.
func WithTokenTTL(ttl time.Duration) Option {
	return func(f *FakeProvider) {
		f.tokenTTL = ttl
	}
}

func WithSigningSecret(secret string) Option {
	return func(f *FakeProvider) {
		f.minter = tokenfake.NewMinter(secret)
	}
}

func New(options ...Option) *FakeProvider {
	f := &FakeProvider{
		minter:    tokenfake.NewMinter(defaultSecret),
		tokenTTL:  defaultTokenTTL,
		nowTime:   time.Now,
		accounts:  make(map[int64]*account),
		usernames: make(map[string]int64),
		resets:    make(map[string]*resetToken),
		lastReset: make(map[string]string),
		hooks:     make(map[Op]Hook),
		calls:     make(map[Op]int),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// GenerateSecret returns a fresh TOTP secret.
func GenerateSecret() string {
	secret, err := generateTOTPSecret()
	if err != nil {
		panic(err)
	}
	return secret
}

// CodeFor returns the TOTP code for secret at t.
func CodeFor(secret string, t time.Time) string {
	code, err := totpCodeAt(secret, t)
	if err != nil {
		panic(err)
	}
	return code
}

// AddAccount creates an enabled, unlocked account.
func (f *FakeProvider) AddAccount(a Account) (provider.AccountRecord, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.addAccount(a)
}

func (f *FakeProvider) MustAddAccount(a Account) provider.AccountRecord {
	rec, err := f.AddAccount(a)
	if err != nil {
		panic(err)
	}
	return rec
}

// Account returns a copy of the named account.
func (f *FakeProvider) Account(username string) (provider.AccountRecord, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	acct, ok := f.byUsername(username)
	if !ok {
		return provider.AccountRecord{}, false
	}
	return copyRecord(acct.record), true
}

// Code returns the current code for the account's pending secret, or its active one.
func (f *FakeProvider) Code(username string) string {
	f.lock.Lock()
	defer f.lock.Unlock()
	acct, ok := f.byUsername(username)
	if !ok {
		return ""
	}
	secret := acct.pendingSecret
	if secret == "" {
		secret = acct.secret
	}
	if secret == "" {
		return ""
	}
	return CodeFor(secret, f.nowTime())
}

// SessionToken mints a token for username without a sign-in.
func (f *FakeProvider) SessionToken(username string) string {
	f.lock.Lock()
	defer f.lock.Unlock()
	acct, ok := f.byUsername(username)
	if !ok {
		panic(fmt.Sprintf("providerfake: no account %q", username))
	}
	tok, err := f.mint(acct)
	if err != nil {
		panic(err)
	}
	return tok
}

// ResetTokenFor returns the most recent reset token issued for email.
func (f *FakeProvider) ResetTokenFor(email string) (string, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	tok, ok := f.lastReset[email]
	return tok, ok
}

// OnCall installs hook for op, replacing any previous one. A nil hook removes it.
func (f *FakeProvider) OnCall(op Op, hook Hook) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if hook == nil {
		delete(f.hooks, op)
		return
	}
	f.hooks[op] = hook
}

// Fail makes every call to op return err until the hook is removed.
func (f *FakeProvider) Fail(op Op, err error) {
	f.OnCall(op, func(context.Context) error { return err })
}

// Calls reports how many times op was invoked.
func (f *FakeProvider) Calls(op Op) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[op]
}

func (f *FakeProvider) SignIn(ctx context.Context, username, password string) (string, error) {
	if err := f.enter(ctx, OpSignIn); err != nil {
		return "", err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, ok := f.byUsername(username)
	if !ok || acct.record.Username != username ||
		bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)) != nil {
		return "", statusError(http.StatusUnauthorized, "Bad credentials")
	}
	switch {
	case !acct.record.Enabled:
		return "", statusError(http.StatusUnauthorized, "User is disabled")
	case !acct.record.AccountNonLocked:
		return "", statusError(http.StatusUnauthorized, "User account is locked")
	case !acct.record.AccountNonExpired:
		return "", statusError(http.StatusUnauthorized, "User account has expired")
	case !acct.record.CredentialsNonExpired:
		return "", statusError(http.StatusUnauthorized, "User credentials have expired")
	}
	return f.mint(acct)
}

func (f *FakeProvider) SignUp(ctx context.Context, req provider.SignUpRequest) error {
	if err := f.enter(ctx, OpSignUp); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	roles := make([]string, 0, len(req.Roles))
	for _, r := range req.Roles {
		if strings.EqualFold(r, "admin") {
			roles = append(roles, "ROLE_ADMIN")
		}
	}
	if len(roles) == 0 {
		roles = append(roles, "ROLE_USER")
	}
	_, err := f.addAccount(Account{Username: req.Username, Email: req.Email, Password: req.Password, Roles: roles})
	return err
}

func (f *FakeProvider) VerifyTwoFactorLogin(ctx context.Context, pendingToken, code string) (string, error) {
	if err := f.enter(ctx, OpVerifyTwoFactorLogin); err != nil {
		return "", err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, err := f.authenticate(pendingToken)
	if err != nil {
		return "", err
	}
	if !acct.record.TwoFactorEnabled || !verifyTOTPCode(acct.secret, code, f.nowTime()) {
		return "", statusError(http.StatusUnauthorized, "Invalid 2FA Code")
	}
	return pendingToken, nil
}

func (f *FakeProvider) TwoFactorStatus(ctx context.Context, sessionToken string) (bool, error) {
	if err := f.enter(ctx, OpTwoFactorStatus); err != nil {
		return false, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, err := f.authenticate(sessionToken)
	if err != nil {
		return false, err
	}
	return acct.record.TwoFactorEnabled, nil
}

func (f *FakeProvider) EnableTwoFactor(ctx context.Context, sessionToken string) (string, error) {
	if err := f.enter(ctx, OpEnableTwoFactor); err != nil {
		return "", err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, err := f.authenticate(sessionToken)
	if err != nil {
		return "", err
	}
	secret, err := generateTOTPSecret()
	if err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	acct.pendingSecret = secret
	return otpAuthURL(secret, acct.record.Username), nil
}

func (f *FakeProvider) VerifyTwoFactor(ctx context.Context, sessionToken, code string) error {
	if err := f.enter(ctx, OpVerifyTwoFactor); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, err := f.authenticate(sessionToken)
	if err != nil {
		return err
	}
	secret := acct.pendingSecret
	if secret == "" {
		secret = acct.secret
	}
	if secret == "" || !verifyTOTPCode(secret, code, f.nowTime()) {
		return statusError(http.StatusUnauthorized, "Invalid 2FA Code")
	}
	acct.secret = secret
	acct.pendingSecret = ""
	acct.record.TwoFactorEnabled = true
	return nil
}

func (f *FakeProvider) DisableTwoFactor(ctx context.Context, sessionToken string) error {
	if err := f.enter(ctx, OpDisableTwoFactor); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, err := f.authenticate(sessionToken)
	if err != nil {
		return err
	}
	acct.secret = ""
	acct.pendingSecret = ""
	acct.record.TwoFactorEnabled = false
	return nil
}

func (f *FakeProvider) CurrentUser(ctx context.Context, sessionToken string) (*provider.AccountRecord, error) {
	if err := f.enter(ctx, OpCurrentUser); err != nil {
		return nil, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, err := f.authenticate(sessionToken)
	if err != nil {
		return nil, err
	}
	return utils.Ptr(copyRecord(acct.record)), nil
}

func (f *FakeProvider) UpdateCredentials(ctx context.Context, sessionToken, newUsername, newPassword string) error {
	if err := f.enter(ctx, OpUpdateCredentials); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, err := f.authenticate(sessionToken)
	if err != nil {
		return err
	}
	if newUsername != "" && newUsername != acct.record.Username {
		if id, taken := f.usernames[newUsername]; taken && id != acct.record.ID {
			return statusError(http.StatusBadRequest, "Username is already taken")
		}
		// The previous name keeps resolving so tokens issued before the rename stay usable.
		f.usernames[newUsername] = acct.record.ID
		acct.record.Username = newUsername
	}
	if newPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.MinCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		acct.passwordHash = hash
	}
	return nil
}

func (f *FakeProvider) UpdateStatus(ctx context.Context, sessionToken string, flag provider.StatusFlag, value bool) error {
	if err := f.enter(ctx, OpUpdateStatus); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, err := f.authenticate(sessionToken)
	if err != nil {
		return err
	}
	switch flag {
	case provider.FlagAccountExpired:
		acct.record.AccountNonExpired = !value
	case provider.FlagAccountLocked:
		acct.record.AccountNonLocked = !value
	case provider.FlagAccountEnabled:
		acct.record.Enabled = value
	case provider.FlagCredentialsExpired:
		acct.record.CredentialsNonExpired = !value
	default:
		return statusError(http.StatusBadRequest, fmt.Sprintf("unknown status flag %q", flag))
	}
	return nil
}

// ForgotPassword issues a reset token. Unknown addresses fail with a 500 the way the
// real provider does, which is why clients must not surface the outcome.
func (f *FakeProvider) ForgotPassword(ctx context.Context, email string) error {
	if err := f.enter(ctx, OpForgotPassword); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	acct, ok := f.byEmail(email)
	if !ok {
		return statusError(http.StatusInternalServerError, "Error sending password reset email")
	}
	tok := uuid.New().String()
	f.resets[tok] = &resetToken{accountID: acct.record.ID, expires: f.nowTime().Add(resetTokenTTL)}
	f.lastReset[email] = tok
	return nil
}

func (f *FakeProvider) ResetPassword(ctx context.Context, resetTok, newPassword string) error {
	if err := f.enter(ctx, OpResetPassword); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	rt, ok := f.resets[resetTok]
	switch {
	case !ok:
		return statusError(http.StatusBadRequest, "Invalid password reset token")
	case rt.used:
		return statusError(http.StatusBadRequest, "Password reset token has already been used")
	case f.nowTime().After(rt.expires):
		return statusError(http.StatusBadRequest, "Password reset token has expired")
	}
	acct, ok := f.accounts[rt.accountID]
	if !ok {
		return statusError(http.StatusBadRequest, "Invalid password reset token")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	acct.passwordHash = hash
	rt.used = true
	return nil
}

// enter counts the call and runs its hook outside the lock so a hook may block.
func (f *FakeProvider) enter(ctx context.Context, op Op) error {
	f.lock.Lock()
	f.calls[op]++
	hook := f.hooks[op]
	f.lock.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (f *FakeProvider) addAccount(a Account) (provider.AccountRecord, error) {
	if _, taken := f.usernames[a.Username]; taken {
		return provider.AccountRecord{}, statusError(http.StatusBadRequest, "Error: Username is already taken!")
	}
	if _, taken := f.byEmail(a.Email); taken {
		return provider.AccountRecord{}, statusError(http.StatusBadRequest, "Error: Email is already in use!")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.MinCost)
	if err != nil {
		return provider.AccountRecord{}, fmt.Errorf("hashing password: %w", err)
	}
	roles := a.Roles
	if len(roles) == 0 {
		roles = []string{"ROLE_USER"}
	}

	f.nextID++
	today := f.nowTime().UTC()
	acct := &account{
		record: provider.AccountRecord{
			ID:                    f.nextID,
			Username:              a.Username,
			Email:                 a.Email,
			AccountNonLocked:      true,
			AccountNonExpired:     true,
			CredentialsNonExpired: true,
			Enabled:               true,
			CredentialsExpiryDate: provider.Date{Time: today.AddDate(1, 0, 0).Truncate(24 * time.Hour)},
			AccountExpiryDate:     provider.Date{Time: today.AddDate(1, 0, 0).Truncate(24 * time.Hour)},
			TwoFactorEnabled:      a.TwoFactorSecret != "",
			Roles:                 append([]string(nil), roles...),
		},
		passwordHash: hash,
		secret:       a.TwoFactorSecret,
	}
	f.accounts[acct.record.ID] = acct
	f.usernames[a.Username] = acct.record.ID
	return copyRecord(acct.record), nil
}

func (f *FakeProvider) mint(acct *account) (string, error) {
	return f.minter.Mint(tokenfake.Grant{
		Subject:          acct.record.Username,
		Roles:            acct.record.Roles,
		TwoFactorEnabled: acct.record.TwoFactorEnabled,
		TTL:              f.tokenTTL,
	})
}

// authenticate resolves a bearer token to its account, or a 401.
func (f *FakeProvider) authenticate(rawToken string) (*account, error) {
	subject, err := f.minter.Verify(rawToken)
	if err != nil {
		return nil, statusError(http.StatusUnauthorized, "Invalid JWT token")
	}
	acct, ok := f.byUsername(subject)
	if !ok {
		return nil, statusError(http.StatusUnauthorized, "User not found")
	}
	return acct, nil
}

func (f *FakeProvider) byUsername(username string) (*account, bool) {
	id, ok := f.usernames[username]
	if !ok {
		return nil, false
	}
	acct, ok := f.accounts[id]
	return acct, ok
}

func (f *FakeProvider) byEmail(email string) (*account, bool) {
	for _, acct := range f.accounts {
		if strings.EqualFold(acct.record.Email, email) {
			return acct, true
		}
	}
	return nil, false
}

func copyRecord(rec provider.AccountRecord) provider.AccountRecord {
	rec.Roles = append([]string(nil), rec.Roles...)
	return rec
}

func statusError(code int, msg string) error {
	return &provider.StatusError{Code: code, Message: msg}
}
