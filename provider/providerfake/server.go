package providerfake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/notes-auth-client/provider"
)

type messageResponse struct {
	Message string `json:"message"`
	Status  bool   `json:"status"`
}

type signInResponse struct {
	JWTToken string   `json:"jwtToken"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// NewServer exposes f over the provider's HTTP routes.
func NewServer(f *FakeProvider) http.Handler {
	s := &server{fake: f}
	r := chi.NewRouter()

	r.Post(provider.RouteSignIn, s.signIn)
	r.Post(provider.RouteSignUp, s.signUp)
	r.Post(provider.RouteVerifyTwoFactorLogin, s.verifyTwoFactorLogin)
	r.Post(provider.RouteForgotPassword, s.forgotPassword)
	r.Post(provider.RouteResetPassword, s.resetPassword)

	r.Get(provider.RouteCurrentUser, s.currentUser)
	r.Get(provider.RouteTwoFactorStatus, s.twoFactorStatus)
	r.Post(provider.RouteUpdateCredentials, s.updateCredentials)

	r.Post(provider.RouteEnableTwoFactor, s.enableTwoFactor)
	r.Post(provider.RouteVerifyTwoFactor, s.verifyTwoFactor)
	r.Post(provider.RouteDisableTwoFactor, s.disableTwoFactor)

	for _, flag := range []provider.StatusFlag{
		provider.FlagAccountExpired,
		provider.FlagAccountLocked,
		provider.FlagAccountEnabled,
		provider.FlagCredentialsExpired,
	} {
		r.Put(flag.Route(), s.updateStatus(flag))
	}
	return r
}

type server struct {
	fake *FakeProvider
}

func (s *server) signIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tok, err := s.fake.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		mapError(w, err)
		return
	}
	rec, _ := s.fake.Account(req.Username)
	writeJSON(w, http.StatusOK, signInResponse{JWTToken: tok, Username: rec.Username, Roles: rec.Roles})
}

func (s *server) signUp(w http.ResponseWriter, r *http.Request) {
	var req provider.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.fake.SignUp(r.Context(), req); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User registered successfully!", Status: true})
}

func (s *server) verifyTwoFactorLogin(w http.ResponseWriter, r *http.Request) {
	if _, err := s.fake.VerifyTwoFactorLogin(r.Context(), r.FormValue("jwtToken"), r.FormValue("code")); err != nil {
		mapError(w, err)
		return
	}
	writeText(w, "2FA Verified")
}

func (s *server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := s.fake.ForgotPassword(r.Context(), r.FormValue("email")); err != nil {
		mapError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset email sent!")
}

func (s *server) resetPassword(w http.ResponseWriter, r *http.Request) {
	if err := s.fake.ResetPassword(r.Context(), r.FormValue("token"), r.FormValue("newPassword")); err != nil {
		mapError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successful")
}

func (s *server) currentUser(w http.ResponseWriter, r *http.Request) {
	rec, err := s.fake.CurrentUser(r.Context(), bearer(r))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) twoFactorStatus(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.fake.TwoFactorStatus(r.Context(), bearer(r))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is2faEnabled": enabled})
}

func (s *server) updateCredentials(w http.ResponseWriter, r *http.Request) {
	err := s.fake.UpdateCredentials(r.Context(), bearer(r), r.FormValue("newUsername"), r.FormValue("newPassword"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeText(w, "Credentials updated successfully")
}

func (s *server) enableTwoFactor(w http.ResponseWriter, r *http.Request) {
	qrURL, err := s.fake.EnableTwoFactor(r.Context(), bearer(r))
	if err != nil {
		mapError(w, err)
		return
	}
	writeText(w, qrURL)
}

func (s *server) verifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	if err := s.fake.VerifyTwoFactor(r.Context(), bearer(r), r.FormValue("code")); err != nil {
		mapError(w, err)
		return
	}
	writeText(w, "2FA Verified")
}

func (s *server) disableTwoFactor(w http.ResponseWriter, r *http.Request) {
	if err := s.fake.DisableTwoFactor(r.Context(), bearer(r)); err != nil {
		mapError(w, err)
		return
	}
	writeText(w, "2FA disabled")
}

func (s *server) updateStatus(flag provider.StatusFlag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, err := strconv.ParseBool(r.FormValue(flag.Param()))
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid "+flag.Param()+" value")
			return
		}
		if err := s.fake.UpdateStatus(r.Context(), bearer(r), flag, value); err != nil {
			mapError(w, err)
			return
		}
		writeText(w, "Account status updated")
	}
}

func bearer(r *http.Request) string {
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg, Status: status < http.StatusBadRequest})
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func mapError(w http.ResponseWriter, err error) {
	var se *provider.StatusError
	if errors.As(err, &se) {
		writeMessage(w, se.Code, se.Message)
		return
	}
	writeMessage(w, http.StatusInternalServerError, err.Error())
}
