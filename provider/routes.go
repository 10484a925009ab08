package provider

// Route path constants
// All identity provider routes are defined here so the client and the fake server agree
const (
	// Public Routes - Login & Signup
	RouteSignIn               = "/api/auth/public/signin"
	RouteSignUp               = "/api/auth/public/signup"
	RouteVerifyTwoFactorLogin = "/api/auth/public/verify-2fa-login"

	// Public Routes - Password Recovery
	RouteForgotPassword = "/api/auth/public/forgot-password"
	RouteResetPassword  = "/api/auth/public/reset-password"

	// User Routes
	RouteCurrentUser       = "/api/auth/user"
	RouteTwoFactorStatus   = "/api/auth/user/2fa-status"
	RouteUpdateCredentials = "/api/auth/update-credentials"

	// Two-Factor Routes
	RouteEnableTwoFactor  = "/api/auth/enable-2fa"
	RouteVerifyTwoFactor  = "/api/auth/verify-2fa"
	RouteDisableTwoFactor = "/api/auth/disable-2fa"

	// Account Status Routes
	RouteUpdateExpiryStatus            = "/api/auth/update-expiry-status"
	RouteUpdateLockStatus              = "/api/auth/update-lock-status"
	RouteUpdateEnabledStatus           = "/api/auth/update-enabled-status"
	RouteUpdateCredentialsExpiryStatus = "/api/auth/update-credentials-expiry-status"
)
