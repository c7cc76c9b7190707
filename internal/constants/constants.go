package constants

import "time"

const (
	DefaultChatAllowance = 5
	AdminPageSize        = 5
)

const (
	OAuthStateCookieName     = "oauth_state"
	OAuthStateCookieDuration = 10 * time.Minute
	OAuthStateLength         = 32
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

const (
	AuthRouteGroup  = "/auth"
	AdminRouteGroup = "/admin"
)

const (
	LoginRoute    = "/login"
	CallbackRoute = "/callback/:provider"
	LogoutRoute   = "/logout"
	MeRoute       = "/me"
	EventsRoute   = "/events"
	UsersRoute    = "/users"
	HealthRoute   = "/healthz"
)

const (
	SessionCookieName     = "session_token"
	SessionCookieDuration = 24 * time.Hour * JWTExpirationDays
	JWTExpirationDays     = 7
)

const (
	AdminCookieName     = "admin_token"
	AdminCookieDuration = 24 * time.Hour
)

const (
	MaxOpenConns = 25
	MaxIdleConns = 25
)

const (
	MsgAuthStateError   = "Authentication state lost. Please try signing in again."
	MsgStateMismatch    = "Authentication state mismatch. Please try signing in again."
	MsgMissingCode      = "Missing authorization code"
	MsgOAuthError       = "Failed to get user information from OAuth provider"
	MsgLookupError      = "Failed to resolve account access"
	MsgAccessDisabled   = "Your access has been disabled. Please contact the site owner."
	MsgUnknownProvider  = "Unknown sign-in provider"
	MsgDeleteNeedsCheck = "Deletion requires confirm=true"
)

const (
	ServiceName = "security-advisor-chatbot"
)

// UpdatesChannel is the Postgres NOTIFY channel the migration trigger
// publishes user emails on.
const UpdatesChannel = "user_updates"
