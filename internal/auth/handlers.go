package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/crispchris33/security-advisor-chatbot/internal/constants"
	"github.com/crispchris33/security-advisor-chatbot/internal/errors"
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
	"github.com/crispchris33/security-advisor-chatbot/internal/session"
	"github.com/crispchris33/security-advisor-chatbot/internal/templates"
	"github.com/crispchris33/security-advisor-chatbot/internal/view"
)

type rateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		attempts: make(map[string][]time.Time),
	}
}

func (rl *rateLimiter) checkLimit(key string, limit int, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	var validAttempts []time.Time
	for _, attempt := range rl.attempts[key] {
		if attempt.After(cutoff) {
			validAttempts = append(validAttempts, attempt)
		}
	}

	if len(validAttempts) >= limit {
		rl.attempts[key] = validAttempts
		return false
	}

	rl.attempts[key] = append(validAttempts, now)
	return true
}

var adminRateLimiter = newRateLimiter()

func (s *Service) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.handleRoot)
	router.GET(constants.HealthRoute, s.handleHealth)

	auth := router.Group(constants.AuthRouteGroup)
	{
		auth.GET(constants.LoginRoute, s.handleLogin)
		auth.GET(constants.CallbackRoute, s.handleCallback)
		auth.POST(constants.LogoutRoute, s.handleLogout)
		auth.GET(constants.MeRoute, s.handleMe)
		auth.GET(constants.EventsRoute, s.RequireAuth(), s.handleEvents)
	}

	router.POST("/admin/login", s.handleAdminLogin)
	router.POST("/admin/logout", s.handleAdminLogout)
}

// identityFromCookie returns nil when there is no usable session.
func (s *Service) identityFromCookie(c *gin.Context) *session.Identity {
	cookie, err := c.Cookie(constants.SessionCookieName)
	if err != nil || cookie == "" {
		return nil
	}
	ident, err := s.VerifySessionJWT(cookie)
	if err != nil {
		return nil
	}
	return &ident
}

func (s *Service) handleRoot(c *gin.Context) {
	ident := s.identityFromCookie(c)
	if ident == nil {
		templates.RenderLogin(c, templates.LoginData{
			GoogleURL: constants.AuthRouteGroup + constants.LoginRoute + "?provider=" + constants.ProviderGoogle,
			GitHubURL: constants.AuthRouteGroup + constants.LoginRoute + "?provider=" + constants.ProviderGitHub,
		})
		return
	}

	st := session.State{Phase: session.SignedIn, Email: ident.Email, DisplayName: ident.DisplayName, Status: models.StatusNone}
	if ident.Email != "" {
		result, err := s.gw.CheckApproval(c.Request.Context(), ident.Email)
		if err != nil {
			log.Printf("Approval lookup failed for %s: %v", ident.Email, err)
			templates.RenderError(c, templates.ErrorData{Message: constants.MsgLookupError})
			return
		}
		st.Status = result.Status
		st.IsAdmin = result.IsAdmin
	}

	sel := view.Select(st)
	templates.RenderPortfolio(c, templates.PortfolioData{
		DisplayName: sel.DisplayName,
		ChatActive:  sel.Chat == view.ChatActive,
		ChatLocked:  sel.Chat == view.ChatLocked,
		ShowAdmin:   sel.ShowAdmin,
	})
}

func (s *Service) handleLogin(c *gin.Context) {
	provider, ok := s.Provider(c.Query("provider"))
	if !ok {
		errors.BadRequest(c, constants.MsgUnknownProvider)
		return
	}

	state, err := GenerateState()
	if err != nil {
		errors.InternalServerError(c, "Failed to generate state")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		constants.OAuthStateCookieName,
		state,
		int(constants.OAuthStateCookieDuration.Seconds()),
		"/", "", false, true,
	)

	c.Redirect(http.StatusTemporaryRedirect, provider.AuthCodeURL(state))
}

func (s *Service) handleCallback(c *gin.Context) {
	provider, ok := s.Provider(c.Param("provider"))
	if !ok {
		errors.BadRequest(c, constants.MsgUnknownProvider)
		return
	}

	stateParam := c.Query("state")
	stateCookie, cookieErr := c.Cookie(constants.OAuthStateCookieName)

	if cookieErr != nil {
		log.Printf("OAuth state cookie missing: %v", cookieErr)
		errors.BadRequest(c, constants.MsgAuthStateError)
		return
	}

	if stateCookie != stateParam {
		log.Printf("OAuth state mismatch - Cookie: %s, Param: %s", stateCookie, stateParam)
		errors.BadRequest(c, constants.MsgStateMismatch)
		return
	}

	c.SetCookie(constants.OAuthStateCookieName, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		// The user cancelled at the provider. Leave them on the login
		// view; no error surface beyond the log line.
		log.Printf("OAuth callback for %s without code: %s", provider.Name, c.Query("error"))
		c.Redirect(http.StatusTemporaryRedirect, "/")
		return
	}

	oauthUser, err := provider.GetUserInfo(c.Request.Context(), code)
	if err != nil {
		log.Printf("OAuth GetUserInfo error (%s): %v", provider.Name, err)
		c.Redirect(http.StatusTemporaryRedirect, "/")
		return
	}

	name := oauthUser.Name
	if name == "" {
		name = oauthUser.DisplayName
	}
	ident := session.Identity{Email: oauthUser.Email, DisplayName: name}

	if ident.Email != "" {
		if _, err := s.gw.CheckApproval(c.Request.Context(), ident.Email); err != nil {
			log.Printf("Approval lookup failed during callback for %s: %v", ident.Email, err)
			templates.RenderError(c, templates.ErrorData{Message: constants.MsgLookupError})
			return
		}
	}

	token, err := s.GenerateSessionJWT(ident)
	if err != nil {
		errors.InternalServerError(c, "Failed to generate token")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		constants.SessionCookieName,
		token,
		int(constants.SessionCookieDuration.Seconds()),
		"/", "", false, true,
	)
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

func (s *Service) handleLogout(c *gin.Context) {
	c.SetCookie(constants.SessionCookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Service) handleMe(c *gin.Context) {
	ident := s.identityFromCookie(c)
	if ident == nil {
		c.JSON(http.StatusOK, gin.H{"phase": session.SignedOut.String()})
		return
	}

	resp := gin.H{
		"phase":    session.SignedIn.String(),
		"email":    ident.Email,
		"name":     ident.DisplayName,
		"status":   models.StatusNone,
		"is_admin": false,
	}
	if ident.Email != "" {
		result, err := s.gw.CheckApproval(c.Request.Context(), ident.Email)
		if err != nil {
			errors.InternalServerError(c, constants.MsgLookupError)
			return
		}
		resp["status"] = result.Status
		resp["is_admin"] = result.IsAdmin
	}
	c.JSON(http.StatusOK, resp)
}

// handleEvents streams session state over SSE. The controller's store
// subscription lives exactly as long as this request: the deferred
// Close releases it when the browser disconnects or signs out.
func (s *Service) handleEvents(c *gin.Context) {
	ident := c.MustGet(identityKey).(session.Identity)

	ctrl := session.NewController(s.gw)
	defer ctrl.Close()

	if err := ctrl.OnIdentity(c.Request.Context(), &ident); err != nil {
		errors.InternalServerError(c, constants.MsgLookupError)
		return
	}

	refresh, cancelRefresh := s.refresh.Subscribe()
	defer cancelRefresh()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case st := <-ctrl.Updates():
			writeStateEvent(c, st)
		case <-refresh:
			// Another view mutated approval data; re-resolve so this
			// session converges even if a push was missed.
			if err := ctrl.OnIdentity(c.Request.Context(), &ident); err != nil {
				log.Printf("Re-resolve after refresh failed for %s: %v", ident.Email, err)
			}
		case <-keepalive.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}

func writeStateEvent(c *gin.Context, st session.State) {
	payload, err := json.Marshal(gin.H{
		"phase":    st.Phase.String(),
		"status":   st.Status,
		"is_admin": st.IsAdmin,
	})
	if err != nil {
		return
	}
	c.Writer.WriteString("event: session\ndata: " + string(payload) + "\n\n")
	c.Writer.Flush()
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   constants.ServiceName,
	})
}

const identityKey = "identity"

// RequireAuth rejects requests without a valid session cookie and
// exposes the identity on the context.
func (s *Service) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := s.identityFromCookie(c)
		if ident == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(identityKey, *ident)
		c.Next()
	}
}

// RequireAdmin admits holders of the break-glass admin cookie, or a
// signed-in user whose record currently has the admin role. The role
// is checked live so a revoked admin loses the console immediately.
func (s *Service) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie, err := c.Cookie(constants.AdminCookieName); err == nil && s.verifyAdminJWT(cookie) {
			c.Set(adminKeyContext, "break-glass")
			c.Next()
			return
		}

		ident := s.identityFromCookie(c)
		if ident == nil || ident.Email == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		result, err := s.gw.CheckApproval(c.Request.Context(), ident.Email)
		if err != nil || !result.IsAdmin {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Set(identityKey, *ident)
		c.Set(adminKeyContext, ident.Email)
		c.Next()
	}
}

// AdminKey identifies the acting admin for per-session console state.
const adminKeyContext = "admin_key"

func AdminKey(c *gin.Context) string {
	if v, ok := c.Get(adminKeyContext); ok {
		if key, ok := v.(string); ok {
			return key
		}
	}
	return ""
}

func (s *Service) handleAdminLogin(c *gin.Context) {
	clientIP := c.ClientIP()

	if !adminRateLimiter.checkLimit(clientIP, 5, 15*time.Minute) {
		time.Sleep(2 * time.Second)
		errors.TooManyRequests(c, "Too many login attempts")
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		time.Sleep(500 * time.Millisecond)
		errors.BadRequest(c, "Invalid request")
		return
	}

	if s.adminHash == "" {
		errors.Forbidden(c, "Password login is not configured")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(req.Password)); err != nil {
		time.Sleep(500 * time.Millisecond)
		errors.Unauthorized(c, "Invalid password")
		return
	}

	token, err := s.generateAdminJWT()
	if err != nil {
		errors.InternalServerError(c, "Failed to generate token")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		constants.AdminCookieName,
		token,
		int(constants.AdminCookieDuration.Seconds()),
		"/", "", false, true,
	)

	c.JSON(http.StatusOK, gin.H{"message": "Admin login successful"})
}

func (s *Service) handleAdminLogout(c *gin.Context) {
	c.SetCookie(constants.AdminCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
