// Package http maps the account, session and score operations onto the
// browser-facing JSON routes. Rendering happens client-side; every
// outcome is returned with a stable machine-readable code the frontend
// turns into a flash message.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"maze-arcade/internal/domain"
	"maze-arcade/internal/repository"
	"maze-arcade/internal/service"
)

const sessionCookie = "maze_session"

const sessionContextKey = "session"

// Handler wires HTTP routes to domain services.
type Handler struct {
	accounts     service.AccountService
	sessions     *service.SessionManager
	ledger       *service.ScoreLedger
	verification *service.VerificationService
	cookies      *CookieCodec
	logger       *logrus.Logger
}

func NewHandler(
	accounts service.AccountService,
	sessions *service.SessionManager,
	ledger *service.ScoreLedger,
	verification *service.VerificationService,
	cookies *CookieCodec,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		accounts:     accounts,
		sessions:     sessions,
		ledger:       ledger,
		verification: verification,
		cookies:      cookies,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/verify_email/:token", h.verifyEmail)

	api := router.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.GET("/leaderboard", h.leaderboard)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		authed := api.Group("", h.requireSession())
		{
			authed.POST("/logout", h.logout)
			authed.GET("/me", h.me)
			authed.GET("/maze", h.maze)
			authed.POST("/submit", h.submit)
			authed.POST("/profile", h.updateProfile)
			authed.POST("/account/delete", h.deleteAccount)
			authed.POST("/verification", h.requestVerification)
		}
	}
}

// requireSession resolves the signed session cookie into a live session
// and aborts with 401 when absent or stale.
func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(sessionCookie)
		if err != nil {
			abortOutcome(c, service.ErrUnauthenticated)
			return
		}
		sessionID, err := h.cookies.Decode(cookie)
		if err != nil {
			abortOutcome(c, service.ErrUnauthenticated)
			return
		}
		session, err := h.sessions.Get(sessionID)
		if err != nil {
			abortOutcome(c, err)
			return
		}
		c.Set(sessionContextKey, session)
		c.Next()
	}
}

func currentSession(c *gin.Context) domain.Session {
	return c.MustGet(sessionContextKey).(domain.Session)
}

type registerRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "error": err.Error()})
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		abortOutcome(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"email": account.Email,
		"name":  account.Name,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "error": err.Error()})
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortOutcome(c, err)
		return
	}

	cookie, err := h.cookies.Encode(session.ID)
	if err != nil {
		h.logger.WithError(err).Error("sign session cookie")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.setSessionCookie(c, cookie)

	c.JSON(http.StatusOK, sessionToResponse(session))
}

func (h *Handler) logout(c *gin.Context) {
	session := currentSession(c)
	h.sessions.Logout(session.ID)
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"ended": true})
}

func (h *Handler) me(c *gin.Context) {
	session := currentSession(c)
	c.JSON(http.StatusOK, sessionToResponse(session))
}

// maze is the play gate: authenticated and verified accounts may start
// a run, everyone else is told why not.
func (h *Handler) maze(c *gin.Context) {
	session := currentSession(c)
	if _, err := h.sessions.RequireVerified(c.Request.Context(), session.ID); err != nil {
		abortOutcome(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": true})
}

func (h *Handler) submit(c *gin.Context) {
	session := currentSession(c)

	elapsed, err := parseElapsed(c.Query("eTime"))
	if err != nil {
		abortOutcome(c, service.ErrInvalidElapsed)
		return
	}

	updated, err := h.ledger.RecordRun(c.Request.Context(), session.ID, elapsed)
	if err != nil {
		abortOutcome(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(updated))
}

func (h *Handler) leaderboard(c *gin.Context) {
	entries, err := h.accounts.Leaderboard(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("read leaderboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]LeaderboardEntryResponse, len(entries))
	for i := range entries {
		resp[i] = LeaderboardEntryResponse{
			Name:       entries[i].Name,
			Score:      entries[i].Score,
			BestTimeMs: entries[i].BestTimeMs,
		}
	}
	c.JSON(http.StatusOK, resp)
}

type profileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	session := currentSession(c)

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "error": err.Error()})
		return
	}

	updated, err := h.sessions.UpdateProfile(c.Request.Context(), session.ID, req.Name, req.Email)
	if err != nil {
		abortOutcome(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionToResponse(updated))
}

type deleteAccountRequest struct {
	Confirm string `json:"confirm"`
}

func (h *Handler) deleteAccount(c *gin.Context) {
	session := currentSession(c)

	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "error": err.Error()})
		return
	}

	deleted, err := h.sessions.DeleteAccount(c.Request.Context(), session.ID, req.Confirm)
	if err != nil {
		abortOutcome(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusOK, gin.H{"deleted": false, "aborted": true})
		return
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) requestVerification(c *gin.Context) {
	session := currentSession(c)

	_, err := h.verification.Issue(c.Request.Context(), session.Email, session.Name)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyVerified) {
			abortOutcome(c, err)
			return
		}
		if errors.Is(err, service.ErrMailDelivery) {
			// Token state is already persisted; the user retries the
			// email, not the issuance.
			h.logger.WithError(err).Warn("verification mail delivery failed")
			c.JSON(http.StatusAccepted, gin.H{"issued": true, "warnings": []string{"failed to send verification email"}})
			return
		}
		h.logger.WithError(err).Error("issue verification token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"issued": true})
}

func (h *Handler) verifyEmail(c *gin.Context) {
	token := c.Param("token")
	email := c.Query("email")

	if err := h.verification.Validate(c.Request.Context(), email, token); err != nil {
		abortOutcome(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

func (h *Handler) setSessionCookie(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, value, int(h.cookies.TTL().Seconds()), "/", "", false, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
}

// SessionResponse is the snapshot returned after login and after every
// mutation that refreshes it.
type SessionResponse struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Score      int64  `json:"score"`
	BestTimeMs int64  `json:"best_time_ms"`
	Verified   bool   `json:"verified"`
}

type LeaderboardEntryResponse struct {
	Name       string `json:"name"`
	Score      int64  `json:"score"`
	BestTimeMs int64  `json:"best_time_ms"`
}

// parseElapsed reads the eTime query value the maze client submits.
// Anything that is not a non-negative integer is rejected.
func parseElapsed(raw string) (int64, error) {
	elapsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if elapsed < 0 {
		return 0, errors.New("elapsed time must not be negative")
	}
	return elapsed, nil
}

func sessionToResponse(session domain.Session) SessionResponse {
	return SessionResponse{
		Email:      session.Email,
		Name:       session.Name,
		Score:      session.Score,
		BestTimeMs: session.BestTimeMs,
		Verified:   session.Verified,
	}
}

// abortOutcome maps every discriminated service outcome to a status and
// a stable code.
func abortOutcome(c *gin.Context, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "errors": validation.Reasons})
	case errors.Is(err, repository.ErrDuplicateIdentity):
		c.JSON(http.StatusConflict, gin.H{"code": "duplicate_identity", "error": "email already taken, please try again"})
	case errors.Is(err, service.ErrAuthFailure):
		c.JSON(http.StatusUnauthorized, gin.H{"code": "auth_failure", "error": "incorrect email or password, please try again"})
	case errors.Is(err, service.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthenticated", "error": "please log in"})
	case errors.Is(err, service.ErrBlockedUnverified):
		c.JSON(http.StatusForbidden, gin.H{"code": "blocked_unverified", "error": "please verify your email address first"})
	case errors.Is(err, service.ErrInvalidOrExpired):
		c.JSON(http.StatusGone, gin.H{"code": "invalid_or_expired", "error": "verification link is invalid or expired"})
	case errors.Is(err, service.ErrAlreadyVerified):
		c.JSON(http.StatusOK, gin.H{"code": "already_verified", "verified": true})
	case errors.Is(err, service.ErrInvalidElapsed):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_elapsed", "error": "invalid elapsed time"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
