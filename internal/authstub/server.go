package authstub

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"suitable-focus/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server is a local stand-in for the hosted auth backend. It implements the
// endpoint subset the client uses, with the same wire shapes and error codes,
// so the app can be developed and demoed without network access.
type Server struct {
	store       *Store
	log         logging.Logger
	jwtSecret   string
	tokenTTL    time.Duration
	autoConfirm bool
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger. The default discards everything.
func WithServerLogger(log logging.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithAutoConfirm makes signup confirm email addresses immediately, so a
// fresh account can sign in without visiting the confirm endpoint.
func WithAutoConfirm() ServerOption {
	return func(s *Server) { s.autoConfirm = true }
}

// NewServer creates a Server over the given store.
func NewServer(store *Store, jwtSecret string, tokenTTL time.Duration, opts ...ServerOption) *Server {
	s := &Server{
		store:     store,
		log:       logging.Nop(),
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Authorization", "Content-Type", "Apikey", "X-Client-Info"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	r.Use(cors.New(corsConfig))

	auth := r.Group("/auth/v1")
	{
		auth.POST("/token", s.handleToken)
		auth.POST("/signup", s.handleSignup)
		auth.POST("/logout", s.handleLogout)
		auth.POST("/recover", s.handleRecover)
		auth.POST("/resend", s.handleResend)
		auth.GET("/user", s.handleGetUser)
		auth.PUT("/user", s.handleUpdateUser)
	}

	// Dev-only helper standing in for the confirmation email link.
	r.POST("/stub/confirm", s.handleConfirm)

	return r
}

// writeError emits the structured error body the client parses.
func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error_code": code, "msg": msg})
}

type credentialsRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleToken(c *gin.Context) {
	switch c.Query("grant_type") {
	case "password":
		s.handlePasswordGrant(c)
	case "refresh_token":
		s.handleRefreshGrant(c)
	default:
		writeError(c, http.StatusBadRequest, "validation_failed", "unsupported grant type")
	}
}

func (s *Server) handlePasswordGrant(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(req.Email)
	if errors.Is(err, ErrUserNotFound) {
		writeError(c, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	ok, err := verifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
		return
	}
	if !user.EmailConfirmed {
		writeError(c, http.StatusBadRequest, "email_not_confirmed", "Email not confirmed")
		return
	}

	s.writeSession(c, user)
}

func (s *Server) handleRefreshGrant(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		writeError(c, http.StatusBadRequest, "validation_failed", "refresh_token is required")
		return
	}

	user, err := s.store.RedeemRefreshToken(req.RefreshToken)
	if errors.Is(err, ErrInvalidRefreshToken) {
		writeError(c, http.StatusBadRequest, "session_not_found", "Invalid refresh token")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	s.writeSession(c, user)
}

func (s *Server) handleSignup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(c, http.StatusBadRequest, "validation_failed", "email and password are required")
		return
	}
	if len(req.Password) < 6 {
		writeError(c, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 6 characters")
		return
	}

	name, _ := req.Data["name"].(string)

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.serverError(c, err)
		return
	}

	user, err := s.store.CreateUser(req.Email, hash, name)
	if errors.Is(err, ErrDuplicateEmail) {
		writeError(c, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	if s.autoConfirm {
		if err := s.store.ConfirmEmail(user.ID); err != nil {
			s.serverError(c, err)
			return
		}
		user.EmailConfirmed = true
		s.writeSession(c, user)
		return
	}

	// Confirmation pending: the real backend returns the user without a
	// session, which the client reads as "check your email".
	s.log.Info(c.Request.Context(), "signup pending confirmation", "email", user.Email)
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}

func (s *Server) handleLogout(c *gin.Context) {
	user, ok := s.authenticate(c)
	if !ok {
		return
	}
	if err := s.store.RevokeUserTokens(user.ID); err != nil {
		s.serverError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRecover(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		writeError(c, http.StatusBadRequest, "validation_failed", "email is required")
		return
	}

	user, err := s.store.GetUserByEmail(req.Email)
	if errors.Is(err, ErrUserNotFound) {
		writeError(c, http.StatusBadRequest, "user_not_found", "User not found")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	// No mail is sent locally; the link is logged so a developer can follow
	// the recovery flow by hand.
	s.log.Info(c.Request.Context(), "password recovery requested",
		"email", user.Email, "redirect_to", c.Query("redirect_to"))
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) handleResend(c *gin.Context) {
	var req struct {
		Type  string `json:"type"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		writeError(c, http.StatusBadRequest, "validation_failed", "email is required")
		return
	}

	if _, err := s.store.GetUserByEmail(req.Email); errors.Is(err, ErrUserNotFound) {
		writeError(c, http.StatusBadRequest, "user_not_found", "User not found")
		return
	} else if err != nil {
		s.serverError(c, err)
		return
	}

	s.log.Info(c.Request.Context(), "resend requested", "type", req.Type, "email", req.Email)
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) handleGetUser(c *gin.Context) {
	user, ok := s.authenticate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	user, ok := s.authenticate(c)
	if !ok {
		return
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	hash := ""
	if req.Password != "" {
		if len(req.Password) < 6 {
			writeError(c, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 6 characters")
			return
		}
		var err error
		hash, err = hashPassword(req.Password)
		if err != nil {
			s.serverError(c, err)
			return
		}
	}
	name, _ := req.Data["name"].(string)

	updated, err := s.store.UpdateUser(user.ID, hash, name)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(updated))
}

// handleConfirm marks an address confirmed, standing in for the email link.
func (s *Server) handleConfirm(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		writeError(c, http.StatusBadRequest, "validation_failed", "email is required")
		return
	}

	user, err := s.store.GetUserByEmail(req.Email)
	if errors.Is(err, ErrUserNotFound) {
		writeError(c, http.StatusBadRequest, "user_not_found", "User not found")
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	if err := s.store.ConfirmEmail(user.ID); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// authenticate resolves the bearer token to a user, writing the error
// response itself when the token is missing or invalid.
func (s *Server) authenticate(c *gin.Context) (*User, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		writeError(c, http.StatusUnauthorized, "bad_jwt", "missing bearer token")
		return nil, false
	}

	userID, err := parseAccessToken(s.jwtSecret, token)
	if err != nil {
		writeError(c, http.StatusUnauthorized, "bad_jwt", "invalid bearer token")
		return nil, false
	}

	user, err := s.store.GetUserByID(userID)
	if errors.Is(err, ErrUserNotFound) {
		writeError(c, http.StatusUnauthorized, "user_not_found", "User not found")
		return nil, false
	}
	if err != nil {
		s.serverError(c, err)
		return nil, false
	}
	return user, true
}

// writeSession mints an access/refresh token pair and writes the session body.
func (s *Server) writeSession(c *gin.Context, user *User) {
	accessToken, expiresAt, err := mintAccessToken(s.jwtSecret, user.ID, user.Email, s.tokenTTL)
	if err != nil {
		s.serverError(c, err)
		return
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		s.serverError(c, err)
		return
	}
	if err := s.store.SaveRefreshToken(refreshToken, user.ID); err != nil {
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"token_type":    "bearer",
		"expires_in":    int(s.tokenTTL.Seconds()),
		"expires_at":    expiresAt.Unix(),
		"refresh_token": refreshToken,
		"user":          userJSON(user),
	})
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.log.Error(c.Request.Context(), "internal error", "error", err)
	writeError(c, http.StatusInternalServerError, "unexpected_failure", "internal error")
}

func userJSON(user *User) gin.H {
	return gin.H{
		"id":            user.ID,
		"email":         user.Email,
		"user_metadata": gin.H{"name": user.Name},
		"created_at":    user.CreatedAt,
	}
}
