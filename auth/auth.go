// Package auth issues and checks the credentials that put a user id on the request.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"notion-lite/common"
	"notion-lite/models"
	"notion-lite/store"
)

const (
	TokenHeader       = "x-auth-token"
	sessionUserKey    = "user_id"
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt input limit, in bytes
)

type AuthModule struct {
	users      store.UserStore
	bcryptCost int
}

func NewAuthModule(users store.UserStore) *AuthModule {
	return &AuthModule{users: users, bcryptCost: 14}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRoutes mounts register and login openly and the rest behind RequireUser.
func (a *AuthModule) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/auth")
	{
		group.POST("/register", a.register)
		group.POST("/login", a.login)
		group.POST("/logout", a.RequireUser, a.logout)
		group.GET("/me", a.RequireUser, a.me)
	}
}

// RequireUser resolves the requester from the x-auth-token header, a bearer token,
// or the session cookie, in that order, and aborts with 401 when none is valid.
func (a *AuthModule) RequireUser(c *gin.Context) {
	if token := requestToken(c); token != "" {
		user, err := a.users.GetUserByToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				log.Error().Err(err).Msg("token lookup failed")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}
		common.SetUserID(c, user.ID)
		c.Next()
		return
	}

	session := sessions.Default(c)
	if userID, ok := session.Get(sessionUserKey).(string); ok && userID != "" {
		common.SetUserID(c, userID)
		c.Next()
		return
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied"})
}

func requestToken(c *gin.Context) string {
	if token := c.GetHeader(TokenHeader); token != "" {
		return token
	}
	if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return ""
}

func (a *AuthModule) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please include a valid email"})
		return
	}
	if len(req.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password must be at least 6 characters"})
		return
	}
	if len(req.Password) > maxPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password must be at most 72 bytes"})
		return
	}

	hash, err := hashPassword(req.Password, a.bcryptCost)
	if err != nil {
		common.RespondError(c, err, "User not found")
		return
	}
	token, err := generateToken()
	if err != nil {
		common.RespondError(c, err, "User not found")
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		SessionToken: token,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"message": "User already exists"})
			return
		}
		common.RespondError(c, err, "User not found")
		return
	}

	a.startSession(c, user)
	log.Info().Str("user_id", user.ID).Msg("user registered")
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (a *AuthModule) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := a.users.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
			return
		}
		common.RespondError(c, err, "User not found")
		return
	}
	if !checkPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}

	// one live token per user; logging in elsewhere replaces it
	token, err := generateToken()
	if err != nil {
		common.RespondError(c, err, "User not found")
		return
	}
	user.SessionToken = token
	if err := a.users.SaveUser(c.Request.Context(), user); err != nil {
		common.RespondError(c, err, "User not found")
		return
	}

	a.startSession(c, user)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (a *AuthModule) logout(c *gin.Context) {
	user, err := a.users.GetUser(c.Request.Context(), common.UserID(c))
	if err != nil {
		common.RespondError(c, err, "User not found")
		return
	}
	user.SessionToken = ""
	if err := a.users.SaveUser(c.Request.Context(), user); err != nil {
		common.RespondError(c, err, "User not found")
		return
	}

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Msg("could not clear session")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (a *AuthModule) me(c *gin.Context) {
	user, err := a.users.GetUser(c.Request.Context(), common.UserID(c))
	if err != nil {
		common.RespondError(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *AuthModule) startSession(c *gin.Context, user *models.User) {
	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("could not save session")
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func hashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
