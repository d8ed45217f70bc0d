package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"posterminal/auth"
	"posterminal/middleware"
	"posterminal/models"
)

type CredentialVerifier interface {
	Verify(username, password string) (string, error)
}

type AuthController struct {
	users        CredentialVerifier
	sessions     *auth.SessionStore
	secureCookie bool
	log          zerolog.Logger
}

func NewAuthController(users CredentialVerifier, sessions *auth.SessionStore, secureCookie bool, log zerolog.Logger) *AuthController {
	return &AuthController{users: users, sessions: sessions, secureCookie: secureCookie, log: log}
}

func (a *AuthController) Login(c *gin.Context) {
	var input models.Credentials
	if err := bindJSON(c, &input); err != nil {
		respondError(c, a.log, err)
		return
	}

	identity, err := a.users.Verify(input.Username, input.Password)
	if err != nil {
		a.log.Warn().Str("user", input.Username).Str("client_ip", c.ClientIP()).Msg("login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "code": "unauthenticated"})
		return
	}

	session, err := a.sessions.Issue(c.Request.Context(), identity)
	if err != nil {
		respondError(c, a.log, err)
		return
	}

	// Cookie lifetime follows the server-side TTL so both expire together.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, session.Token, int(a.sessions.TTL()/time.Second), "/", "", a.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"username":  session.Identity,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

func (a *AuthController) Logout(c *gin.Context) {
	if token, err := auth.TokenFromRequest(c.Request); err == nil {
		if err := a.sessions.Revoke(c.Request.Context(), token); err != nil {
			respondError(c, a.log, err)
			return
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", a.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Verify runs behind AuthMiddleware and only reports who is logged in.
func (a *AuthController) Verify(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "username": middleware.Identity(c)})
}
