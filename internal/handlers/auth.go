package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"golang.org/x/oauth2"

	"seodesk/internal/config"
	"seodesk/internal/db"
	"seodesk/internal/middleware"
	"seodesk/internal/models"
)

// AuthHandler handles OIDC authentication flows.
type AuthHandler struct {
	provider     *oidc.Provider
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	db           *db.DB
	cfg          *config.Config
}

// NewAuthHandler creates a new auth handler with OIDC configuration.
func NewAuthHandler(ctx context.Context, cfg *config.Config, database *db.DB) (*AuthHandler, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, err
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID})

	return &AuthHandler{
		provider:     provider,
		oauth2Config: oauth2Config,
		verifier:     verifier,
		db:           database,
		cfg:          cfg,
	}, nil
}

// Login initiates the OIDC login flow.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	state := generateState()

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	sess.Set("oauth_state", state)

	return c.Redirect().To(h.oauth2Config.AuthCodeURL(state))
}

// Callback handles the OIDC callback after authentication.
func (h *AuthHandler) Callback(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}

	savedState, _ := sess.Get("oauth_state").(string)
	if savedState == "" || savedState != c.Query("state") {
		return fiber.NewError(fiber.StatusBadRequest, "invalid state")
	}
	sess.Delete("oauth_state")

	oauth2Token, err := h.oauth2Config.Exchange(c.Context(), c.Query("code"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to exchange code")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "missing id_token")
	}

	idToken, err := h.verifier.Verify(c.Context(), rawIDToken)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id_token")
	}

	claims, err := h.claims(c.Context(), idToken, oauth2Token)
	if err != nil {
		return err
	}

	user := UserFromClaims(claims)
	if user.Sub == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing subject claim")
	}
	if err := h.db.UpsertUser(c.Context(), user); err != nil {
		return err
	}

	sess.Set(middleware.SessionUserKey, user.Sub)
	slog.Info("user signed in", "user_id", user.ID, "email", user.Email)

	saved, _ := sess.Get("redirect_after_login").(string)
	sess.Delete("redirect_after_login")

	return c.Redirect().To(localRedirect(saved))
}

// claims merges ID token claims with userinfo. Some providers only put sub
// in the ID token.
func (h *AuthHandler) claims(ctx context.Context, idToken *oidc.IDToken, tok *oauth2.Token) (map[string]any, error) {
	claims := make(map[string]any)
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}

	userInfo, err := h.provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		slog.Warn("failed to fetch userinfo", "error", err)
		return claims, nil
	}
	var extra map[string]any
	if err := userInfo.Claims(&extra); err == nil {
		for k, v := range extra {
			if k != "sub" {
				claims[k] = v
			}
		}
	}
	return claims, nil
}

// localRedirect returns target when it is a path on this site, else "/".
func localRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

// Logout clears the user session.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	if sess := session.FromContext(c); sess != nil {
		_ = sess.Destroy()
	}
	return c.Redirect().To("/login")
}

// UserFromClaims builds a user from standard OIDC claims.
func UserFromClaims(claims map[string]any) *models.User {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)
	if name == "" {
		name, _ = claims["preferred_username"].(string)
	}
	return &models.User{Sub: sub, Email: email, Name: name, Picture: picture}
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
