package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/rangapin/forum/config"
	"github.com/rangapin/forum/forum"
	"github.com/rangapin/forum/middleware"
	"github.com/rangapin/forum/models"
	"github.com/rangapin/forum/store"
	"github.com/rangapin/forum/utils"
)

// AuthController handles login, logout and the identity bootstrap that turns
// an external identity into a forum user on first login.
type AuthController struct {
	store *store.Store
}

// NewAuthController creates an AuthController.
func NewAuthController(st *store.Store) *AuthController {
	return &AuthController{store: st}
}

// LoginPage renders the login form.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "login.html", gin.H{
		"User":  middleware.UserFrom(ctx),
		"Next":  ctx.Query("next"),
		"Error": ctx.Query("error"),
		"Sent":  ctx.Query("sent") == "1",
	})
}

// Login handles the login form. With a password it verifies credentials
// directly; with only an email it sends a one-time login code.
func (a *AuthController) Login(ctx *gin.Context) {
	email := strings.TrimSpace(strings.ToLower(ctx.PostForm("email")))
	password := ctx.PostForm("password")
	next := ctx.PostForm("next")

	if email == "" {
		redirectLogin(ctx, next, "email is required")
		return
	}

	if password != "" {
		a.passwordLogin(ctx, email, password, next)
		return
	}
	a.sendLoginCode(ctx, email, next)
}

func (a *AuthController) passwordLogin(ctx *gin.Context, email, password, next string) {
	user, err := a.store.UserByEmail(ctx.Request.Context(), email)
	if err != nil || user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, password) {
		redirectLogin(ctx, next, "invalid email or password")
		return
	}
	a.establishSession(ctx, user, next)
}

func (a *AuthController) sendLoginCode(ctx *gin.Context, email, next string) {
	if !utils.LoginCodeCooldownTrySet(email, time.Minute) {
		redirectLogin(ctx, next, "a code was sent recently, try again in a minute")
		return
	}
	code := utils.GenerateLoginCode(6)
	body := fmt.Sprintf("Your login code is %s\nIt expires in 10 minutes.", code)
	if err := utils.SendMail(email, "Your login code", body); err != nil {
		utils.Logger.Error("send login code failed", zap.Error(err))
		redirectLogin(ctx, next, "could not send the login code, try again later")
		return
	}
	utils.SaveLoginCode(email, code, 10*time.Minute)

	q := url.Values{"sent": {"1"}, "email": {email}}
	if next != "" {
		q.Set("next", next)
	}
	ctx.Redirect(http.StatusFound, "/auth/login?"+q.Encode())
}

// Callback finishes both login flows. A magic-link callback carries email
// and code; an OAuth callback carries state and code.
func (a *AuthController) Callback(ctx *gin.Context) {
	if state := ctx.Query("state"); state != "" {
		a.oauthCallback(ctx, state)
		return
	}
	a.codeCallback(ctx)
}

func (a *AuthController) codeCallback(ctx *gin.Context) {
	email := strings.TrimSpace(strings.ToLower(ctx.Query("email")))
	code := strings.TrimSpace(ctx.Query("code"))
	next := ctx.Query("next")

	if email == "" || code == "" || !utils.ConsumeLoginCode(email, code) {
		redirectLogin(ctx, next, "invalid or expired login code")
		return
	}

	user, err := a.store.UserByEmail(ctx.Request.Context(), email)
	if errors.Is(err, forum.ErrNotFound) {
		local := email
		if i := strings.Index(email, "@"); i > 0 {
			local = email[:i]
		}
		user, err = a.bootstrapUser(ctx.Request.Context(), identity{
			ProviderID:  "email:" + email,
			RawID:       uuid.NewString(),
			DisplayName: local,
			Email:       email,
		})
	}
	if err != nil {
		utils.Logger.Error("email login bootstrap failed", zap.Error(err))
		redirectLogin(ctx, next, "login failed, try again")
		return
	}
	a.establishSession(ctx, user, next)
}

// OAuthRedirect sends the browser to the provider's consent screen.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	cfg, err := oauthConfig(provider)
	if err != nil {
		redirectLogin(ctx, "", err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveOAuthState(state, provider, 10*time.Minute)
	ctx.Redirect(http.StatusFound, cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

func (a *AuthController) oauthCallback(ctx *gin.Context, state string) {
	code := ctx.Query("code")
	provider, ok := utils.ConsumeOAuthState(state)
	if !ok || code == "" {
		redirectLogin(ctx, "", "invalid or expired login attempt")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		redirectLogin(ctx, "", err.Error())
		return
	}

	token, err := cfg.Exchange(ctx.Request.Context(), code)
	if err != nil {
		redirectLogin(ctx, "", "could not complete the login")
		return
	}

	id, err := fetchOAuthIdentity(provider, token)
	if err != nil {
		utils.Logger.Error("oauth identity fetch failed", zap.Error(err))
		redirectLogin(ctx, "", "could not complete the login")
		return
	}

	user, err := a.store.UserByProviderID(ctx.Request.Context(), id.ProviderID)
	if errors.Is(err, forum.ErrNotFound) {
		user, err = a.bootstrapUser(ctx.Request.Context(), id)
	}
	if err != nil {
		utils.Logger.Error("oauth login bootstrap failed", zap.Error(err))
		redirectLogin(ctx, "", "login failed, try again")
		return
	}
	a.establishSession(ctx, user, "")
}

// Logout revokes the session token and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token, err := ctx.Cookie(middleware.SessionCookie); err == nil && token != "" {
		expiresAt := time.Now().Add(utils.SessionDuration)
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(token, expiresAt)
	}
	ctx.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	ctx.Redirect(http.StatusFound, "/")
}

// identity is what the login flows know about a person before a forum user
// exists for them.
type identity struct {
	// ProviderID is the stable, provider-qualified id stored on the user row.
	ProviderID string
	// RawID is the provider's own id, used for the username fallback.
	RawID       string
	DisplayName string
	Email       string
	AvatarURL   string
}

// bootstrapUser creates the forum user for a first login. The username comes
// from the display name; collisions get a numeric suffix. Two concurrent
// first logins for the same identity race on the provider_id unique index
// and the loser surfaces the error rather than inserting a duplicate.
func (a *AuthController) bootstrapUser(ctx context.Context, id identity) (*models.User, error) {
	username := a.ensureUniqueUsername(ctx, forum.DeriveUsername(id.DisplayName, id.RawID))
	user := &models.User{
		ProviderID: id.ProviderID,
		Username:   username,
		Email:      id.Email,
		AvatarURL:  id.AvatarURL,
		IsAdmin:    isAdminUsername(username),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *AuthController) ensureUniqueUsername(ctx context.Context, base string) string {
	candidate := base
	suffix := 1
	for {
		_, err := a.store.UserByUsername(ctx, candidate)
		if errors.Is(err, forum.ErrNotFound) {
			return candidate
		}
		if err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
		suffix++
	}
}

func (a *AuthController) establishSession(ctx *gin.Context, user *models.User, next string) {
	token, err := utils.GenerateToken(user.ID, user.Username, utils.SessionDuration)
	if err != nil {
		utils.Logger.Error("token generation failed", zap.Error(err))
		redirectLogin(ctx, next, "login failed, try again")
		return
	}
	ctx.SetCookie(middleware.SessionCookie, token, int(utils.SessionDuration.Seconds()), "/", "", false, true)
	if !safeReturnPath(next) {
		next = "/"
	}
	ctx.Redirect(http.StatusFound, next)
}

func redirectLogin(ctx *gin.Context, next, msg string) {
	q := url.Values{"error": {msg}}
	if next != "" {
		q.Set("next", next)
	}
	ctx.Redirect(http.StatusFound, "/auth/login?"+q.Encode())
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch provider {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github login is not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.BaseURL + "/auth/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google login is not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/auth/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchOAuthIdentity(provider string, token *oauth2.Token) (identity, error) {
	switch provider {
	case "github":
		return fetchGitHubIdentity(token)
	case "google":
		return fetchGoogleIdentity(token)
	default:
		return identity{}, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchGitHubIdentity(token *oauth2.Token) (identity, error) {
	req, _ := http.NewRequest("GET", "https://api.github.com/user", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return identity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return identity{}, fmt.Errorf("github user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return identity{}, err
	}

	email, _ := fetchGitHubEmail(token.AccessToken)

	rawID := fmt.Sprintf("%d", payload.ID)
	name := payload.Name
	if strings.TrimSpace(name) == "" {
		name = payload.Login
	}
	return identity{
		ProviderID:  "github:" + rawID,
		RawID:       rawID,
		DisplayName: name,
		Email:       email,
		AvatarURL:   payload.AvatarURL,
	}, nil
}

func fetchGitHubEmail(accessToken string) (string, error) {
	req, _ := http.NewRequest("GET", "https://api.github.com/user/emails", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github emails request failed: %s", resp.Status)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", err
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}

func fetchGoogleIdentity(token *oauth2.Token) (identity, error) {
	req, _ := http.NewRequest("GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return identity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return identity{}, fmt.Errorf("google user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return identity{}, err
	}

	return identity{
		ProviderID:  "google:" + payload.ID,
		RawID:       payload.ID,
		DisplayName: payload.Name,
		Email:       payload.Email,
		AvatarURL:   payload.Picture,
	}, nil
}

// isAdminUsername checks whether a username is configured as an admin.
func isAdminUsername(username string) bool {
	for _, u := range config.Get().AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), username) {
			return true
		}
	}
	return false
}
