package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"blogicum/config"
	"blogicum/models"
	"blogicum/utils"
)

// AuthController handles sessions, registration, the profile editor and the
// OAuth providers.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// LoginForm renders the login page.
func (a *AuthController) LoginForm(ctx *gin.Context) {
	utils.HTML(ctx, http.StatusOK, "registration/login", gin.H{
		"username": "",
		"next":     ctx.Query("next"),
	})
}

// Login verifies credentials, sets the session cookie and honors ?next=.
func (a *AuthController) Login(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.PostForm("username"))
	password := ctx.PostForm("password")
	next := ctx.PostForm("next")

	fail := func() {
		utils.HTML(ctx, http.StatusOK, "registration/login", gin.H{
			"error":    "Invalid username or password.",
			"username": username,
			"next":     next,
		})
	}

	var user models.User
	if err := a.db.Where("username = ?", username).First(&user).Error; err != nil {
		fail()
		return
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, password) {
		fail()
		return
	}

	if err := a.startSession(ctx, &user); err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, safeNext(next))
}

// Logout blacklists the current token until it would have expired, drops the
// cookie and shows the logged-out page.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token, err := ctx.Cookie(utils.SessionCookieName); err == nil && token != "" {
		expiresAt := time.Now().Add(time.Duration(config.Get().SessionTTLH) * time.Hour)
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(token, expiresAt)
	}
	utils.ClearSessionCookie(ctx)
	ctx.Set(utils.ContextUserKey, nil)
	utils.HTML(ctx, http.StatusOK, "registration/logged_out", gin.H{})
}

// RegisterForm renders the registration page.
func (a *AuthController) RegisterForm(ctx *gin.Context) {
	utils.HTML(ctx, http.StatusOK, "registration/registration_form", gin.H{
		"form": &registerForm{Errors: map[string]string{}},
	})
}

type registerForm struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Errors    map[string]string
}

// Register creates a local account, logs the new user in and sends them home.
// Per-IP throttling applies when Redis is configured.
func (a *AuthController) Register(ctx *gin.Context) {
	form := registerForm{
		Username:  strings.TrimSpace(ctx.PostForm("username")),
		Email:     strings.TrimSpace(ctx.PostForm("email")),
		FirstName: utils.Sanitize(strings.TrimSpace(ctx.PostForm("first_name"))),
		LastName:  utils.Sanitize(strings.TrimSpace(ctx.PostForm("last_name"))),
		Errors:    map[string]string{},
	}
	password1 := ctx.PostForm("password1")
	password2 := ctx.PostForm("password2")

	rerender := func() {
		utils.HTML(ctx, http.StatusOK, "registration/registration_form", gin.H{"form": &form})
	}

	ip := ctx.ClientIP()
	if utils.RegistrationIsBanned(ip) || !utils.RegistrationCooldownTry(ip) || !utils.RegistrationDailyLimitCheck(ip) {
		form.Errors["username"] = "Too many registration attempts. Try again later."
		rerender()
		return
	}

	if form.Username == "" {
		form.Errors["username"] = "Username cannot be empty."
	} else if !validUsername(form.Username) {
		form.Errors["username"] = "Username may contain letters, digits and - _ . only."
	}
	if len(password1) < 8 {
		form.Errors["password1"] = "Password must be at least 8 characters."
	}
	if password1 != password2 {
		form.Errors["password2"] = "Passwords do not match."
	}

	if len(form.Errors) == 0 {
		var existing models.User
		if err := a.db.Where("username = ?", form.Username).First(&existing).Error; err == nil {
			form.Errors["username"] = "This username is already taken."
		}
	}
	if len(form.Errors) > 0 {
		rerender()
		return
	}

	hash, err := utils.HashPassword(password1)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	user := models.User{
		Username:     form.Username,
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		fails := utils.RegistrationFailRecord(ip)
		if max := config.Get().RegisterFailedMaxPerIPPerHour; max > 0 && fails >= max {
			utils.RegistrationBan(ip)
		}
		form.Errors["username"] = "Could not create the account."
		rerender()
		return
	}
	utils.RegistrationDailyIncrement(ip)

	if err := a.startSession(ctx, &user); err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}

// EditProfileForm renders the profile editor for the signed-in user.
func (a *AuthController) EditProfileForm(ctx *gin.Context) {
	viewer := utils.CurrentUser(ctx)
	utils.HTML(ctx, http.StatusOK, "blog/user", gin.H{
		"form": &registerForm{
			Username:  viewer.Username,
			Email:     viewer.Email,
			FirstName: viewer.FirstName,
			LastName:  viewer.LastName,
			Errors:    map[string]string{},
		},
	})
}

// EditProfile updates the signed-in user's own fields and returns to their
// profile page.
func (a *AuthController) EditProfile(ctx *gin.Context) {
	viewer := utils.CurrentUser(ctx)

	form := registerForm{
		Username:  strings.TrimSpace(ctx.PostForm("username")),
		Email:     strings.TrimSpace(ctx.PostForm("email")),
		FirstName: utils.Sanitize(strings.TrimSpace(ctx.PostForm("first_name"))),
		LastName:  utils.Sanitize(strings.TrimSpace(ctx.PostForm("last_name"))),
		Errors:    map[string]string{},
	}

	if form.Username == "" {
		form.Errors["username"] = "Username cannot be empty."
	} else if !validUsername(form.Username) {
		form.Errors["username"] = "Username may contain letters, digits and - _ . only."
	} else if form.Username != viewer.Username {
		var count int64
		a.db.Model(&models.User{}).Where("username = ?", form.Username).Count(&count)
		if count > 0 {
			form.Errors["username"] = "This username is already taken."
		}
	}
	if len(form.Errors) > 0 {
		utils.HTML(ctx, http.StatusOK, "blog/user", gin.H{"form": &form})
		return
	}

	viewer.Username = form.Username
	viewer.Email = form.Email
	viewer.FirstName = form.FirstName
	viewer.LastName = form.LastName
	if err := a.db.Save(viewer).Error; err != nil {
		utils.ServerError(ctx, err)
		return
	}

	// Username may be embedded in the session token; refresh it.
	if err := a.startSession(ctx, viewer); err != nil {
		utils.ServerError(ctx, err)
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	ctx.Redirect(http.StatusFound, profileURL(viewer.Username))
}

// OAuthRedirect sends the browser to the provider's authorization page.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := a.oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.NotFound(ctx)
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	ctx.Redirect(http.StatusFound, cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

// OAuthCallback exchanges the code, resolves the provider identity to a local
// account and signs the user in.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" || !utils.ConsumeState(state) {
		utils.HTML(ctx, http.StatusOK, "registration/login", gin.H{
			"username": "",
			"next":     "",
			"error":    "Sign-in was cancelled or expired. Try again.",
		})
		return
	}

	cfg, err := a.oauthConfig(provider)
	if err != nil {
		utils.NotFound(ctx)
		return
	}

	token, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		utils.HTML(ctx, http.StatusOK, "registration/login", gin.H{
			"username": "",
			"next":     "",
			"error":    "Sign-in failed. Try again.",
		})
		return
	}

	info, err := a.fetchOAuthUser(provider, token)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	user, err := a.findOrCreateOAuthUser(provider, info)
	if err != nil {
		utils.ServerError(ctx, err)
		return
	}

	if err := a.startSession(ctx, user); err != nil {
		utils.ServerError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}

func (a *AuthController) startSession(ctx *gin.Context, user *models.User) error {
	ttl := time.Duration(config.Get().SessionTTLH) * time.Hour
	token, err := utils.GenerateToken(user.ID, user.Username, ttl)
	if err != nil {
		return err
	}
	utils.SetSessionCookie(ctx, token)
	return nil
}

// safeNext only accepts same-site relative paths for the post-login redirect.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/"
}

func validUsername(s string) bool {
	if l := len([]rune(s)); l < 2 || l > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

func (a *AuthController) oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/auth/oauth/github/callback/", cfg.BaseURL),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/auth/oauth/google/callback/", cfg.BaseURL),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
}

func (a *AuthController) fetchOAuthUser(provider string, token *oauth2.Token) (*oauthUser, error) {
	switch provider {
	case "github":
		return fetchGitHubUser(token)
	case "google":
		return fetchGoogleUser(token)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (a *AuthController) findOrCreateOAuthUser(provider string, data *oauthUser) (*models.User, error) {
	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", provider, data.ID).First(&user).Error
	if err == nil {
		// Keep the provider's email fresh, nothing else.
		if email := strings.TrimSpace(data.Email); email != "" && email != user.Email {
			_ = a.db.Model(&user).Update("email", email).Error
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Username:   a.ensureUniqueUsername(data.Username, provider, data.ID),
		Email:      strings.TrimSpace(data.Email),
		FirstName:  data.FirstName,
		LastName:   data.LastName,
		Provider:   provider,
		ProviderID: data.ID,
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func fetchGitHubUser(token *oauth2.Token) (*oauthUser, error) {
	req, _ := http.NewRequest("GET", "https://api.github.com/user", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	email, _ := fetchGitHubEmail(token.AccessToken)
	first, last := splitName(payload.Name)

	return &oauthUser{
		ID:        fmt.Sprintf("%d", payload.ID),
		Username:  payload.Login,
		FirstName: first,
		LastName:  last,
		Email:     email,
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

func fetchGoogleUser(token *oauth2.Token) (*oauthUser, error) {
	req, _ := http.NewRequest("GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &oauthUser{
		ID:        payload.ID,
		Username:  payload.Email,
		FirstName: payload.GivenName,
		LastName:  payload.FamilyName,
		Email:     payload.Email,
	}, nil
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var b strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.' || r == '@':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func (a *AuthController) ensureUniqueUsername(base, provider, id string) string {
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(fmt.Sprintf("%s_%s", provider, id))
		if base == "" {
			base = "user_" + id
		}
	}

	candidate := base
	suffix := 1
	for {
		var count int64
		if err := a.db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return candidate
		}
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
		suffix++
	}
}
