package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/iliyamo/hotel-room-booking/internal/config"
	"github.com/iliyamo/hotel-room-booking/internal/model"
	"github.com/iliyamo/hotel-room-booking/internal/repository"
)

const oauthStateCookie = "oauth_state"

// googleUserInfo is the subset of the userinfo response we consume.
type googleUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// OAuthHandler implements Google sign-in.  Accounts are linked by the
// provider-assigned id; on first login a user row is created with no
// password hash.
type OAuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	Auth  *AuthHandler
	conf  *oauth2.Config
}

func NewOAuthHandler(cfg config.Config, users *repository.UserRepo, auth *AuthHandler) *OAuthHandler {
	return &OAuthHandler{
		Cfg:   cfg,
		Users: users,
		Auth:  auth,
		conf: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// Enabled reports whether Google login is configured.  The router
// skips these routes entirely when it is not.
func (h *OAuthHandler) Enabled() bool { return h.Cfg.GoogleClientID != "" }

// Redirect sends the browser to Google's consent page.  A random state
// value is kept in a short-lived cookie and checked on callback to
// bind the response to this browser.
func (h *OAuthHandler) Redirect(c echo.Context) error {
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.conf.AuthCodeURL(state))
}

// Callback exchanges the authorization code, finds or creates the
// linked account, and redirects to the frontend with a token pair in
// the query string.
func (h *OAuthHandler) Callback(c echo.Context) error {
	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "state mismatch"})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing code"})
	}

	ctx := c.Request().Context()
	token, err := h.conf.Exchange(ctx, code)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "code exchange failed"})
	}

	info, err := h.fetchUserInfo(c, token)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "userinfo fetch failed"})
	}
	if info.ID == "" || info.Email == "" {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "incomplete userinfo"})
	}

	dbCtx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByProvider(dbCtx, "google", info.ID)
	if err == repository.ErrUserNotFound {
		u = &model.User{
			AuthProvider: "google",
			ProviderID:   info.ID,
			Email:        info.Email,
			FullName:     info.Name,
			Role:         model.RoleGuest,
		}
		err = h.Users.CreateOAuth(dbCtx, u)
		if err == repository.ErrEmailExists {
			// Same email registered locally first; link the provider to it.
			if u, err = h.Users.GetByEmail(dbCtx, info.Email); err == nil {
				u.AuthProvider = "google"
				u.ProviderID = info.ID
				err = h.Users.Update(dbCtx, u)
			}
		}
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "account lookup failed"})
	}

	resp, err := h.Auth.issuePair(c, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}

	q := url.Values{}
	q.Set("access_token", resp.Access.Token)
	q.Set("refresh_token", resp.Refresh.Token)
	return c.Redirect(http.StatusTemporaryRedirect,
		fmt.Sprintf("%s/oauth/callback?%s", h.Cfg.FrontendURL, q.Encode()))
}

func (h *OAuthHandler) fetchUserInfo(c echo.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.conf.Client(c.Request().Context(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
