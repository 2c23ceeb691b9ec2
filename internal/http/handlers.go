package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/task-service/internal/account"
	"github.com/tazhibayda/task-service/internal/apperr"
	"github.com/tazhibayda/task-service/internal/domain"
	"github.com/tazhibayda/task-service/internal/identity"
	"github.com/tazhibayda/task-service/internal/metrics"
	"github.com/tazhibayda/task-service/internal/oauth"
	"github.com/tazhibayda/task-service/internal/queue"
	"github.com/tazhibayda/task-service/internal/repo"
	"github.com/tazhibayda/task-service/internal/security"
)

// DataStore is what the handlers need from the profile store.
// *repo.Store satisfies it; tests plug in a fake.
type DataStore interface {
	account.Profiles
	ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error)
	GetTask(ctx context.Context, id primitive.ObjectID, ownerID string) (*domain.Task, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	UpdateTask(ctx context.Context, id primitive.ObjectID, ownerID string, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, id primitive.ObjectID, ownerID string) (bool, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	Store           DataStore
	Accounts        *account.Reconciler
	Verifier        *identity.Verifier
	Google          *oauth.GoogleOAuth
	JWTSecret       string
	SessionTTL      time.Duration
	Redis           *repo.Redis
	RateLimitPerMin int
	Events          queue.Publisher
	FrontendURL     string
	AllowedOrigins  []string
	APIKeys         []string
}

func NewHandler(store DataStore, accounts *account.Reconciler, verifier *identity.Verifier, google *oauth.GoogleOAuth, jwtSecret string, ttlDays int, rds *repo.Redis, rlPerMin int, pub queue.Publisher) *Handler {
	ttl := security.SessionTTL
	if ttlDays > 0 {
		ttl = time.Duration(ttlDays) * 24 * time.Hour
	}
	return &Handler{
		Store:           store,
		Accounts:        accounts,
		Verifier:        verifier,
		Google:          google,
		JWTSecret:       jwtSecret,
		SessionTTL:      ttl,
		Redis:           rds,
		RateLimitPerMin: rlPerMin,
		Events:          pub,
	}
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type registerReq struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Register godoc
// @Summary Register user by email
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failWith(c, http.StatusBadRequest, "invalid json")
		return
	}
	email := strings.TrimSpace(in.Email)
	if !emailRe.MatchString(email) {
		failWith(c, http.StatusBadRequest, "valid email is required")
		return
	}

	u, err := h.Accounts.Register(c.Request.Context(), email, strings.TrimSpace(in.DisplayName), in.PhotoURL)
	if err != nil {
		fail(c, err)
		return
	}
	tok, err := security.Issue(h.JWTSecret, u.ID, h.SessionTTL)
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "token issue failed", err))
		return
	}

	go h.Events.Publish(context.Background(), queue.ExchangeAuth, queue.KeyUserRegistered,
		queue.UserRegistered{UserID: u.ID, Email: u.Email, Name: u.DisplayName, AuthType: u.AuthType},
		reqID(c))

	success(c, http.StatusCreated, "user registered successfully", gin.H{"user": u, "token": tok})
}

type loginReq struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Login godoc
// @Summary Login by email
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		failWith(c, http.StatusBadRequest, "invalid json")
		return
	}
	email := strings.TrimSpace(in.Email)
	if !emailRe.MatchString(email) {
		failWith(c, http.StatusBadRequest, "valid email is required")
		return
	}

	u, err := h.Accounts.Login(c.Request.Context(), email)
	if err != nil {
		fail(c, err)
		return
	}
	if !u.Active {
		failWith(c, http.StatusUnauthorized, "account is deactivated")
		return
	}
	if touched, err := h.Store.TouchLogin(c.Request.Context(), u.ID, ""); err == nil && touched != nil {
		u = touched
	}
	tok, err := security.Issue(h.JWTSecret, u.ID, h.SessionTTL)
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "token issue failed", err))
		return
	}
	metrics.LoginsTotal.WithLabelValues(domain.AuthTypeEmail).Inc()

	go h.Events.Publish(context.Background(), queue.ExchangeAuth, queue.KeyUserLoggedIn,
		queue.UserLoggedIn{UserID: u.ID, Email: u.Email, AuthType: domain.AuthTypeEmail},
		reqID(c))

	success(c, http.StatusOK, "login successful", gin.H{"user": u, "token": tok})
}

type googleAuthReq struct {
	IDToken string `json:"idToken"`
}

// GoogleAuth godoc
// @Summary Sign in with a Google or provider-issued id token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body googleAuthReq true "google auth"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/google [post]
func (h *Handler) GoogleAuth(c *gin.Context) {
	var in googleAuthReq
	if err := c.ShouldBindJSON(&in); err != nil || in.IDToken == "" {
		failWith(c, http.StatusBadRequest, "idToken is required")
		return
	}

	u, tok, err := h.googleSignIn(c.Request.Context(), in.IDToken, reqID(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "login successful", gin.H{"user": u, "token": tok})
}

// googleSignIn is the shared tail of both Google entry points: verify
// the claim, reconcile, stamp the login, mint a session token.
func (h *Handler) googleSignIn(ctx context.Context, rawToken, requestID string) (*domain.User, string, error) {
	claim, err := h.Verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, "", err
	}
	u, err := h.Accounts.SignIn(ctx, claim)
	if err != nil {
		return nil, "", err
	}
	if !u.Active {
		return nil, "", apperr.New(apperr.Unauthorized, "account is deactivated")
	}
	tok, err := security.Issue(h.JWTSecret, u.ID, h.SessionTTL)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.Internal, "token issue failed", err)
	}
	metrics.LoginsTotal.WithLabelValues(domain.AuthTypeGoogle).Inc()

	go h.Events.Publish(context.Background(), queue.ExchangeAuth, queue.KeyUserLoggedIn,
		queue.UserLoggedIn{UserID: u.ID, Email: u.Email, AuthType: domain.AuthTypeGoogle},
		requestID)
	return u, tok, nil
}

// GoogleInit godoc
// @Summary Redirect to the Google consent screen
// @Tags auth
// @Success 302
// @Router /auth/google/init [get]
func (h *Handler) GoogleInit(c *gin.Context) {
	state := h.Google.MakeState(uuid.NewString())
	c.Redirect(http.StatusFound, h.Google.AuthURL(state))
}

// GoogleCallback godoc
// @Summary OAuth callback; posts the session back to the opener window
// @Tags auth
// @Produce html
// @Success 200
// @Router /auth/google/callback [get]
func (h *Handler) GoogleCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		h.redirectError(c, e)
		return
	}
	if !h.Google.VerifyState(c.Query("state")) {
		h.redirectError(c, "invalid state")
		return
	}
	code := c.Query("code")
	if code == "" {
		h.redirectError(c, "missing code")
		return
	}

	var (
		u   *domain.User
		tok string
		err error
	)
	WithSpan(c.Request.Context(), "auth.google.callback", func(ctx context.Context) {
		var raw string
		raw, err = h.Google.Exchange(ctx, code)
		if err != nil {
			return
		}
		u, tok, err = h.googleSignIn(ctx, raw, reqID(c))
	})
	if err != nil {
		h.redirectError(c, apperr.Message(err))
		return
	}

	payload, _ := json.Marshal(gin.H{"type": "google-auth", "token": tok, "user": u})
	page := fmt.Sprintf(popupHTML, payload, h.FrontendURL, h.FrontendURL)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *Handler) redirectError(c *gin.Context, msg string) {
	c.Redirect(http.StatusFound, h.FrontendURL+"/login?error="+url.QueryEscape(msg))
}

// popupHTML hands the auth result to the window that opened the popup;
// without an opener it falls back to a plain redirect.
const popupHTML = `<!DOCTYPE html>
<html><body><script>
(function () {
  var payload = %s;
  if (window.opener) {
    window.opener.postMessage(payload, %q);
    window.close();
  } else {
    window.location = %q;
  }
})();
</script></body></html>`

// Me godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.Store.FindUserByID(c.Request.Context(), ownerID(c))
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "profile lookup failed", err))
		return
	}
	if u == nil {
		failWith(c, http.StatusNotFound, "user not found")
		return
	}
	success(c, http.StatusOK, "", gin.H{"user": u})
}

// Healthz godoc
// @Summary Liveness probe
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, envelope{Status: "error", Message: "degraded: " + err.Error()})
		return
	}
	success(c, http.StatusOK, "server is running", nil)
}
