package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/cache"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/utils"
)

func setupCounters(t *testing.T) *cache.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewClient(rdb)
}

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": c.GetString(ContextUserID)})
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counters := setupCounters(t)
	tokens := utils.NewTokenManager("secret", time.Hour)
	auth := NewAuthenticator(tokens, counters)

	r := gin.New()
	r.GET("/who", auth.OptionalAuth(), whoAmI)

	token, err := tokens.Generate(&models.User{ID: "u1"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		setup func(*http.Request)
		want  string
	}{
		{"anonymous", func(*http.Request) {}, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, "u1"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }, "u1"},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=" + token }, "u1"},
		{"invalid token is anonymous", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"user":"`+tt.want+`"}`, w.Body.String())
		})
	}
}

func TestAuthRequiredAndBlacklist(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counters := setupCounters(t)
	tokens := utils.NewTokenManager("secret", time.Hour)
	auth := NewAuthenticator(tokens, counters)

	r := gin.New()
	r.GET("/me", auth.AuthRequired(), whoAmI)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tokens.Generate(&models.User{ID: "u1"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	require.NoError(t, counters.BlacklistToken(context.Background(), claims.ID, time.Hour))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(setupCounters(t))
	rl.cartMax = 2

	r := gin.New()
	r.POST("/cart/add", rl.CartRateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cart/add", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestLoginRateLimitCooldown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(setupCounters(t))
	rl.loginMax = 2

	r := gin.New()
	r.POST("/login", rl.LoginRateLimit(), func(c *gin.Context) {
		var body struct {
			Password string `json:"password"`
		}
		_ = c.ShouldBindJSON(&body)
		if body.Password != "good" {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusOK)
	})

	login := func(password string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login",
			strings.NewReader(`{"email":"A@b.c","password":"`+password+`"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, login("good"), "body must still be readable by the handler")
	assert.Equal(t, http.StatusUnauthorized, login("bad"))
	assert.Equal(t, http.StatusUnauthorized, login("bad"))
	assert.Equal(t, http.StatusTooManyRequests, login("good"))
}

func TestSessionsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))

	r := gin.New()
	r.Use(Sessions(store))
	r.GET("/s", func(c *gin.Context) {
		s := SessionFrom(c)
		require.NotNil(t, s)
		c.JSON(http.StatusOK, gin.H{"new": s.IsNew})
	})

	req := httptest.NewRequest(http.MethodGet, "/s", nil)
	req.AddCookie(&http.Cookie{Name: "storefront_session", Value: "tampered"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"new":true}`, w.Body.String())
}
