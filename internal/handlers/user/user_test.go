package user

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"

	"storefront_back_end/internal/cart"
)

func TestRespondCartError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"not found", cart.E("cart.add", cart.NotFound, cart.ErrProductNotFound), http.StatusNotFound, ""},
		{"invalid", cart.E("cart.add", cart.InvalidArgument, cart.ErrInvalidQuantity), http.StatusBadRequest, ""},
		{"unauthorized", cart.E("cart.ws", cart.Unauthorized, cart.ErrUnauthorized), http.StatusUnauthorized, ""},
		{"storage hides details", cart.E("cart.add", cart.StorageFailure, errors.New("redis: connection refused")), http.StatusInternalServerError, "internal error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondCartError(c, tt.err)
			assert.Equal(t, tt.code, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")
			if tt.message != "" {
				assert.Contains(t, w.Body.String(), tt.message)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user goth.User
		want string
	}{
		{"nickname", goth.User{NickName: "skywalker"}, "skywalker"},
		{"first name", goth.User{FirstName: "Leia", Name: "Leia Organa"}, "Leia"},
		{"spaces removed", goth.User{Name: "Han Solo"}, "HanSolo"},
		{"email fallback", goth.User{Email: "r2@droids.io"}, "r200"},
		{"truncated", goth.User{Name: "Obi-WanKenobiTheElder"}, "Obi-WanKenobiTh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayName(tt.user))
		})
	}
}

func TestWithSuffixStaysWithinBounds(t *testing.T) {
	got := withSuffix("Obi-WanKenobiTh")
	assert.Equal(t, nameMaxLen, utf8.RuneCountInString(got))
	assert.Equal(t, "Obi-WanKeno", got[:11])
	assert.NotEqual(t, got, withSuffix("Obi-WanKenobiTh"))
}
