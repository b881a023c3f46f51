package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwthelp "github.com/Skotchmaster/storefront/pkg/jwt"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var secret = []byte("test-jwt-secret")

func token(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(secret, "user-1", role, exp)
	require.NoError(t, err)
	return tok
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	m := New(secret)
	ok := func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(CtxUserID).(string)+":"+c.Get(CtxRole).(string))
	}

	tests := []struct {
		name     string
		cookie   string
		admin    bool
		wantCode int
	}{
		{name: "no cookie", wantCode: http.StatusUnauthorized},
		{name: "garbage", cookie: "nope", wantCode: http.StatusUnauthorized},
		{name: "expired", cookie: token(t, tokens.RoleCustomer, time.Now().Add(-time.Minute)), wantCode: http.StatusUnauthorized},
		{name: "valid customer", cookie: token(t, tokens.RoleCustomer, time.Now().Add(time.Minute)), wantCode: http.StatusOK},
		{name: "customer on admin route", cookie: token(t, tokens.RoleCustomer, time.Now().Add(time.Minute)), admin: true, wantCode: http.StatusForbidden},
		{name: "admin on admin route", cookie: token(t, tokens.RoleAdmin, time.Now().Add(time.Minute)), admin: true, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: jwthelp.AccessCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := m.RequireAuth(ok)
			if tt.admin {
				h = m.RequireAdmin(ok)
			}
			err := h(c)
			if tt.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Contains(t, rec.Body.String(), "user-1:")
				return
			}
			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tt.wantCode, he.Code)
		})
	}
}
