package httpserver

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/authclient"
	jwthelp "github.com/Skotchmaster/storefront/pkg/jwt"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

func signupBody(email string) transport.SignupRequest {
	return transport.SignupRequest{Name: "Ann", Email: email, Password: "secret1", ConfirmPassword: "secret1"}
}

func TestAuthHTTP_SignupLoginProfile(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signup", signupBody("ann@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	profile := decode[transport.Profile](t, rec)
	assert.Equal(t, "ann@example.com", profile.Email)
	assert.Equal(t, tokens.RoleCustomer, profile.Role)

	access := cookieFrom(rec, jwthelp.AccessCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	require.NotNil(t, cookieFrom(rec, jwthelp.RefreshCookie))

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signup", signupBody("ann@example.com"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	bad := signupBody("bob@example.com")
	bad.ConfirmPassword = "other"
	rec = s.do(t, http.MethodPost, "/api/v1/auth/signup", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{Email: "ann@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	access = cookieFrom(rec, jwthelp.AccessCookie)

	rec = s.do(t, http.MethodGet, "/api/v1/auth/profile", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, profile.ID, decode[transport.Profile](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/v1/auth/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHTTP_RefreshAndLogout(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/auth/signup", signupBody("ann@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)
	refresh := cookieFrom(rec, jwthelp.RefreshCookie)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no cookie")

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil, refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := cookieFrom(rec, jwthelp.RefreshCookie)
	require.NotNil(t, rotated)
	assert.NotEqual(t, refresh.Value, rotated.Value)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "old refresh token is spent")

	rec = s.do(t, http.MethodPost, "/api/v1/auth/logout", nil, rotated)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := cookieFrom(rec, jwthelp.RefreshCookie)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil, rotated)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logout revokes")
}

func TestAuthHTTP_ExpiredAccessIs401(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	u := s.user(t, "ann@example.com", tokens.RoleCustomer)
	tok, err := tokens.NewAccessToken(testAccessSecret, u.ID.String(), u.Role, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/v1/cart", nil, &http.Cookie{Name: jwthelp.AccessCookie, Value: tok})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "access token expired")
}

func TestAuthHTTP_RateLimit(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, withLimiter(ratelimit.New(0.001, 2)))

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{Email: "x@example.com", Password: "secret1"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", transport.LoginRequest{Email: "x@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = s.do(t, http.MethodGet, "/api/v1/products/featured", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "catalog routes are not throttled")
}

// The client library against the real server: an expired access token is
// refreshed once for any number of concurrent requests.
func TestSessionRefresh_EndToEnd(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, withCSRF())
	srv := s.start(t)
	ctx := ctxTimeout(t)

	raw, err := authclient.NewHTTPTransport(srv.URL)
	require.NoError(t, err)
	mgr := authclient.NewManager(raw)
	t.Cleanup(mgr.Close)

	// Issue a pair whose access half is already expired.
	s.clock.Shift(-time.Hour)
	sess, err := mgr.Signup(ctx, authclient.SignupInput{
		Name: "Ann", Email: "ann@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	s.clock.Shift(0)
	assert.Equal(t, authclient.Authenticated, mgr.State())

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = mgr.CheckAuth(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	stats := mgr.Coordinator().Stats()
	assert.Equal(t, int64(1), stats.Refreshes)
	assert.Equal(t, sess.ID, mgr.Session().ID)

	var live int64
	require.NoError(t, s.repo.DB.Model(&models.RefreshToken{}).Where("revoked = ?", false).Count(&live).Error)
	assert.Equal(t, int64(1), live, "exactly one rotation happened")

	// Logout is a POST after the session started, so it needs the CSRF echo.
	require.NoError(t, mgr.Logout(ctx))
	assert.Equal(t, authclient.Anonymous, mgr.State())
}

func TestSessionRefresh_RevokedSessionEnds(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	srv := s.start(t)
	ctx := ctxTimeout(t)

	raw, err := authclient.NewHTTPTransport(srv.URL)
	require.NoError(t, err)
	mgr := authclient.NewManager(raw)
	t.Cleanup(mgr.Close)

	s.clock.Shift(-time.Hour)
	_, err = mgr.Signup(ctx, authclient.SignupInput{
		Name: "Ann", Email: "ann@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	s.clock.Shift(0)

	require.NoError(t, s.repo.DB.Model(&models.RefreshToken{}).Where("1 = 1").Update("revoked", true).Error)

	_, err = mgr.CheckAuth(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, authclient.ErrRefreshFailed)
	assert.ErrorIs(t, err, authclient.ErrInvalidRefreshCredential)
	assert.Equal(t, authclient.Anonymous, mgr.State())
	assert.False(t, raw.HasCredentials())
}
