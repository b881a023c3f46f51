package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/images"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/repo/repotest"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/events"
	jwthelp "github.com/Skotchmaster/storefront/pkg/jwt"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var (
	testAccessSecret  = []byte("test-access-secret")
	testRefreshSecret = []byte("test-refresh-secret")
)

// clock lets a test issue tokens as if it were another time.
type clock struct{ offset atomic.Int64 }

func (c *clock) Now() time.Time { return time.Now().Add(time.Duration(c.offset.Load())) }
func (c *clock) Shift(d time.Duration) { c.offset.Store(int64(d)) }

type testServer struct {
	e       *echo.Echo
	repo    *repo.GormRepo
	auth    *service.AuthService
	clock   *clock
	events  *events.Recorder
	images  *images.Memory
	limiter *ratelimit.Limiter
}

type serverOption func(*Deps)

func withCSRF() serverOption {
	return func(d *Deps) { d.CSRF = &csrf.Config{} }
}

func withLimiter(l *ratelimit.Limiter) serverOption {
	return func(d *Deps) { d.AuthLimiter = l }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	s := &testServer{
		repo:   repotest.New(t),
		clock:  &clock{},
		events: &events.Recorder{},
		images: images.NewMemory("http://img.test"),
	}
	s.auth = &service.AuthService{
		Repo:          s.repo,
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		AdminEmails:   []string{"admin@example.com"},
		Events:        s.events,
		Now:           s.clock.Now,
	}

	d := &Deps{
		AuthHandler: &AuthHTTP{Svc: s.auth},
		CatalogHandler: &CatalogHTTP{Svc: &service.CatalogService{
			Repo: s.repo, Images: s.images, Events: s.events,
		}},
		CartHandler:      &CartHTTP{Svc: &service.CartService{Repo: s.repo, Events: s.events}},
		CouponHandler:    &CouponHTTP{Svc: &service.CouponService{Repo: s.repo}},
		PaymentHandler:   &PaymentHTTP{Svc: &service.OrderService{Repo: s.repo, Events: s.events}},
		AnalyticsHandler: &AnalyticsHTTP{Svc: &service.AnalyticsService{Repo: s.repo}},
		JWTSecret:        testAccessSecret,
		Ready:            s.repo.Ping,
	}
	for _, opt := range opts {
		opt(d)
	}
	s.e = New(logging.Discard(), d)
	return s
}

func (s *testServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(s.e)
	t.Cleanup(srv.Close)
	return srv
}

func (s *testServer) user(t *testing.T, email, role string) models.User {
	t.Helper()
	return repotest.User(t, s.repo, email, role)
}

// accessCookie mints a valid access cookie without going through login.
func accessCookie(t *testing.T, u models.User) *http.Cookie {
	t.Helper()
	tok, err := tokens.NewAccessToken(testAccessSecret, u.ID.String(), u.Role, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return &http.Cookie{Name: jwthelp.AccessCookie, Value: tok}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func cookieFrom(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func ctxTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
