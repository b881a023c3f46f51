package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/pkg/metrics"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/ratelimit"
)

const APIPrefix = "/api/v1"

type Deps struct {
	AuthHandler      *AuthHTTP
	CatalogHandler   *CatalogHTTP
	CartHandler      *CartHTTP
	CouponHandler    *CouponHTTP
	PaymentHandler   *PaymentHTTP
	AnalyticsHandler *AnalyticsHTTP

	JWTSecret []byte
	// AuthLimiter throttles signup, login and refresh per client IP. Nil disables it.
	AuthLimiter *ratelimit.Limiter
	// CSRF enables the double submit cookie check on unsafe methods. Nil disables it.
	CSRF *csrf.Config
	// Ready backs /health/ready.
	Ready func(ctx context.Context) error
}

// New builds the echo instance with the shared middleware stack.
func New(logger *slog.Logger, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.BodyLimit("10M"))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready").SetInternal(err)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	authMW := middleware.New(d.JWTSecret)

	api := e.Group(APIPrefix)
	if d.CSRF != nil {
		cfg := *d.CSRF
		cfg.SkipPaths = append(cfg.SkipPaths,
			APIPrefix+"/auth/signup",
			APIPrefix+"/auth/login",
			APIPrefix+"/auth/refresh-token",
		)
		api.Use(csrf.Middleware(cfg))
	}

	auth := api.Group("/auth")
	throttled := auth.Group("")
	if d.AuthLimiter != nil {
		throttled.Use(d.AuthLimiter.Middleware())
	}
	throttled.POST("/signup", d.AuthHandler.Signup)
	throttled.POST("/login", d.AuthHandler.Login)
	throttled.POST("/refresh-token", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/profile", d.AuthHandler.Profile, authMW.RequireAuth)

	products := api.Group("/products")
	products.GET("/featured", d.CatalogHandler.GetFeatured)
	products.GET("/category/:category", d.CatalogHandler.GetByCategory)
	products.GET("/recommendations", d.CatalogHandler.GetRecommendations)
	products.GET("/search", d.CatalogHandler.Search)
	products.GET("/:id", d.CatalogHandler.GetProduct)

	adminProducts := products.Group("", authMW.RequireAdmin)
	adminProducts.GET("", d.CatalogHandler.GetProducts)
	adminProducts.POST("", d.CatalogHandler.CreateProduct)
	adminProducts.PUT("/:id", d.CatalogHandler.UpdateProduct)
	adminProducts.PATCH("/featured/:id", d.CatalogHandler.ToggleFeatured)
	adminProducts.DELETE("/:id", d.CatalogHandler.DeleteProduct)

	cart := api.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PUT("/:productId", d.CartHandler.UpdateQuantity)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.DELETE("/all", d.CartHandler.ClearCart)
	cart.DELETE("/:productId", d.CartHandler.RemoveFromCart)

	coupons := api.Group("/coupons", authMW.RequireAuth)
	coupons.GET("", d.CouponHandler.GetCoupon)
	coupons.POST("/validate", d.CouponHandler.ValidateCoupon)

	payment := api.Group("/payment", authMW.RequireAuth)
	payment.POST("/checkout", d.PaymentHandler.Checkout)
	payment.POST("/checkout-success", d.PaymentHandler.CheckoutSuccess)

	api.GET("/analytics", d.AnalyticsHandler.GetAnalytics, authMW.RequireAdmin)
}
