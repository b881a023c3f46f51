package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CouponHTTP struct {
	Svc *service.CouponService
}

// GetCoupon answers with the caller's active coupon or JSON null.
func (h *CouponHTTP) GetCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.get")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	coupon, err := h.Svc.Active(ctx, userID)
	if err != nil {
		return serviceError(l, "get_coupon_error", err)
	}
	return c.JSON(http.StatusOK, transport.CouponOf(coupon))
}

func (h *CouponHTTP) ValidateCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.validate")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.ValidateCouponRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("validate_coupon_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	coupon, err := h.Svc.Validate(ctx, userID, req.Code)
	if err != nil {
		return serviceError(l, "validate_coupon_error", err)
	}
	return c.JSON(http.StatusOK, transport.CouponOf(coupon))
}
