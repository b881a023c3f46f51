package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type PaymentHTTP struct {
	Svc *service.OrderService
}

func (h *PaymentHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.checkout")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	checkout := make([]service.CheckoutLine, 0, len(req.Products))
	for _, p := range req.Products {
		checkout = append(checkout, service.CheckoutLine{ProductID: p.ID, Quantity: p.Quantity})
	}

	order, err := h.Svc.Checkout(ctx, userID, checkout, req.CouponCode)
	if err != nil {
		return serviceError(l, "checkout_error", err)
	}
	l.Info("checkout_created", "order_id", order.ID, "total_amount", order.TotalAmount)
	return c.JSON(http.StatusOK, transport.CheckoutResponse{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		Discount:    order.Discount,
	})
}

func (h *PaymentHTTP) CheckoutSuccess(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.checkout_success")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.CheckoutSuccessRequest
	if err := c.Bind(&req); err != nil || req.OrderID == uuid.Nil {
		l.Warn("checkout_success_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "order_id is required")
	}

	res, err := h.Svc.CheckoutSuccess(ctx, userID, req.OrderID)
	if err != nil {
		return serviceError(l, "checkout_success_error", err)
	}

	msg := "payment successful, order placed"
	if res.AlreadyPaid {
		msg = "order already paid"
	}
	return c.JSON(http.StatusOK, transport.CheckoutSuccessResponse{
		Success:      true,
		Message:      msg,
		OrderID:      res.Order.ID,
		TotalAmount:  res.Order.TotalAmount,
		RewardCoupon: transport.CouponOf(res.Reward),
	})
}
