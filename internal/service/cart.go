package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/events"
)

const MaxLineQuantity = 99

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CartService) Lines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	return s.Repo.CartLines(ctx, userID)
}

// Add puts quantity units of a product in the cart. Quantity below one means one.
func (s *CartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]models.CartLine, error) {
	if quantity < 1 {
		quantity = 1
	}
	if quantity > MaxLineQuantity {
		return nil, invalid("quantity is too large")
	}
	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		return nil, notFound(err, "product")
	}

	item := &models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := s.Repo.AddToCart(ctx, item); err != nil {
		return nil, err
	}

	s.emit(ctx, "cart_item_added", userID, map[string]any{"product_id": productID.String(), "quantity": item.Quantity})
	return s.Repo.CartLines(ctx, userID)
}

// SetQuantity overwrites a line. Zero removes it.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]models.CartLine, error) {
	if quantity < 0 || quantity > MaxLineQuantity {
		return nil, invalid("quantity must be between 0 and 99")
	}
	if err := s.Repo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, cartMiss(err)
	}

	s.emit(ctx, "cart_item_updated", userID, map[string]any{"product_id": productID.String(), "quantity": quantity})
	return s.Repo.CartLines(ctx, userID)
}

func (s *CartService) Remove(ctx context.Context, userID, productID uuid.UUID) ([]models.CartLine, error) {
	if err := s.Repo.RemoveFromCart(ctx, userID, productID); err != nil {
		return nil, cartMiss(err)
	}

	s.emit(ctx, "cart_item_removed", userID, map[string]any{"product_id": productID.String()})
	return s.Repo.CartLines(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.Repo.ClearCart(ctx, userID); err != nil {
		return err
	}
	s.emit(ctx, "cart_cleared", userID, nil)
	return nil
}

func (s *CartService) emit(ctx context.Context, eventType string, userID uuid.UUID, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["user_id"] = userID.String()
	publish(ctx, s.Events, events.TopicCart, userID.String(), events.New(eventType, data))
}

func cartMiss(err error) error {
	if errors.Is(err, repo.ErrNotInCart) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
