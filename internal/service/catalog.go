package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Skotchmaster/storefront/internal/images"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const RecommendationCount = 3

type FeaturedCache interface {
	Get(ctx context.Context) ([]models.Product, bool, error)
	Set(ctx context.Context, items []models.Product) error
}

type ProductIndex interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type ImageStore interface {
	Upload(ctx context.Context, key string, img images.Image) (string, error)
	Delete(ctx context.Context, key string) error
}

// CatalogService owns products. Cache, Index and Images are optional; a nil
// one turns the matching feature off.
type CatalogService struct {
	Repo   *repo.GormRepo
	Cache  FeaturedCache
	Index  ProductIndex
	Images ImageStore
	Events events.Publisher

	featured singleflight.Group
}

type ProductInput struct {
	Name        string
	Description string
	Price       int64
	Category    string
	// Image is a data URL, bare base64, or an absolute http(s) URL kept as is.
	Image      string
	IsFeatured bool
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	switch {
	case in.Name == "":
		return invalid("name is required")
	case in.Price < 0:
		return invalid("price cannot be negative")
	case in.Category == "":
		return invalid("category is required")
	}
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, offset, limit)
}

func (s *CatalogService) ProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return s.Repo.ProductsByCategory(ctx, strings.ToLower(strings.TrimSpace(category)))
}

func (s *CatalogService) Recommendations(ctx context.Context) ([]models.Product, error) {
	return s.Repo.RandomProducts(ctx, RecommendationCount)
}

// FeaturedProducts serves from the cache. On a miss, concurrent callers share
// one database load, and its result is written back.
func (s *CatalogService) FeaturedProducts(ctx context.Context) ([]models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.featured")

	if s.Cache != nil {
		items, ok, err := s.Cache.Get(ctx)
		if err != nil {
			l.Warn("featured_cache_error", "error", err)
		}
		if ok {
			return items, nil
		}
	}

	v, err, _ := s.featured.Do("featured", func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		items, err := s.Repo.FeaturedProducts(ctx)
		if err != nil {
			return nil, err
		}
		if s.Cache != nil {
			if err := s.Cache.Set(ctx, items); err != nil {
				l.Warn("featured_cache_error", "error", err)
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Product), nil
}

func (s *CatalogService) Search(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	if s.Index == nil {
		return 0, nil, ErrSearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, invalid("query is required")
	}
	return s.Index.Search(ctx, query, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create")

	if err := in.normalize(); err != nil {
		return nil, err
	}
	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		IsFeatured:  in.IsFeatured,
	}
	if err := s.attachImage(ctx, p, in.Image); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		l.Error("create_product_error", "error", err)
		s.dropImage(ctx, p.ImageKey)
		return nil, err
	}

	s.afterWrite(ctx, p, "product_created", p.IsFeatured)
	return p, nil
}

// UpdateProduct replaces every field. An empty Image keeps the current one.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.update", "product_id", id)

	if err := in.normalize(); err != nil {
		return nil, err
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	wasFeatured := p.IsFeatured
	oldKey := p.ImageKey

	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	p.IsFeatured = in.IsFeatured
	if err := s.attachImage(ctx, p, in.Image); err != nil {
		return nil, err
	}

	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		l.Error("update_product_error", "error", err)
		if p.ImageKey != oldKey {
			s.dropImage(ctx, p.ImageKey)
		}
		return nil, err
	}
	if p.ImageKey != oldKey {
		s.dropImage(ctx, oldKey)
	}

	s.afterWrite(ctx, p, "product_updated", wasFeatured || p.IsFeatured)
	return p, nil
}

func (s *CatalogService) ToggleFeatured(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.ToggleFeatured(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	s.afterWrite(ctx, p, "product_updated", true)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete", "product_id", id)

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return notFound(err, "product")
	}

	s.dropImage(ctx, p.ImageKey)
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id.String()); err != nil {
			l.Warn("search_sync_failed", "error", err)
		}
	}
	if p.IsFeatured {
		s.RefreshFeaturedCache(ctx)
	}
	publish(ctx, s.Events, events.TopicProduct, id.String(), events.New("product_deleted", map[string]any{
		"product_id": id.String(),
	}))
	return nil
}

// RefreshFeaturedCache rewrites the cached featured list from the database.
func (s *CatalogService) RefreshFeaturedCache(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	l := logging.FromContext(ctx)
	items, err := s.Repo.FeaturedProducts(ctx)
	if err != nil {
		l.Warn("featured_cache_refresh_failed", "error", err)
		return
	}
	if err := s.Cache.Set(ctx, items); err != nil {
		l.Warn("featured_cache_refresh_failed", "error", err)
	}
}

func (s *CatalogService) afterWrite(ctx context.Context, p *models.Product, eventType string, touchesFeatured bool) {
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, *p); err != nil {
			logging.FromContext(ctx).Warn("search_sync_failed", "product_id", p.ID, "error", err)
		}
	}
	if touchesFeatured {
		s.RefreshFeaturedCache(ctx)
	}
	publish(ctx, s.Events, events.TopicProduct, p.ID.String(), events.New(eventType, map[string]any{
		"product_id":  p.ID.String(),
		"name":        p.Name,
		"price":       p.Price,
		"is_featured": p.IsFeatured,
	}))
}

func (s *CatalogService) attachImage(ctx context.Context, p *models.Product, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		p.Image = raw
		p.ImageKey = ""
		return nil
	}
	if s.Images == nil {
		return invalid("image uploads are not configured")
	}

	img, err := images.Decode(raw)
	if err != nil {
		return invalid(err.Error())
	}
	key := images.NewKey(img)
	url, err := s.Images.Upload(ctx, key, img)
	if err != nil {
		return err
	}
	p.Image = url
	p.ImageKey = key
	return nil
}

func (s *CatalogService) dropImage(ctx context.Context, key string) {
	if key == "" || s.Images == nil {
		return
	}
	if err := s.Images.Delete(ctx, key); err != nil {
		logging.FromContext(ctx).Warn("image_delete_failed", "key", key, "error", err)
	}
}
