package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ExpiredCartPurger removes carts past their expiry
type ExpiredCartPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CartService manages guest carts on the storefront
type CartService struct {
	cartRepo    cart.Repository
	productRepo catalog.ProductRepository
	logger      *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(cartRepo cart.Repository, productRepo catalog.ProductRepository, logger *zap.Logger) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, logger: logger}
}

// Create opens an empty cart priced in the store currency
func (s *CartService) Create(ctx context.Context, storeID uuid.UUID, currency string) (*CartResponse, error) {
	c, err := cart.NewCart(storeID, currency)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, c)
}

// Get returns a cart with its subtotal
func (s *CartService) Get(ctx context.Context, storeID uuid.UUID, token string) (*CartResponse, error) {
	c, err := s.load(ctx, storeID, token)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, c)
}

// AddItem adds a published product, merging with an existing line. The
// line price is refreshed from the product.
func (s *CartService) AddItem(ctx context.Context, storeID uuid.UUID, token string, req AddItemRequest) (*CartResponse, error) {
	c, err := s.load(ctx, storeID, token)
	if err != nil {
		return nil, err
	}
	product, err := s.purchasable(ctx, storeID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if err := c.AddItem(product.ID, req.Quantity, product.Price, product.Stock); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, c)
}

// UpdateItem sets a line's quantity. Zero removes the line.
func (s *CartService) UpdateItem(ctx context.Context, storeID uuid.UUID, token string, productID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	c, err := s.load(ctx, storeID, token)
	if err != nil {
		return nil, err
	}

	if req.Quantity == 0 {
		if err := c.RemoveItem(productID); err != nil {
			return nil, err
		}
	} else {
		product, err := s.purchasable(ctx, storeID, productID)
		if err != nil {
			return nil, err
		}
		if err := c.UpdateItem(product.ID, req.Quantity, product.Price, product.Stock); err != nil {
			return nil, err
		}
	}

	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, c)
}

// RemoveItem drops a line
func (s *CartService) RemoveItem(ctx context.Context, storeID uuid.UUID, token string, productID uuid.UUID) (*CartResponse, error) {
	c, err := s.load(ctx, storeID, token)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(productID); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, c)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, storeID uuid.UUID, token string) (*CartResponse, error) {
	c, err := s.load(ctx, storeID, token)
	if err != nil {
		return nil, err
	}
	c.Clear()
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, c)
}

// PurgeExpired deletes expired carts. It runs from the scheduler.
func PurgeExpired(ctx context.Context, purger ExpiredCartPurger, logger *zap.Logger) error {
	n, err := purger.DeleteExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("Expired carts purged", zap.Int64("count", n))
	}
	return nil
}

func (s *CartService) load(ctx context.Context, storeID uuid.UUID, token string) (*cart.Cart, error) {
	c, err := s.cartRepo.FindByToken(ctx, storeID, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Cart not found")
		}
		return nil, err
	}
	// the repository filters expired carts; a clock skew must not revive one
	if c.IsExpired(time.Now()) {
		return nil, shared.NewDomainError("NOT_FOUND", "Cart not found")
	}
	return c, nil
}

func (s *CartService) purchasable(ctx context.Context, storeID, productID uuid.UUID) (*catalog.Product, error) {
	product, err := s.productRepo.FindByIDForStore(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsPurchasable() {
		return nil, shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available for purchase")
	}
	return product, nil
}

func (s *CartService) toResponse(ctx context.Context, c *cart.Cart) (*CartResponse, error) {
	resp := &CartResponse{
		Token:     c.Token,
		Currency:  c.Currency,
		Items:     make([]ItemResponse, 0, len(c.Items)),
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
		ExpiresAt: c.ExpiresAt,
	}
	if c.IsEmpty() {
		return resp, nil
	}

	ids := make([]uuid.UUID, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.FindByIDsForStore(ctx, c.StoreID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for _, item := range c.Items {
		line := ItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		}
		if p, ok := byID[item.ProductID]; ok {
			line.Name = p.Name
			line.SKU = p.SKU
			line.Slug = p.Slug
			line.ImageURL = p.ImageURL
			line.Available = p.IsPurchasable() && p.Stock >= item.Quantity
		}
		resp.Items = append(resp.Items, line)
	}
	return resp, nil
}
