package export

import (
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/export"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// source reads one entity in (created_at, id) order
type source interface {
	header() []string
	count(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error)
	// batch writes up to limit rows after the cursor. next is nil when
	// nothing was written.
	batch(ctx context.Context, storeID uuid.UUID, filter shared.Filter, after *shared.Cursor, limit int, w *csv.Writer) (next *shared.Cursor, n int, err error)
}

// allowedFilters are the list filters each entity honours
var allowedFilters = map[export.Entity][]string{
	export.EntityOrders:   {"status", "payment_status", "from", "to"},
	export.EntityProducts: {"status", "brand_id", "category_id"},
}

// toFilter builds a repository filter from request filters; unknown keys
// are dropped
func toFilter(entity export.Entity, filters map[string]string) shared.Filter {
	f := shared.DefaultFilter()
	f.Search = strings.TrimSpace(filters["search"])
	for _, key := range allowedFilters[entity] {
		if v := strings.TrimSpace(filters[key]); v != "" {
			f.Filters[key] = v
		}
	}
	return f
}

// cleanFilters keeps the recognised keys, for storing on a job
func cleanFilters(entity export.Entity, filters map[string]string) map[string]string {
	out := make(map[string]string)
	if v := strings.TrimSpace(filters["search"]); v != "" {
		out["search"] = v
	}
	for _, key := range allowedFilters[entity] {
		if v := strings.TrimSpace(filters[key]); v != "" {
			out[key] = v
		}
	}
	return out
}

type orderSource struct {
	repo order.Repository
}

func (orderSource) header() []string {
	return []string{
		"order_number", "created_at", "status", "payment_status", "payment_provider",
		"customer_email", "customer_name", "customer_phone",
		"shipping_city", "shipping_country", "currency",
		"subtotal", "shipping_fee", "total", "item_count", "items",
	}
}

func (s orderSource) count(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	return s.repo.CountForStore(ctx, storeID, filter)
}

func (s orderSource) batch(ctx context.Context, storeID uuid.UUID, filter shared.Filter, after *shared.Cursor, limit int, w *csv.Writer) (*shared.Cursor, int, error) {
	orders, err := s.repo.FindBatchForExport(ctx, storeID, filter, after, limit)
	if err != nil || len(orders) == 0 {
		return nil, 0, err
	}
	for i := range orders {
		o := &orders[i]
		count := 0
		lines := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			count += item.Quantity
			lines = append(lines, item.SKU+" x"+strconv.Itoa(item.Quantity))
		}
		if err := w.Write(sanitize([]string{
			o.OrderNumber,
			o.CreatedAt.UTC().Format(time.RFC3339),
			string(o.Status),
			string(o.PaymentStatus),
			string(o.PaymentProvider),
			o.CustomerEmail,
			o.CustomerName,
			o.CustomerPhone,
			o.ShippingAddress.City,
			o.ShippingAddress.Country,
			o.Currency,
			o.Subtotal.StringFixed(2),
			o.ShippingFee.StringFixed(2),
			o.Total.StringFixed(2),
			strconv.Itoa(count),
			strings.Join(lines, "; "),
		})); err != nil {
			return nil, 0, err
		}
	}
	last := orders[len(orders)-1]
	return &shared.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, len(orders), nil
}

// productSource writes the import header so an export can be edited and
// imported back. Brand and category slugs are looked up once per export.
type productSource struct {
	repo       catalog.ProductRepository
	brands     catalog.BrandRepository
	categories catalog.CategoryRepository

	brandSlugs    map[uuid.UUID]string
	categorySlugs map[uuid.UUID]string
}

func newProductSource(repo catalog.ProductRepository, brands catalog.BrandRepository, categories catalog.CategoryRepository) *productSource {
	return &productSource{
		repo:          repo,
		brands:        brands,
		categories:    categories,
		brandSlugs:    make(map[uuid.UUID]string),
		categorySlugs: make(map[uuid.UUID]string),
	}
}

func (*productSource) header() []string {
	return importapp.Header
}

func (s *productSource) count(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	return s.repo.CountForStore(ctx, storeID, filter)
}

func (s *productSource) batch(ctx context.Context, storeID uuid.UUID, filter shared.Filter, after *shared.Cursor, limit int, w *csv.Writer) (*shared.Cursor, int, error) {
	products, err := s.repo.FindBatchForExport(ctx, storeID, filter, after, limit)
	if err != nil || len(products) == 0 {
		return nil, 0, err
	}
	for i := range products {
		p := &products[i]
		compareAt := ""
		if p.CompareAtPrice != nil {
			compareAt = p.CompareAtPrice.StringFixed(2)
		}
		brand, err := s.brandSlug(ctx, storeID, p.BrandID)
		if err != nil {
			return nil, 0, err
		}
		category, err := s.categorySlug(ctx, storeID, p.CategoryID)
		if err != nil {
			return nil, 0, err
		}
		if err := w.Write(sanitize([]string{
			p.SKU,
			p.Name,
			p.Slug,
			p.Description,
			p.Price.StringFixed(2),
			compareAt,
			strconv.Itoa(p.Stock),
			string(p.Status),
			brand,
			category,
		})); err != nil {
			return nil, 0, err
		}
	}
	last := products[len(products)-1]
	return &shared.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, len(products), nil
}

func (s *productSource) brandSlug(ctx context.Context, storeID uuid.UUID, id *uuid.UUID) (string, error) {
	if id == nil {
		return "", nil
	}
	if slug, ok := s.brandSlugs[*id]; ok {
		return slug, nil
	}
	b, err := s.brands.FindByIDForStore(ctx, storeID, *id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}
	slug := ""
	if b != nil {
		slug = b.Slug
	}
	s.brandSlugs[*id] = slug
	return slug, nil
}

func (s *productSource) categorySlug(ctx context.Context, storeID uuid.UUID, id *uuid.UUID) (string, error) {
	if id == nil {
		return "", nil
	}
	if slug, ok := s.categorySlugs[*id]; ok {
		return slug, nil
	}
	c, err := s.categories.FindByIDForStore(ctx, storeID, *id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}
	slug := ""
	if c != nil {
		slug = c.Slug
	}
	s.categorySlugs[*id] = slug
	return slug, nil
}

// sanitize neutralises cells a spreadsheet would evaluate as formulas
func sanitize(row []string) []string {
	for i, cell := range row {
		if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
			row[i] = "'" + cell
		}
	}
	return row
}
