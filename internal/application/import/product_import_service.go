// Package importapp bulk imports products from CSV.
package importapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	csvimport "github.com/storefront/backend/internal/infrastructure/import"
	"go.uber.org/zap"
)

// Mode defines what happens to the valid rows when some rows fail
type Mode string

const (
	// ModeStrict imports nothing if any row fails
	ModeStrict Mode = "strict"
	// ModeSkip imports the valid rows and reports the rest
	ModeSkip Mode = "skip"
)

// IsValid checks if the mode is valid
func (m Mode) IsValid() bool {
	return m == ModeStrict || m == ModeSkip
}

// Header is the product CSV header, shared with product exports
var Header = []string{
	"sku", "name", "slug", "description", "price", "compare_at_price",
	"stock", "status", "brand_slug", "category_slug",
}

var (
	// ErrImportRejected is returned with the result when a strict import had row errors
	ErrImportRejected = shared.NewDomainError("IMPORT_REJECTED", "Import rejected because some rows are invalid")
	// ErrInvalidMode is returned for an unknown mode
	ErrInvalidMode = shared.NewDomainError("INVALID_IMPORT_MODE", "Import mode must be 'strict' or 'skip'")
)

// Result is the outcome of a product import
type Result struct {
	Total           int                  `json:"total"`
	Created         int                  `json:"created"`
	Updated         int                  `json:"updated"`
	Skipped         int                  `json:"skipped"`
	Errors          []csvimport.RowError `json:"errors"`
	ErrorsTruncated bool                 `json:"errors_truncated,omitempty"`
}

// ProductImportService imports products, upserting by SKU
type ProductImportService struct {
	products   catalog.ProductRepository
	brands     catalog.BrandRepository
	categories catalog.CategoryRepository
	tx         shared.TxManager
	recorder   auditapp.Recorder
	processor  *csvimport.Processor
	logger     *zap.Logger
}

// NewProductImportService creates a new ProductImportService
func NewProductImportService(
	products catalog.ProductRepository,
	brands catalog.BrandRepository,
	categories catalog.CategoryRepository,
	tx shared.TxManager,
	recorder auditapp.Recorder,
	logger *zap.Logger,
	opts ...csvimport.ProcessorOption,
) *ProductImportService {
	if recorder == nil {
		recorder = auditapp.Nop()
	}
	return &ProductImportService{
		products:   products,
		brands:     brands,
		categories: categories,
		tx:         tx,
		recorder:   recorder,
		processor:  csvimport.NewProcessor(opts...),
		logger:     logger,
	}
}

// Rules returns the validation rules of the product CSV
func Rules() []csvimport.FieldRule {
	zero := decimal.Zero
	return []csvimport.FieldRule{
		csvimport.Field("sku").Required().MaxLength(64).Unique().Build(),
		csvimport.Field("name").Required().MaxLength(200).Build(),
		csvimport.Field("slug").MaxLength(shared.MaxSlugLength).Build(),
		csvimport.Field("description").MaxLength(5000).Build(),
		csvimport.Field("price").Required().Decimal().Min(zero).Build(),
		csvimport.Field("compare_at_price").Decimal().Min(zero).Build(),
		csvimport.Field("stock").Int().Min(zero).Build(),
		csvimport.Field("status").OneOf(
			string(catalog.ProductStatusDraft),
			string(catalog.ProductStatusActive),
			string(catalog.ProductStatusArchived),
		).Build(),
		csvimport.Field("brand_slug").MaxLength(shared.MaxSlugLength).Build(),
		csvimport.Field("category_slug").MaxLength(shared.MaxSlugLength).Build(),
	}
}

// planned is a validated row ready to be saved
type planned struct {
	product *catalog.Product
	created bool
}

// importRun holds the per-import lookups and outcome
type importRun struct {
	storeID    uuid.UUID
	errors     *csvimport.ErrorCollection
	failed     map[int]bool
	brands     map[string]*uuid.UUID
	categories map[string]*uuid.UUID
	slugs      map[string]int
}

func (r *importRun) fail(line int, column, code, message, value string) {
	r.errors.Add(csvimport.NewRowErrorWithValue(line, column, code, message, value))
	r.failed[line] = true
}

// Import reads a product CSV and upserts every row by SKU. In strict mode
// any row error rejects the whole file with ErrImportRejected and the
// result describing the errors.
func (s *ProductImportService) Import(ctx context.Context, storeID, actorID uuid.UUID, reader io.Reader, mode Mode) (*Result, error) {
	if mode == "" {
		mode = ModeStrict
	}
	if !mode.IsValid() {
		return nil, ErrInvalidMode
	}

	parsed, err := s.processor.Parse(ctx, reader, Rules())
	if err != nil {
		return nil, fileError(err, s.processor.MaxRows())
	}

	run := &importRun{
		storeID:    storeID,
		errors:     parsed.Errors,
		failed:     parsed.ErrorRows,
		brands:     make(map[string]*uuid.UUID),
		categories: make(map[string]*uuid.UUID),
		slugs:      make(map[string]int),
	}

	plans := make([]planned, 0, len(parsed.ValidRows))
	for _, row := range parsed.ValidRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		plan, err := s.planRow(ctx, run, row)
		if err != nil {
			return nil, err
		}
		if plan != nil {
			plans = append(plans, *plan)
		}
	}

	result := &Result{
		Total:           parsed.TotalRows,
		Errors:          run.errors.Errors(),
		ErrorsTruncated: run.errors.IsTruncated(),
	}
	if result.Errors == nil {
		result.Errors = []csvimport.RowError{}
	}

	if mode == ModeStrict && run.errors.HasErrors() {
		result.Skipped = result.Total
		s.logger.Info("Product import rejected",
			zap.String("store_id", storeID.String()),
			zap.Int("rows", result.Total),
			zap.Int("errors", run.errors.TotalCount()))
		return result, ErrImportRejected
	}

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		for _, plan := range plans {
			if err := s.products.Save(txCtx, plan.product); err != nil {
				return fmt.Errorf("failed to save product %s: %w", plan.product.SKU, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, plan := range plans {
		if plan.created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	result.Skipped = result.Total - result.Created - result.Updated

	s.logger.Info("Product import completed",
		zap.String("store_id", storeID.String()),
		zap.String("mode", string(mode)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped))
	s.recorder.Record(ctx, auditapp.Entry{
		StoreID:    storeID,
		ActorID:    &actorID,
		Action:     audit.ActionImportCompleted,
		EntityType: "product",
		EntityID:   "import",
		Metadata: map[string]string{
			"mode":    string(mode),
			"total":   strconv.Itoa(result.Total),
			"created": strconv.Itoa(result.Created),
			"updated": strconv.Itoa(result.Updated),
			"skipped": strconv.Itoa(result.Skipped),
		},
	})
	return result, nil
}

// planRow builds the product for a row that passed field validation. It
// returns nil when the row failed; only repository failures are errors.
func (s *ProductImportService) planRow(ctx context.Context, run *importRun, row *csvimport.Row) (*planned, error) {
	line := row.LineNumber
	sku := strings.ToUpper(row.Get("sku"))
	name := unescapeCell(row.Get("name"))
	description := unescapeCell(row.Get("description"))
	price, _ := decimal.NewFromString(row.Get("price"))

	var compareAt *decimal.Decimal
	if v := row.Get("compare_at_price"); v != "" {
		d, _ := decimal.NewFromString(v)
		compareAt = &d
	}

	brandID, err := s.resolveBrand(ctx, run, line, row.Get("brand_slug"))
	if err != nil {
		return nil, err
	}
	categoryID, err := s.resolveCategory(ctx, run, line, row.Get("category_slug"))
	if err != nil {
		return nil, err
	}
	if run.failed[line] {
		return nil, nil
	}

	existing, err := s.products.FindBySKU(ctx, run.storeID, sku)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var product *catalog.Product
	created := existing == nil
	if created {
		product, err = catalog.NewProduct(run.storeID, sku, name, row.Get("slug"), price)
		if err != nil {
			run.fail(line, columnFor(err), csvimport.ErrCodeImportInvalidValue, errorMessage(err), "")
			return nil, nil
		}
		product.Version = 1
	} else {
		product = existing
		productSlug := row.Get("slug")
		if productSlug == "" {
			productSlug = product.Slug
		}
		if err := product.Update(name, productSlug, product.Description, product.ImageURL); err != nil {
			run.fail(line, columnFor(err), csvimport.ErrCodeImportInvalidValue, errorMessage(err), "")
			return nil, nil
		}
	}

	if err := s.applyRow(product, row, description, price, compareAt, created); err != nil {
		run.fail(line, columnFor(err), csvimport.ErrCodeImportInvalidValue, errorMessage(err), "")
		return nil, nil
	}
	product.SetBrand(brandID)
	product.SetCategory(categoryID)

	if first, dup := run.slugs[product.Slug]; dup {
		run.fail(line, "slug", csvimport.ErrCodeImportDuplicateInFile,
			fmt.Sprintf("slug '%s' is also used in row %d", product.Slug, first), product.Slug)
		return nil, nil
	}
	var exclude *uuid.UUID
	if !created {
		exclude = &product.ID
	}
	taken, err := s.products.ExistsBySlug(ctx, run.storeID, product.Slug, exclude)
	if err != nil {
		return nil, err
	}
	if taken {
		run.fail(line, "slug", csvimport.ErrCodeImportInvalidValue,
			fmt.Sprintf("slug '%s' is used by another product", product.Slug), product.Slug)
		return nil, nil
	}
	run.slugs[product.Slug] = line

	return &planned{product: product, created: created}, nil
}

// applyRow sets the remaining columns. Empty stock and status keep the
// current values of an existing product.
func (s *ProductImportService) applyRow(product *catalog.Product, row *csvimport.Row, description string, price decimal.Decimal, compareAt *decimal.Decimal, created bool) error {
	if created || description != "" {
		if err := product.Update(product.Name, product.Slug, description, product.ImageURL); err != nil {
			return err
		}
	}
	if err := product.SetPricing(price, compareAt); err != nil {
		return err
	}
	if v := row.Get("stock"); v != "" {
		stock, _ := strconv.Atoi(v)
		if err := product.SetStock(stock); err != nil {
			return err
		}
	}
	if v := row.Get("status"); v != "" {
		if err := product.SetStatus(catalog.ProductStatus(strings.ToUpper(v))); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductImportService) resolveBrand(ctx context.Context, run *importRun, line int, slug string) (*uuid.UUID, error) {
	if slug == "" {
		return nil, nil
	}
	slug = strings.ToLower(slug)
	id, seen := run.brands[slug]
	if !seen {
		brand, err := s.brands.FindBySlug(ctx, run.storeID, slug)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if brand != nil {
			id = &brand.ID
		}
		run.brands[slug] = id
	}
	if id == nil {
		run.errors.AddReferenceError(line, "brand_slug", slug, "brand")
		run.failed[line] = true
	}
	return id, nil
}

func (s *ProductImportService) resolveCategory(ctx context.Context, run *importRun, line int, slug string) (*uuid.UUID, error) {
	if slug == "" {
		return nil, nil
	}
	slug = strings.ToLower(slug)
	id, seen := run.categories[slug]
	if !seen {
		category, err := s.categories.FindBySlug(ctx, run.storeID, slug)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if category != nil {
			id = &category.ID
		}
		run.categories[slug] = id
	}
	if id == nil {
		run.errors.AddReferenceError(line, "category_slug", slug, "category")
		run.failed[line] = true
	}
	return id, nil
}

// fileError maps whole-file failures to domain errors
func fileError(err error, maxRows int) error {
	switch {
	case errors.Is(err, csvimport.ErrTooManyRows):
		return shared.NewDomainError("IMPORT_TOO_MANY_ROWS", fmt.Sprintf("Import is limited to %d rows", maxRows))
	case errors.Is(err, csvimport.ErrEmptyFile),
		errors.Is(err, csvimport.ErrNoDataRows):
		return shared.NewDomainError("IMPORT_EMPTY_FILE", "The file has no product rows")
	case errors.Is(err, csvimport.ErrInvalidEncoding):
		return shared.NewDomainError("IMPORT_INVALID_ENCODING", "The file must be UTF-8 or UTF-16 with a byte order mark")
	case errors.Is(err, csvimport.ErrMissingHeader):
		return shared.NewDomainError("IMPORT_MISSING_HEADER", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return shared.NewDomainError("IMPORT_INVALID_FILE", err.Error())
}

// columnFor maps a product validation error to its CSV column
func columnFor(err error) string {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return ""
	}
	switch domainErr.Code {
	case "INVALID_SKU":
		return "sku"
	case "INVALID_NAME":
		return "name"
	case "INVALID_SLUG":
		return "slug"
	case "INVALID_PRICE":
		return "price"
	case "INVALID_COMPARE_AT_PRICE":
		return "compare_at_price"
	case "INVALID_STOCK":
		return "stock"
	case "INVALID_STATUS":
		return "status"
	}
	return ""
}

func errorMessage(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// unescapeCell drops the quote that exports put in front of cells a
// spreadsheet would evaluate
func unescapeCell(v string) string {
	if len(v) > 1 && v[0] == '\'' && strings.ContainsRune("=+-@\t\r", rune(v[1])) {
		return v[1:]
	}
	return v
}
