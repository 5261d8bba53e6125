package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	csvimport "github.com/storefront/backend/internal/infrastructure/import"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type productFixture struct {
	router   *gin.Engine
	products *MockProductService
	importer *MockProductImporter
	storeID  uuid.UUID
	userID   uuid.UUID
	base     string
}

func newProductFixture() *productFixture {
	f := &productFixture{
		products: new(MockProductService),
		importer: new(MockProductImporter),
		storeID:  uuid.New(),
		userID:   uuid.New(),
	}
	h := NewProductHandler(f.products, f.importer)

	f.router = gin.New()
	g := f.router.Group("/stores/:storeId", testutil.AsMember(f.storeID, f.userID, identity.RoleAdmin.Permissions()...))
	g.GET("/products", h.List)
	g.POST("/products", h.Create)
	g.POST("/products/import", h.Import)
	g.GET("/products/:id", h.Get)
	g.PUT("/products/:id", h.Update)
	g.DELETE("/products/:id", h.Delete)
	g.POST("/products/:id/publish", h.Publish)
	g.POST("/products/:id/stock", h.AdjustStock)
	f.base = "/stores/" + f.storeID.String() + "/products"
	return f
}

func TestProductHandler_List(t *testing.T) {
	f := newProductFixture()
	brandID := uuid.New()
	items := []catalogapp.ProductResponse{{ID: uuid.New(), SKU: "TS-1", Name: "Tee"}}

	f.products.On("List", mock.Anything, f.storeID, mock.MatchedBy(func(filter shared.Filter) bool {
		return filter.Page == 2 && filter.PageSize == 10 &&
			filter.Filters["status"] == "ACTIVE" && filter.Filters["brand_id"] == brandID.String()
	})).Return(shared.NewPaginated(items, 11, 2, 10), nil)

	w := testutil.Serve(t, f.router, http.MethodGet, f.base+"?page=2&page_size=10&status=ACTIVE&brand_id="+brandID.String(), nil, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w.Body.Bytes())
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(11), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	f.products.AssertExpectations(t)
}

func TestProductHandler_Create(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := newProductFixture()
		created := &catalogapp.ProductResponse{ID: uuid.New(), SKU: "TS-1", Name: "Tee", Price: decimal.RequireFromString("19.99")}
		f.products.On("Create", mock.Anything, f.storeID, f.userID, mock.MatchedBy(func(req catalogapp.CreateProductRequest) bool {
			return req.SKU == "TS-1" && req.Price.Equal(decimal.RequireFromString("19.99"))
		})).Return(created, nil)

		w := testutil.Serve(t, f.router, http.MethodPost, f.base, map[string]any{"sku": "TS-1", "name": "Tee", "price": "19.99", "stock": 5}, "")

		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		f.products.AssertExpectations(t)
	})

	t.Run("missing name", func(t *testing.T) {
		f := newProductFixture()

		w := testutil.Serve(t, f.router, http.MethodPost, f.base, map[string]any{"sku": "TS-1", "price": "19.99"}, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, testutil.ErrorCode(t, w.Body.Bytes()))
		f.products.AssertNotCalled(t, "Create")
	})

	t.Run("duplicate sku", func(t *testing.T) {
		f := newProductFixture()
		f.products.On("Create", mock.Anything, f.storeID, f.userID, mock.Anything).
			Return(nil, shared.NewDomainError("ALREADY_EXISTS", "SKU already in use"))

		w := testutil.Serve(t, f.router, http.MethodPost, f.base, map[string]any{"sku": "TS-1", "name": "Tee", "price": "1"}, "")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, testutil.ErrorCode(t, w.Body.Bytes()))
	})
}

func TestProductHandler_GetOtherStoreIsNotFound(t *testing.T) {
	f := newProductFixture()
	id := uuid.New()
	f.products.On("Get", mock.Anything, f.storeID, id).Return(nil, shared.ErrNotFound)

	w := testutil.Serve(t, f.router, http.MethodGet, f.base+"/"+id.String(), nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_AdjustStock(t *testing.T) {
	f := newProductFixture()
	id := uuid.New()
	f.products.On("AdjustStock", mock.Anything, f.storeID, id, f.userID, catalogapp.AdjustStockRequest{Delta: -10}).
		Return(nil, shared.ErrInsufficientStock)

	w := testutil.Serve(t, f.router, http.MethodPost, f.base+"/"+id.String()+"/stock", map[string]int{"delta": -10}, "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeInsufficientStock, testutil.ErrorCode(t, w.Body.Bytes()))
}

func TestProductHandler_DeleteAndPublish(t *testing.T) {
	f := newProductFixture()
	id := uuid.New()
	f.products.On("Delete", mock.Anything, f.storeID, id, f.userID).Return(nil)
	f.products.On("Publish", mock.Anything, f.storeID, id, f.userID).Return(&catalogapp.ProductResponse{ID: id, Status: "ACTIVE"}, nil)

	w := testutil.Serve(t, f.router, http.MethodPost, f.base+"/"+id.String()+"/publish", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ACTIVE"`)

	w = testutil.Serve(t, f.router, http.MethodDelete, f.base+"/"+id.String(), nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func multipartCSV(t *testing.T, field, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, "products.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func postImport(f *productFixture, query string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, f.base+"/import"+query, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestProductHandler_Import(t *testing.T) {
	csv := "sku,name,price\nTS-1,Tee,19.99\n"

	t.Run("skip mode", func(t *testing.T) {
		f := newProductFixture()
		f.importer.On("Import", mock.Anything, f.storeID, f.userID, importapp.ModeSkip).
			Return(&importapp.Result{Total: 1, Created: 1, Errors: []csvimport.RowError{}}, nil)
		body, ct := multipartCSV(t, "file", csv)

		w := postImport(f, "?mode=skip", body, ct)

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"created":1`)
		assert.Equal(t, csv, f.importer.body)
	})

	t.Run("strict rejection carries the row errors", func(t *testing.T) {
		f := newProductFixture()
		result := &importapp.Result{Total: 1, Skipped: 1, Errors: []csvimport.RowError{{Row: 2, Column: "price", Message: "invalid decimal"}}}
		f.importer.On("Import", mock.Anything, f.storeID, f.userID, importapp.ModeStrict).
			Return(result, importapp.ErrImportRejected)
		body, ct := multipartCSV(t, "file", csv)

		w := postImport(f, "", body, ct)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeImportRejected, testutil.ErrorCode(t, w.Body.Bytes()))
		assert.Contains(t, w.Body.String(), `"column":"price"`)
	})

	t.Run("missing file", func(t *testing.T) {
		f := newProductFixture()
		body, ct := multipartCSV(t, "upload", csv)

		w := postImport(f, "", body, ct)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.importer.AssertNotCalled(t, "Import")
	})

	t.Run("file over 10MB", func(t *testing.T) {
		f := newProductFixture()
		body, ct := multipartCSV(t, "file", "sku,name,price\n"+strings.Repeat("x", MaxImportFileSize))

		w := postImport(f, "", body, ct)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, testutil.ErrorCode(t, w.Body.Bytes()))
	})
}
