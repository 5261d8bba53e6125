package handler

import (
	"context"
	"io"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	exportapp "github.com/storefront/backend/internal/application/export"
	identityapp "github.com/storefront/backend/internal/application/identity"
	importapp "github.com/storefront/backend/internal/application/import"
	orderapp "github.com/storefront/backend/internal/application/order"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockProductService implements ProductService
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Create(ctx context.Context, storeID, actorID uuid.UUID, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, storeID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductService) Get(ctx context.Context, storeID, productID uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, storeID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductService) List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[catalogapp.ProductResponse], error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).(shared.Paginated[catalogapp.ProductResponse]), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, storeID, productID, actorID uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, storeID, productID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, storeID, productID, actorID uuid.UUID) error {
	return m.Called(ctx, storeID, productID, actorID).Error(0)
}

func (m *MockProductService) Publish(ctx context.Context, storeID, productID, actorID uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, storeID, productID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductService) Archive(ctx context.Context, storeID, productID, actorID uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, storeID, productID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

func (m *MockProductService) AdjustStock(ctx context.Context, storeID, productID, actorID uuid.UUID, req catalogapp.AdjustStockRequest) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, storeID, productID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ProductResponse), args.Error(1)
}

// MockProductImporter implements ProductImporter
type MockProductImporter struct {
	mock.Mock
	body string
}

func (m *MockProductImporter) Import(ctx context.Context, storeID, actorID uuid.UUID, reader io.Reader, mode importapp.Mode) (*importapp.Result, error) {
	data, _ := io.ReadAll(reader)
	m.body = string(data)
	args := m.Called(ctx, storeID, actorID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.Result), args.Error(1)
}

// MockExportService implements ExportService. rows, when set, is written
// to the stream the way a synchronous export does.
type MockExportService struct {
	mock.Mock
	rows string
}

func (m *MockExportService) Export(ctx context.Context, storeID uuid.UUID, req exportapp.Request, stream exportapp.Stream) (*exportapp.Result, error) {
	args := m.Called(ctx, storeID, req)
	if m.rows != "" {
		stream.Start("products-20260101-000000.csv")
		_, _ = stream.Write([]byte(m.rows))
		stream.Flush()
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exportapp.Result), args.Error(1)
}

func (m *MockExportService) GetJob(ctx context.Context, storeID, jobID uuid.UUID) (*exportapp.JobResponse, error) {
	args := m.Called(ctx, storeID, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exportapp.JobResponse), args.Error(1)
}

func (m *MockExportService) ListJobs(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (shared.Paginated[exportapp.JobResponse], error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).(shared.Paginated[exportapp.JobResponse]), args.Error(1)
}

// MockMembershipService implements MembershipService
type MockMembershipService struct {
	mock.Mock
}

func (m *MockMembershipService) List(ctx context.Context, storeID uuid.UUID) ([]identityapp.MemberResponse, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]identityapp.MemberResponse), args.Error(1)
}

func (m *MockMembershipService) Add(ctx context.Context, storeID uuid.UUID, actor identityapp.Actor, input identityapp.AddMemberInput) (*identityapp.MemberResponse, error) {
	args := m.Called(ctx, storeID, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityapp.MemberResponse), args.Error(1)
}

func (m *MockMembershipService) ChangeRole(ctx context.Context, storeID, userID uuid.UUID, actor identityapp.Actor, input identityapp.ChangeRoleInput) error {
	return m.Called(ctx, storeID, userID, actor, input).Error(0)
}

func (m *MockMembershipService) Remove(ctx context.Context, storeID, userID uuid.UUID, actor identityapp.Actor) error {
	return m.Called(ctx, storeID, userID, actor).Error(0)
}

// MockStoreResolver implements StoreResolver
type MockStoreResolver struct {
	mock.Mock
}

func (m *MockStoreResolver) Resolve(ctx context.Context, slug string) (*store.Store, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

// MockCartService implements CartService
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) result(args mock.Arguments) (*cartapp.CartResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartapp.CartResponse), args.Error(1)
}

func (m *MockCartService) Create(ctx context.Context, storeID uuid.UUID, currency string) (*cartapp.CartResponse, error) {
	return m.result(m.Called(ctx, storeID, currency))
}

func (m *MockCartService) Get(ctx context.Context, storeID uuid.UUID, token string) (*cartapp.CartResponse, error) {
	return m.result(m.Called(ctx, storeID, token))
}

func (m *MockCartService) AddItem(ctx context.Context, storeID uuid.UUID, token string, req cartapp.AddItemRequest) (*cartapp.CartResponse, error) {
	return m.result(m.Called(ctx, storeID, token, req))
}

func (m *MockCartService) UpdateItem(ctx context.Context, storeID uuid.UUID, token string, productID uuid.UUID, req cartapp.UpdateItemRequest) (*cartapp.CartResponse, error) {
	return m.result(m.Called(ctx, storeID, token, productID, req))
}

func (m *MockCartService) RemoveItem(ctx context.Context, storeID uuid.UUID, token string, productID uuid.UUID) (*cartapp.CartResponse, error) {
	return m.result(m.Called(ctx, storeID, token, productID))
}

func (m *MockCartService) Clear(ctx context.Context, storeID uuid.UUID, token string) (*cartapp.CartResponse, error) {
	return m.result(m.Called(ctx, storeID, token))
}

// MockCheckoutService implements CheckoutService
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) PlaceOrder(ctx context.Context, st *store.Store, req orderapp.PlaceOrderRequest) (*orderapp.PlaceOrderResult, error) {
	args := m.Called(ctx, st, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.PlaceOrderResult), args.Error(1)
}

func (m *MockCheckoutService) GetConfirmation(ctx context.Context, storeID uuid.UUID, orderNumber, email string) (*orderapp.ConfirmationResponse, error) {
	args := m.Called(ctx, storeID, orderNumber, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.ConfirmationResponse), args.Error(1)
}

// MockStripeProcessor implements StripeWebhookProcessor
type MockStripeProcessor struct {
	mock.Mock
}

func (m *MockStripeProcessor) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*paymentapp.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.WebhookResult), args.Error(1)
}

// MockIPNProcessor implements SSLCommerzIPNProcessor
type MockIPNProcessor struct {
	mock.Mock
}

func (m *MockIPNProcessor) ProcessIPN(ctx context.Context, form url.Values) (*paymentapp.WebhookResult, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentapp.WebhookResult), args.Error(1)
}
