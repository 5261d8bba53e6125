package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/export"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler the API serves
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Store        *handler.StoreHandler
	Member       *handler.MemberHandler
	Product      *handler.ProductHandler
	Brand        *handler.BrandHandler
	Category     *handler.CategoryHandler
	Attribute    *handler.AttributeHandler
	Order        *handler.OrderHandler
	Export       *handler.ExportHandler
	Subscription *handler.SubscriptionHandler
	AuditLog     *handler.AuditLogHandler
	Storefront   *handler.StorefrontHandler
	Webhook      *handler.WebhookHandler
}

// Options configures the engine middleware. A nil limiter disables that
// rate limit.
type Options struct {
	Logger *zap.Logger
	HTTP   config.HTTPConfig
	Tokens middleware.TokenValidator

	// Limiter guards dashboard and session routes per client IP
	Limiter middleware.Limiter
	// StoreLimiter guards storefront routes per store slug and client IP
	StoreLimiter middleware.Limiter
	// AuthLimiter guards register, login and refresh
	AuthLimiter middleware.Limiter
	AuthWindow  time.Duration

	Tracing     bool
	ServiceName string
	Metrics     *telemetry.MeterProvider
	Profiling   bool
}

// New builds the gin engine with the full middleware stack and every route
func New(opts Options, h Handlers) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if opts.Tracing {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: opts.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(middleware.HTTPMetrics(opts.Metrics))
	if opts.Profiling {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSFromConfig(opts.HTTP)))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", c.GetString(middleware.RequestIDKey)))
	})

	engine.GET("/health", h.Health.Health)
	engine.GET("/ready", h.Health.Ready)

	// Gateways retry on failure, so webhooks skip the rate limit.
	// The handler enforces its own 64KiB body limit.
	webhooks := engine.Group("/webhooks")
	webhooks.POST("/stripe", h.Webhook.Stripe)
	webhooks.POST("/sslcommerz", h.Webhook.SSLCommerz)

	Mount(engine, "v1", log,
		authRoutes(opts, h),
		storefrontRoutes(opts, h),
		dashboardRoutes(opts, h),
		importRoutes(opts, h),
	)

	return engine
}

// guard returns the body limit and rate limit of a route group, in that order
func guard(maxBytes int64, limiter middleware.Limiter, key middleware.KeyFunc) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{middleware.BodyLimit(maxBytes)}
	if limiter != nil {
		chain = append(chain, middleware.RateLimitByKey(limiter, key))
	}
	return chain
}

func authenticated(opts Options) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator: opts.Tokens,
			Logger:    opts.Logger,
		}),
		middleware.TracingAttributeInjector(),
	}
}

func authRoutes(opts Options, h Handlers) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")

	credentials := g.Group("credentials", "").Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	if opts.AuthLimiter != nil {
		credentials.Use(middleware.AuthRateLimit(opts.AuthLimiter, opts.AuthWindow))
	}
	credentials.POST("/register", h.Auth.Register)
	credentials.POST("/login", h.Auth.Login)
	credentials.POST("/refresh", h.Auth.Refresh)

	session := g.Group("session", "").
		Use(guard(opts.HTTP.MaxBodySize, opts.Limiter, middleware.ClientIPKey)...).
		Use(authenticated(opts)...)
	session.GET("/me", h.Auth.Me)
	session.POST("/switch-store", h.Auth.SwitchStore)
	session.PUT("/password", h.Auth.ChangePassword)

	return g
}

func storefrontRoutes(opts Options, h Handlers) *DomainGroup {
	sf := h.Storefront
	g := NewDomainGroup("storefront", "/shop/:"+handler.StoreSlugParam).
		Use(guard(opts.HTTP.MaxBodySize, opts.StoreLimiter, middleware.StoreSlugKey)...).
		Use(sf.ResolveStore())

	g.GET("", sf.Shop)
	g.GET("/products", sf.Products)
	g.GET("/products/:slug", sf.Product)
	g.GET("/categories", sf.Categories)
	g.GET("/brands", sf.Brands)

	g.POST("/carts", sf.CreateCart)
	g.GET("/carts/:token", sf.GetCart)
	g.POST("/carts/:token/items", sf.AddItem)
	g.DELETE("/carts/:token/items", sf.ClearCart)
	g.PUT("/carts/:token/items/:productId", sf.UpdateItem)
	g.DELETE("/carts/:token/items/:productId", sf.RemoveItem)

	g.POST("/checkout", sf.Checkout)
	g.GET("/orders/:orderNumber", sf.OrderConfirmation)

	return g
}

func dashboardRoutes(opts Options, h Handlers) *DomainGroup {
	can := middleware.RequirePermission

	g := NewDomainGroup("stores", "/stores").
		Use(guard(opts.HTTP.MaxBodySize, opts.Limiter, middleware.ClientIPKey)...).
		Use(authenticated(opts)...)
	g.GET("", h.Store.List)
	g.POST("", h.Store.Create)

	s := g.Group("store", "/:"+middleware.StoreIDParam).Use(middleware.RequireStoreAccess())
	s.GET("", h.Store.Get)
	s.PUT("", can(identity.PermStoreUpdate), h.Store.Update)
	s.DELETE("", can(identity.PermStoreDelete), h.Store.Delete)

	members := s.Group("members", "/members").Use(can(identity.PermMemberManage))
	members.GET("", h.Member.List)
	members.POST("", h.Member.Add)
	members.PUT("/:userId", h.Member.ChangeRole)
	members.DELETE("/:userId", h.Member.Remove)

	products := s.Group("products", "/products")
	products.GET("", can(identity.PermProductRead), h.Product.List)
	products.POST("", can(identity.PermProductWrite), h.Product.Create)
	products.GET("/export", can(identity.PermExportCreate), h.Export.Export(export.EntityProducts))
	products.GET("/:id", can(identity.PermProductRead), h.Product.Get)
	products.PUT("/:id", can(identity.PermProductWrite), h.Product.Update)
	products.DELETE("/:id", can(identity.PermProductWrite), h.Product.Delete)
	products.POST("/:id/publish", can(identity.PermProductWrite), h.Product.Publish)
	products.POST("/:id/archive", can(identity.PermProductWrite), h.Product.Archive)
	products.POST("/:id/stock", can(identity.PermProductWrite), h.Product.AdjustStock)

	brands := s.Group("brands", "/brands")
	brands.GET("", can(identity.PermProductRead), h.Brand.List)
	brands.POST("", can(identity.PermCatalogWrite), h.Brand.Create)
	brands.GET("/:id", can(identity.PermProductRead), h.Brand.Get)
	brands.PUT("/:id", can(identity.PermCatalogWrite), h.Brand.Update)
	brands.DELETE("/:id", can(identity.PermCatalogWrite), h.Brand.Delete)

	categories := s.Group("categories", "/categories")
	categories.GET("", can(identity.PermProductRead), h.Category.List)
	categories.POST("", can(identity.PermCatalogWrite), h.Category.Create)
	categories.GET("/:id", can(identity.PermProductRead), h.Category.Get)
	categories.PUT("/:id", can(identity.PermCatalogWrite), h.Category.Update)
	categories.DELETE("/:id", can(identity.PermCatalogWrite), h.Category.Delete)

	attributes := s.Group("attributes", "/attributes")
	attributes.GET("", can(identity.PermProductRead), h.Attribute.List)
	attributes.POST("", can(identity.PermCatalogWrite), h.Attribute.Create)
	attributes.GET("/:id", can(identity.PermProductRead), h.Attribute.Get)
	attributes.PUT("/:id", can(identity.PermCatalogWrite), h.Attribute.Update)
	attributes.DELETE("/:id", can(identity.PermCatalogWrite), h.Attribute.Delete)

	orders := s.Group("orders", "/orders")
	orders.GET("", can(identity.PermOrderRead), h.Order.List)
	orders.GET("/export", can(identity.PermExportCreate), h.Export.Export(export.EntityOrders))
	orders.GET("/:id", can(identity.PermOrderRead), h.Order.Get)
	orders.PUT("/:id/status", can(identity.PermOrderUpdate), h.Order.UpdateStatus)
	orders.POST("/:id/cancel", can(identity.PermOrderUpdate), h.Order.Cancel)
	orders.POST("/:id/refund", can(identity.PermOrderUpdate), h.Order.Refund)

	exports := s.Group("exports", "/exports").Use(can(identity.PermExportCreate))
	exports.GET("", h.Export.ListJobs)
	exports.GET("/:jobId", h.Export.GetJob)

	subscription := s.Group("subscription", "/subscription").Use(can(identity.PermSubscriptionManage))
	subscription.GET("", h.Subscription.Get)
	subscription.POST("/checkout", h.Subscription.Checkout)
	subscription.POST("/cancel", h.Subscription.Cancel)

	s.GET("/audit-logs", can(identity.PermAuditRead), h.AuditLog.List)

	return g
}

// importRoutes carries the upload route on its own group so it gets the
// larger body limit.
func importRoutes(opts Options, h Handlers) *DomainGroup {
	g := NewDomainGroup("import", "/stores/:"+middleware.StoreIDParam+"/products/import").
		Use(guard(opts.HTTP.MaxUploadSize, opts.Limiter, middleware.ClientIPKey)...).
		Use(authenticated(opts)...).
		Use(middleware.RequireStoreAccess(), middleware.RequirePermission(identity.PermImportCreate))
	g.POST("", h.Product.Import)
	return g
}
