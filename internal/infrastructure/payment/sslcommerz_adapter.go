package payment

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	orderapp "github.com/storefront/backend/internal/application/order"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/order"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var (
	_ orderapp.PaymentGateway       = (*SSLCommerzAdapter)(nil)
	_ paymentapp.SSLCommerzVerifier = (*SSLCommerzAdapter)(nil)
)

// ErrGatewayRequestFailed is returned when SSLCommerz rejects a call
var ErrGatewayRequestFailed = errors.New("sslcommerz: gateway request failed")

const maxGatewayResponse = 1 << 20

// SSLCommerzAdapter opens hosted payment sessions and authenticates IPNs
type SSLCommerzAdapter struct {
	config     *SSLCommerzConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSSLCommerzAdapter creates a new SSLCommerz adapter
func NewSSLCommerzAdapter(config *SSLCommerzConfig, logger *zap.Logger) (*SSLCommerzAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SSLCommerzAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("sslcommerz"),
	}, nil
}

// Provider identifies the gateway on payments
func (a *SSLCommerzAdapter) Provider() order.Provider {
	return order.ProviderSSLCommerz
}

// CreateSession registers the transaction with SSLCommerz. The payment id is
// the tran_id, so it is also the provider reference.
func (a *SSLCommerzAdapter) CreateSession(ctx context.Context, o *order.Order, p *order.Payment) (string, string, error) {
	tranID := p.ID.String()
	form := a.sessionForm(o, p, tranID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.host()+sslcommerzSessionPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("sslcommerz: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := a.do(req)
	if err != nil {
		return "", "", err
	}

	var resp sslcommerzSessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("sslcommerz: failed to parse session response: %w", err)
	}
	if !strings.EqualFold(resp.Status, "SUCCESS") || resp.GatewayPageURL == "" {
		a.logger.Error("SSLCommerz rejected session",
			zap.String("order_id", o.ID.String()),
			zap.String("reason", resp.FailedReason))
		return "", "", fmt.Errorf("%w: %s", ErrGatewayRequestFailed, resp.FailedReason)
	}

	a.logger.Info("Created SSLCommerz session",
		zap.String("order_id", o.ID.String()),
		zap.String("tran_id", tranID))

	return resp.GatewayPageURL, tranID, nil
}

func (a *SSLCommerzAdapter) sessionForm(o *order.Order, p *order.Payment, tranID string) url.Values {
	phone := o.CustomerPhone
	if phone == "" {
		phone = "N/A"
	}
	ship := o.ShippingAddress
	bill := o.BillingAddress

	form := url.Values{}
	form.Set("store_id", a.config.StoreID)
	form.Set("store_passwd", a.config.StorePassword)
	form.Set("total_amount", p.Amount.StringFixed(2))
	form.Set("currency", p.Currency)
	form.Set("tran_id", tranID)
	form.Set("success_url", a.config.SuccessURL)
	form.Set("fail_url", a.config.FailURL)
	form.Set("cancel_url", a.config.CancelURL)
	form.Set("ipn_url", a.config.IPNURL)

	form.Set("cus_name", o.CustomerName)
	form.Set("cus_email", o.CustomerEmail)
	form.Set("cus_phone", phone)
	form.Set("cus_add1", bill.Line1)
	form.Set("cus_add2", bill.Line2)
	form.Set("cus_city", bill.City)
	form.Set("cus_state", bill.State)
	form.Set("cus_postcode", bill.PostalCode)
	form.Set("cus_country", bill.Country)

	form.Set("shipping_method", "Courier")
	form.Set("num_of_item", fmt.Sprintf("%d", len(o.Items)))
	form.Set("ship_name", o.CustomerName)
	form.Set("ship_add1", ship.Line1)
	form.Set("ship_add2", ship.Line2)
	form.Set("ship_city", ship.City)
	form.Set("ship_state", ship.State)
	form.Set("ship_postcode", ship.PostalCode)
	form.Set("ship_country", ship.Country)

	form.Set("product_name", "Order "+o.OrderNumber)
	form.Set("product_category", "general")
	form.Set("product_profile", "general")

	// echoed back on the IPN
	form.Set("value_a", o.StoreID.String())
	form.Set("value_b", o.ID.String())
	form.Set("value_c", o.OrderNumber)
	return form
}

// VerifySignature checks verify_sign: md5 over the fields listed in
// verify_key plus store_passwd=md5(password), sorted by key and joined as a
// query string.
func (a *SSLCommerzAdapter) VerifySignature(form url.Values) bool {
	sign := form.Get("verify_sign")
	verifyKey := form.Get("verify_key")
	if sign == "" || verifyKey == "" {
		return false
	}

	expected := a.sign(form, strings.Split(verifyKey, ","))
	return strings.EqualFold(expected, sign)
}

func (a *SSLCommerzAdapter) sign(form url.Values, keys []string) string {
	fields := make(map[string]string, len(keys)+1)
	for _, k := range keys {
		fields[k] = form.Get(k)
	}
	fields["store_passwd"] = md5Hex(a.config.StorePassword)

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return md5Hex(b.String())
}

// ValidateTransaction asks SSLCommerz for the authoritative transaction state
func (a *SSLCommerzAdapter) ValidateTransaction(ctx context.Context, valID string) (*paymentapp.SSLCommerzValidation, error) {
	if valID == "" {
		return nil, fmt.Errorf("%w: missing val_id", ErrGatewayRequestFailed)
	}

	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", a.config.StoreID)
	q.Set("store_passwd", a.config.StorePassword)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.config.host()+sslcommerzValidationPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("sslcommerz: failed to create request: %w", err)
	}

	body, err := a.do(req)
	if err != nil {
		return nil, err
	}

	var resp sslcommerzValidationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("sslcommerz: failed to parse validation response: %w", err)
	}

	result := &paymentapp.SSLCommerzValidation{
		Status:    resp.Status,
		TranID:    resp.TranID,
		ValID:     resp.ValID,
		Currency:  resp.Currency,
		RiskLevel: resp.RiskLevel,
	}
	if resp.Amount != "" {
		amount, err := decimal.NewFromString(resp.Amount)
		if err != nil {
			return nil, fmt.Errorf("sslcommerz: invalid amount %q: %w", resp.Amount, err)
		}
		result.Amount = amount
	}

	a.logger.Debug("Validated SSLCommerz transaction",
		zap.String("val_id", valID),
		zap.String("status", resp.Status),
		zap.String("risk_level", resp.RiskLevel))

	return result, nil
}

func (a *SSLCommerzAdapter) do(req *http.Request) ([]byte, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayResponse))
	if err != nil {
		return nil, fmt.Errorf("sslcommerz: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrGatewayRequestFailed, resp.StatusCode)
	}
	return body, nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
