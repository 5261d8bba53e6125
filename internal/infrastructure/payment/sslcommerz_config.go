package payment

import (
	"errors"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
)

const (
	sslcommerzLiveURL    = "https://securepay.sslcommerz.com"
	sslcommerzSandboxURL = "https://sandbox.sslcommerz.com"

	sslcommerzSessionPath    = "/gwprocess/v4/api.php"
	sslcommerzValidationPath = "/validator/api/validationserverAPI.php"
)

// Errors for configuration validation
var (
	ErrSSLCommerzMissingStoreID  = errors.New("sslcommerz: missing store ID")
	ErrSSLCommerzMissingPassword = errors.New("sslcommerz: missing store password")
	ErrSSLCommerzMissingIPNURL   = errors.New("sslcommerz: missing IPN URL")
)

// SSLCommerzConfig contains credentials and redirect URLs for SSLCommerz
type SSLCommerzConfig struct {
	// StoreID and StorePassword are issued per merchant account
	StoreID       string
	StorePassword string
	// Sandbox selects the sandbox host
	Sandbox bool
	// BaseURL overrides the gateway host
	BaseURL string
	// ValidateRemote calls the validation API before trusting an IPN
	ValidateRemote bool

	SuccessURL string
	FailURL    string
	CancelURL  string
	IPNURL     string

	Timeout time.Duration
}

// NewSSLCommerzConfig converts application settings
func NewSSLCommerzConfig(cfg config.SSLCommerzConfig) *SSLCommerzConfig {
	return &SSLCommerzConfig{
		StoreID:        cfg.StoreID,
		StorePassword:  cfg.StorePassword,
		Sandbox:        cfg.Sandbox,
		ValidateRemote: cfg.ValidateRemote,
		SuccessURL:     cfg.SuccessURL,
		FailURL:        cfg.FailURL,
		CancelURL:      cfg.CancelURL,
		IPNURL:         cfg.IPNURL,
		Timeout:        cfg.Timeout,
	}
}

// Validate validates the configuration
func (c *SSLCommerzConfig) Validate() error {
	if c.StoreID == "" {
		return ErrSSLCommerzMissingStoreID
	}
	if c.StorePassword == "" {
		return ErrSSLCommerzMissingPassword
	}
	if c.IPNURL == "" {
		return ErrSSLCommerzMissingIPNURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}

func (c *SSLCommerzConfig) host() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Sandbox {
		return sslcommerzSandboxURL
	}
	return sslcommerzLiveURL
}
