package sellerapi

import (
	"fmt"
	"strings"
	"time"
)

// Defaults matching the seller panel's observed limits
const (
	DefaultBaseURL  = "https://seller.digikala.com/api/v2"
	DefaultPageSize = 30
	DefaultMaxPages = 20

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	defaultRequestTimeout = 30 * time.Second
	// Courtesy delays, distinct from 429 backoff
	defaultPageDelay   = 500 * time.Millisecond
	defaultDetailDelay = 300 * time.Millisecond

	defaultBackoffBase         = 2 * time.Second
	defaultMaxRateLimitRetries = 5
	defaultMaxNetworkRetries   = 3

	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024
)

// Upstream endpoint paths, relative to the API base URL
const (
	shipBySellerPath   = "/ship-by-seller-orders"
	marketplacePath    = "/orders/ongoing"
	customerDetailPath = "/ship-by-seller-orders/customer"
)

// Config holds the seller API client configuration
type Config struct {
	// BaseURL is the API root, without a trailing slash
	BaseURL string
	// UserAgent sent on every request
	UserAgent string

	PageSize int
	MaxPages int

	RequestTimeout time.Duration
	// PageDelay is the courtesy pause between listing pages
	PageDelay time.Duration
	// DetailDelay is the courtesy pause between customer detail lookups
	DetailDelay time.Duration

	// BackoffBase is the base for exponential backoff on 429 and on
	// transport failures
	BackoffBase         time.Duration
	MaxRateLimitRetries int
	MaxNetworkRetries   int
}

// DefaultConfig returns a configuration with production defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL:             DefaultBaseURL,
		UserAgent:           defaultUserAgent,
		PageSize:            DefaultPageSize,
		MaxPages:            DefaultMaxPages,
		RequestTimeout:      defaultRequestTimeout,
		PageDelay:           defaultPageDelay,
		DetailDelay:         defaultDetailDelay,
		BackoffBase:         defaultBackoffBase,
		MaxRateLimitRetries: defaultMaxRateLimitRetries,
		MaxNetworkRetries:   defaultMaxNetworkRetries,
	}
}

// Validate checks required fields and fills zero values with defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("seller api config: base URL is required")
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.PageDelay < 0 {
		c.PageDelay = defaultPageDelay
	}
	if c.DetailDelay < 0 {
		c.DetailDelay = defaultDetailDelay
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.MaxRateLimitRetries <= 0 {
		c.MaxRateLimitRetries = defaultMaxRateLimitRetries
	}
	if c.MaxNetworkRetries <= 0 {
		c.MaxNetworkRetries = defaultMaxNetworkRetries
	}
	return nil
}

func (c *Config) shipBySellerURL() string {
	return c.BaseURL + shipBySellerPath
}

func (c *Config) marketplaceURL() string {
	return c.BaseURL + marketplacePath
}

func (c *Config) customerDetailURL(shipmentID string) string {
	return c.BaseURL + customerDetailPath + "/" + shipmentID
}
