package firerest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPDoer is the subset of *http.Client the connection needs; tests swap in
// doubles through it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type IConnection interface {
	Validate() error
	GetConfig() *Config
	GetHTTPClient() HTTPDoer
	GetTokenProvider() ITokenProvider
	GetLogger() zerolog.Logger
	HasTokenProvider() bool
	Close() error
	SetHTTPClient(client HTTPDoer) IConnection
	SetTokenProvider(provider ITokenProvider) IConnection
	SetLogger(logger zerolog.Logger) IConnection
}

// Connection bundles the HTTP client, token provider and configuration a
// Client uses to reach Firestore. It holds no request state of its own.
type Connection struct {
	config     *Config
	httpClient HTTPDoer
	tokens     ITokenProvider
	logger     zerolog.Logger
}

func NewConnection(config *Config, provider ...ITokenProvider) *Connection {
	c := &Connection{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zerolog.Nop(),
	}
	if len(provider) > 0 && provider[0] != nil {
		c.tokens = provider[0]
	}
	return c
}

// NewConnectionFromEnv loads configuration from the environment and prepares
// a connection authenticated with the configured service account.
func NewConnectionFromEnv(ctx context.Context) (*Connection, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	credentials, err := cfg.credentials()
	if err != nil {
		return nil, err
	}
	tokens, err := NewServiceAccountTokenProvider(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return NewConnection(cfg, tokens), nil
}

func (c *Connection) Validate() error {
	if c.config == nil {
		return fmt.Errorf("firestore config is required")
	}
	if err := c.config.Validate(); err != nil {
		return err
	}
	if !c.HasTokenProvider() {
		return fmt.Errorf("token provider is required")
	}
	return nil
}

func (c *Connection) GetConfig() *Config {
	return c.config
}

func (c *Connection) GetHTTPClient() HTTPDoer {
	return c.httpClient
}

func (c *Connection) GetTokenProvider() ITokenProvider {
	return c.tokens
}

func (c *Connection) GetLogger() zerolog.Logger {
	return c.logger
}

func (c *Connection) HasTokenProvider() bool {
	return c.tokens != nil
}

func (c *Connection) Close() error {
	if client, ok := c.httpClient.(*http.Client); ok {
		client.CloseIdleConnections()
	}
	return nil
}

func (c *Connection) SetHTTPClient(client HTTPDoer) IConnection {
	c.httpClient = client
	return c
}

func (c *Connection) SetTokenProvider(provider ITokenProvider) IConnection {
	c.tokens = provider
	return c
}

func (c *Connection) SetLogger(logger zerolog.Logger) IConnection {
	c.logger = logger
	return c
}
