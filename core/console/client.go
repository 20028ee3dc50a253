package console

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

const (
	headerAuthKey = "auth-key"
	headerAppType = "application-type"
)

// Client talks to the remote management console over HTTP.
// It is safe for concurrent use once Login has returned.
type Client struct {
	baseURL   string
	serverURL string
	username  string
	password  string
	timeout   time.Duration
	limit     int
	verbose   bool

	http   *fiber.Client
	logger *zap.Logger

	mu      sync.RWMutex
	authKey string
	secrets map[string]string
}

// NewClient creates a console client. It does not log in.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("console url is required")
	}
	if !strings.HasPrefix(base, "http") {
		base = "https://" + base
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	limit := cfg.Concurrency
	if limit < 1 {
		limit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:   base,
		serverURL: base + "/api",
		username:  cfg.Username,
		password:  cfg.Password,
		timeout:   time.Duration(timeout) * time.Second,
		limit:     limit,
		verbose:   cfg.Verbose,
		http:      &fiber.Client{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal},
		logger:    logger.With(zap.String("console", base)),
		secrets:   make(map[string]string),
	}, nil
}

// BaseURL returns the normalized console URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// reply is the part of a response the client cares about.
type reply struct {
	status  int
	body    []byte
	authKey string
}

// send performs one request. url is absolute; body is JSON-encoded when set.
func (c *Client) send(ctx context.Context, method, url, query string, body any) (*reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var agent *fiber.Agent
	switch method {
	case fiber.MethodGet:
		agent = c.http.Get(url)
	case fiber.MethodPost:
		agent = c.http.Post(url)
	case fiber.MethodPut:
		agent = c.http.Put(url)
	case fiber.MethodDelete:
		agent = c.http.Delete(url)
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}

	agent.Set(headerAppType, "REST")
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if key := c.currentAuthKey(); key != "" {
		agent.Set(headerAuthKey, key)
	}
	if query != "" {
		agent.QueryString(query)
	}
	if body != nil {
		agent.JSON(body)
	} else {
		agent.ContentType(fiber.MIMEApplicationJSON)
	}
	agent.Timeout(c.requestTimeout(ctx))

	if c.verbose {
		c.logger.Info("Making request", zap.String("method", method), zap.String("url", url))
		agent.Debug(&zapio.Writer{Log: c.logger, Level: zapcore.DebugLevel})
	}

	resp := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(resp)
	agent.SetResponse(resp)

	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s %s: %w", method, url, errs[0])
	}

	r := &reply{
		status:  status,
		body:    raw,
		authKey: string(resp.Header.Peek(headerAuthKey)),
	}

	if c.verbose {
		c.logger.Info("Request finished", zap.String("method", method), zap.String("url", url), zap.Int("status", status))
	}
	return r, nil
}

// call sends a console request against path and decodes a JSON reply into
// out when out is not nil.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	return c.callURL(ctx, method, c.baseURL, path, "", body, out)
}

func (c *Client) callURL(ctx context.Context, method, base, path, query string, body, out any) error {
	r, err := c.send(ctx, method, base+path, query, body)
	if err != nil {
		return err
	}
	if r.status < 200 || r.status >= 300 {
		return newAPIError(method, path, r.status, r.body)
	}
	if out == nil || len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// requestTimeout is the configured timeout, shortened to the context
// deadline when that comes first.
func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 && left < timeout {
			timeout = left
		}
	}
	return timeout
}

func (c *Client) currentAuthKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authKey
}

// Login authenticates and keeps the returned auth-key for later requests.
func (c *Client) Login(ctx context.Context) error {
	payload := map[string]string{"login": c.username, "password": c.password}

	r, err := c.send(ctx, fiber.MethodPost, c.baseURL+"/console/home/login", "", payload)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if r.status < 200 || r.status >= 300 {
		return fmt.Errorf("login failed: %w", newAPIError(fiber.MethodPost, "/console/home/login", r.status, r.body))
	}
	if r.authKey == "" {
		return fmt.Errorf("login failed: response carried no %s header", headerAuthKey)
	}

	c.mu.Lock()
	c.authKey = r.authKey
	c.mu.Unlock()

	c.logger.Debug("Logged in to console")
	return nil
}

func (c *Client) requireLogin() error {
	if c.currentAuthKey() == "" {
		return ErrNotLoggedIn
	}
	return nil
}

// Application is an environment as listed by the console.
type Application struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Applications lists every environment visible to the logged in developer.
// Older console versions report appId and appName instead of id and name.
func (c *Client) Applications(ctx context.Context) ([]Application, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}

	var raw []struct {
		ID      string `json:"id"`
		AppID   string `json:"appId"`
		Name    string `json:"name"`
		AppName string `json:"appName"`
	}
	if err := c.call(ctx, fiber.MethodGet, "/console/applications", nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	apps := make([]Application, 0, len(raw))
	for _, app := range raw {
		a := Application{ID: app.ID, Name: app.Name}
		if a.ID == "" {
			a.ID = app.AppID
		}
		if a.Name == "" {
			a.Name = app.AppName
		}
		apps = append(apps, a)
	}
	return apps, nil
}

// FindApplication returns the application with the given name.
func (c *Client) FindApplication(ctx context.Context, name string) (Application, error) {
	apps, err := c.Applications(ctx)
	if err != nil {
		return Application{}, err
	}
	for _, app := range apps {
		if app.Name == name {
			return app, nil
		}
	}
	return Application{}, fmt.Errorf("%s app does not exist", name)
}

// Secret returns the REST secret key of an environment, fetching it once.
func (c *Client) Secret(ctx context.Context, envID string) (string, error) {
	c.mu.RLock()
	secret, ok := c.secrets[envID]
	c.mu.RUnlock()
	if ok {
		return secret, nil
	}

	var settings struct {
		Devices struct {
			REST string `json:"REST"`
		} `json:"devices"`
	}
	if err := c.call(ctx, fiber.MethodGet, "/"+envID+"/console/appsettings", nil, &settings); err != nil {
		return "", fmt.Errorf("failed to fetch secret of %s: %w", envID, err)
	}

	c.mu.Lock()
	c.secrets[envID] = settings.Devices.REST
	c.mu.Unlock()
	return settings.Devices.REST, nil
}
