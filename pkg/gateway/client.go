package gateway

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/evotools/evo-dispatch/environments"
	"github.com/evotools/evo-dispatch/internal/domain"
	"github.com/evotools/evo-dispatch/pkg/logger"
)

// Client wraps the external Evolution API. All real WhatsApp protocol work
// happens on the gateway side; this client only issues authenticated REST
// calls and normalizes failures into errors.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

func NewClient(cfg environments.GatewayConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", cfg.APIKey)

	return &Client{
		httpClient: client,
		baseURL:    cfg.URL,
	}
}

// SendText posts a text message through the named instance.
func (c *Client) SendText(ctx context.Context, instance string, msg domain.TextMessage) (*domain.SendReceipt, error) {
	var receipt domain.SendReceipt

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&receipt).
		Post("/message/sendText/" + instance)

	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("failed to send text request: %w", err)
	}

	logger.Infof("sendText via %s completed in %v (status: %d)", instance, duration, resp.StatusCode())

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return &receipt, nil
}

// SendMedia posts a media message (image, video or document by URL) through
// the named instance.
func (c *Client) SendMedia(ctx context.Context, instance string, msg domain.MediaMessage) (*domain.SendReceipt, error) {
	var receipt domain.SendReceipt

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&receipt).
		Post("/message/sendMedia/" + instance)
	if err != nil {
		return nil, fmt.Errorf("failed to send media request: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return &receipt, nil
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizeNumber strips non-digits and prepends the Brazilian country code
// when a short number lacks it. Group JIDs (containing '@') pass through.
func NormalizeNumber(number string) string {
	if number == "" {
		return number
	}
	for _, r := range number {
		if r == '@' {
			return number
		}
	}

	formatted := nonDigits.ReplaceAllString(number, "")
	if len(formatted) < 13 && (len(formatted) < 2 || formatted[:2] != "55") {
		formatted = "55" + formatted
	}
	return formatted
}

// FetchContact looks up a contact's display info on the gateway.
func (c *Client) FetchContact(ctx context.Context, instance, number string) (*domain.ContactInfo, error) {
	var info domain.ContactInfo

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"number": NormalizeNumber(number)}).
		SetResult(&info).
		Post("/chat/fetchContact/" + instance)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return &info, nil
}

// FetchInstances lists the WhatsApp sessions known to the gateway.
func (c *Client) FetchInstances(ctx context.Context) ([]domain.Instance, error) {
	var instances []domain.Instance

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&instances).
		Get("/instance/fetchInstances")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instances: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return instances, nil
}

// ConnectionState returns the raw connection state of one instance.
func (c *Client) ConnectionState(ctx context.Context, instance string) (map[string]any, error) {
	var state map[string]any

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&state).
		Get("/instance/connectionState/" + instance)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch connection state: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return state, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
