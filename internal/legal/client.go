package legal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/utafrali/RegistryGo/pkg/httpclient"
)

// Document is a legal document accompanying a registry command, stored
// opaquely in the external document service.
type Document struct {
	Kind string `json:"kind"`
	Body string `json:"body"`
}

// Client stores legal documents in the external document service. Calls go
// through a circuit breaker; a failed attachment is logged by the caller and
// never rolls back the command it accompanied.
type Client struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a legal-document client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	base := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(base, httpclient.DefaultCircuitBreakerConfig("legal-documents"), logger)
	return &Client{
		http:    cb,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Attach stores a document against the given domain and returns the stored
// document's identifier.
func (c *Client) Attach(ctx context.Context, domainName string, doc Document) (string, error) {
	payload, err := json.Marshal(struct {
		Domain string `json:"domain"`
		Kind   string `json:"kind"`
		Body   string `json:"body"`
	}{Domain: domainName, Kind: doc.Kind, Body: doc.Body})
	if err != nil {
		return "", fmt.Errorf("marshal legal document: %w", err)
	}

	url := c.baseURL + "/api/v1/documents"
	resp, err := c.http.Post(ctx, url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("store legal document: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", httpclient.ParseResponseError(resp, "document-service")
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode document response: %w", err)
	}

	c.logger.DebugContext(ctx, "legal document stored",
		slog.String("domain", domainName),
		slog.String("document_id", out.ID),
		slog.Int("status", resp.StatusCode),
	)
	return out.ID, nil
}

// Healthy reports whether the document service answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	resp, err := c.http.Get(ctx, c.baseURL+"/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("document service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
