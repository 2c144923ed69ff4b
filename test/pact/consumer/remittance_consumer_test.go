//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/remesas/remittance-api/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type orderPayload struct {
	ID              string `json:"id"`
	Number          string `json:"number"`
	Status          string `json:"status"`
	AmountSent      string `json:"amountSent"`
	AmountToDeliver string `json:"amountToDeliver"`
}

type problemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Extensions map[string]any `json:"extensions"`
}

type apiError struct {
	status int
	reason string
	detail string
}

func (e apiError) Error() string {
	return fmt.Sprintf("%s (status %d, reason %q)", e.detail, e.status, e.reason)
}

func TestRemittancePortalContract(t *testing.T) {
	t.Helper()
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	senderToken := pacttest.BearerToken(t, pacttest.Sender)
	adminToken := pacttest.BearerToken(t, pacttest.Admin)
	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	orderMatcher := func(status string) matchers.Map {
		return matchers.Map{
			"id":              matchers.Like(pacttest.ExistingOrderID),
			"number":          matchers.Term("REM-000001", "^REM-\\d{6,}$"),
			"status":          matchers.S(status),
			"amountSent":      matchers.Like("100"),
			"amountToDeliver": matchers.Like("31200"),
		}
	}

	pact.AddInteraction().
		Given(pacttest.StateTypeAvailable).
		UponReceiving("a sender submitting a new order").
		WithRequest("POST", "/v1/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("Authorization", matchers.Regex(senderToken, "^Bearer .+$"))
			b.JSONBody(pacttest.ExampleCreateOrderPayload())
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderMatcher("created"))
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderCreated).
		UponReceiving("a sender fetching their order").
		WithRequest("GET", "/v1/orders/"+pacttest.ExistingOrderID, func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", matchers.Regex(senderToken, "^Bearer .+$"))
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderMatcher("created"))
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderCreated).
		UponReceiving("an administrator validating with a stale status").
		WithRequest("POST", "/v1/orders/"+pacttest.ExistingOrderID+"/validate", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("Authorization", matchers.Regex(adminToken, "^Bearer .+$"))
			b.JSONBody(map[string]any{"expectedStatus": "proof_uploaded"})
		}).
		WillRespondWith(http.StatusConflict, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/stale-state"),
				"status": matchers.Like(http.StatusConflict),
				"detail": matchers.S("this order was just updated by someone else, please refresh"),
				"extensions": matchers.Map{
					"reason":        matchers.S("stale_state"),
					"currentStatus": matchers.S("created"),
				},
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderMissing).
		UponReceiving("a request for a missing order").
		WithRequest("GET", "/v1/orders/"+pacttest.MissingOrderID, func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", matchers.Regex(senderToken, "^Bearer .+$"))
		}).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sender := newPortalClient(config, senderToken)
		admin := newPortalClient(config, adminToken)

		created, err := sender.CreateOrder(ctx, pacttest.ExampleCreateOrderPayload())
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if created.ID == "" || created.Status != "created" {
			return fmt.Errorf("unexpected created order %+v", created)
		}

		fetched, err := sender.GetOrder(ctx, pacttest.ExistingOrderID)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if fetched.Status != "created" {
			return fmt.Errorf("expected created, got %s", fetched.Status)
		}

		_, err = admin.Transition(ctx, pacttest.ExistingOrderID, "validate", "proof_uploaded")
		if apiErr, ok := err.(apiError); !ok || apiErr.status != http.StatusConflict || apiErr.reason != "stale_state" {
			return fmt.Errorf("expected stale_state conflict, got %v", err)
		}

		_, err = sender.GetOrder(ctx, pacttest.MissingOrderID)
		if apiErr, ok := err.(apiError); !ok || apiErr.status != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %v", err)
		}
		return nil
	})
	require.NoError(t, err)
}

type portalClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newPortalClient(config pactconsumer.MockServerConfig, token string) *portalClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	return &portalClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		token:      token,
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (c *portalClient) CreateOrder(ctx context.Context, payload map[string]any) (*orderPayload, error) {
	return c.do(ctx, http.MethodPost, "/v1/orders", payload)
}

func (c *portalClient) GetOrder(ctx context.Context, id string) (*orderPayload, error) {
	return c.do(ctx, http.MethodGet, "/v1/orders/"+id, nil)
}

func (c *portalClient) Transition(ctx context.Context, id, action, expectedStatus string) (*orderPayload, error) {
	return c.do(ctx, http.MethodPost, "/v1/orders/"+id+"/"+action, map[string]any{"expectedStatus": expectedStatus})
}

func (c *portalClient) do(ctx context.Context, method, path string, body any) (*orderPayload, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(res)
	}
	var payload orderPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	status := problem.Status
	if status == 0 {
		status = res.StatusCode
	}
	reason, _ := problem.Extensions["reason"].(string)
	return apiError{status: status, reason: reason, detail: problem.Detail}
}
