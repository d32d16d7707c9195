package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/habitpet/caloriecam/internal/estimation"
	"github.com/habitpet/caloriecam/internal/telemetry/tracing"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout           = 20 * time.Second
	DefaultRequestsPerSecond = 2.0

	analyzePath      = "/analyze_food"
	maxErrorBodySize = 1024
)

type HTTPClientParams struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	// HttpClient defaults to a client with an otelhttp transport.
	HttpClient *http.Client
}

// HTTPClient calls the hosted analyze_food function.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewHTTPClient(params HTTPClientParams) *HTTPClient {
	if params.Timeout <= 0 {
		params.Timeout = DefaultTimeout
	}
	if params.RequestsPerSecond <= 0 {
		params.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if params.HttpClient == nil {
		params.HttpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &HTTPClient{
		baseURL:    strings.TrimSuffix(params.BaseURL, "/"),
		apiKey:     params.APIKey,
		timeout:    params.Timeout,
		httpClient: params.HttpClient,
		limiter:    rate.NewLimiter(rate.Limit(params.RequestsPerSecond), 1),
	}
}

func (c *HTTPClient) Analyze(ctx context.Context, image []byte, mimeType string) (_ *estimation.AnalyzerObservation, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.http.analyze")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if len(image) == 0 {
		image, mimeType = PlaceholderPNG, PlaceholderMimeType
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	span.SetAttributes(
		attribute.Int("image-size", len(image)),
		attribute.String("mime-type", mimeType),
	)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	reqBody, err := json.Marshal(analyzeRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		MimeType:    mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	span.SetAttributes(attribute.Int("status-code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var analyzeResp analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&analyzeResp); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	if len(analyzeResp.Items) == 0 {
		return nil, ErrEmptyResponse
	}

	span.SetAttributes(
		attribute.StringSlice("used", analyzeResp.Meta.Used),
		attribute.Int("latency-ms", analyzeResp.Meta.LatencyMs),
	)

	return analyzeResp.Items[0].toObservation(), nil
}
