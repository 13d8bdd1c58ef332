// Package calcclient calls the remote opportunity-calculation service.
package calcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
)

const maxErrorBody = 4 << 10

type request struct {
	Inputs     benchmark.Inputs `json:"inputs"`
	Benchmarks benchmark.Set    `json:"benchmarks"`
}

// Client implements benchmark.Calculator over HTTP.
type Client struct {
	base   string
	token  string
	h      *http.Client
	logger *zap.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

func New(logger *zap.Logger, opts Options) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid calculator base URL %q", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultCalculatorTimeout
	}
	return &Client{
		base:   base,
		token:  opts.AuthToken,
		h:      &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// Calculate posts inputs and benchmarks for dealID and decodes the result.
// Every failure is a *fault.Error.
func (c *Client) Calculate(ctx context.Context, dealID string, in benchmark.Inputs, set benchmark.Set) (benchmark.Calculation, error) {
	endpoint := fmt.Sprintf("%s/deals/%s/opportunity-calculation", c.base, url.PathEscape(dealID))

	body, err := json.Marshal(request{Inputs: in, Benchmarks: set})
	if err != nil {
		return benchmark.Calculation{}, fault.Wrap(fault.KindInvalidPayload, err, "encode calculation request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return benchmark.Calculation{}, fault.Wrap(fault.KindInvalidPayload, err, "build calculation request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.h.Do(req)
	if err != nil {
		classified := fault.FromTransport(err)
		c.logger.Warn("Calculation request failed",
			zap.String("op", "calcclient.Calculate"),
			zap.String("dealID", dealID),
			zap.String("kind", string(fault.KindOf(classified))),
			zap.Error(err))
		return benchmark.Calculation{}, classified
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		classified := fault.FromStatus(resp.StatusCode, string(b))
		c.logger.Warn("Calculation service returned an error status",
			zap.String("op", "calcclient.Calculate"),
			zap.String("dealID", dealID),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(classified.Kind)))
		return benchmark.Calculation{}, classified
	}

	var calc benchmark.Calculation
	if err := json.NewDecoder(resp.Body).Decode(&calc); err != nil {
		return benchmark.Calculation{}, fault.Wrap(fault.KindInvalidPayload, err, "decode calculation response")
	}

	c.logger.Debug("Calculation response received",
		zap.String("op", "calcclient.Calculate"),
		zap.String("dealID", dealID),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("opportunities", len(calc.Opportunities)))
	return calc, nil
}
