package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"transfer-settlement-service/config"
	"transfer-settlement-service/internal/core/domain"
	"transfer-settlement-service/internal/metrics"
	"transfer-settlement-service/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// Client implements ports.IncentiveClient against the incentive HTTP
// service. Each attempt gets its own timeout; transient failures are
// retried with backoff, and a circuit breaker sheds load once the
// service is persistently down.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	maxAttempts int
	backoff     time.Duration
	log         zerolog.Logger
}

type incentiveRequest struct {
	SenderID    string  `json:"sender_id"`
	RecipientID string  `json:"recipient_id"`
	Amount      float64 `json:"amount"`
}

type incentiveResponse struct {
	Amount decimal.Decimal `json:"amount"`
}

// NewClient creates a new incentive service client.
func NewClient(cfg config.IncentiveConfig, log zerolog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "incentive-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		breaker:     breaker,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		log:         log.With().Str("component", "incentive_client").Logger(),
	}
}

// ComputeIncentive asks the incentive service for the bonus to mint for
// this transfer. Transient failures surface as retryable errors so the
// caller can redeliver the message; the transfer is never settled with
// a guessed incentive.
func (c *Client) ComputeIncentive(ctx context.Context, req domain.TransferRequest) (domain.Incentive, error) {
	body, err := json.Marshal(incentiveRequest{
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Amount:      req.Amount.InexactFloat64(),
	})
	if err != nil {
		return domain.Incentive{}, apperror.ErrEnrichmentMalformed(err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.EnrichmentRetries.Inc()
			select {
			case <-ctx.Done():
				return domain.Incentive{}, apperror.ErrEnrichmentTimeout(ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt-1)):
			}
		}

		inc, err := c.callOnce(ctx, body)
		if err == nil {
			return inc, nil
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "ENR_003" {
			// Malformed response will not improve on retry.
			return domain.Incentive{}, err
		}

		c.log.Warn().Err(err).Int("attempt", attempt).Msg("incentive call failed")
		lastErr = err
	}

	return domain.Incentive{}, lastErr
}

func (c *Client) callOnce(ctx context.Context, body []byte) (domain.Incentive, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.Incentive{}, apperror.ErrEnrichmentUnreachable(err)
		}
		return domain.Incentive{}, err
	}
	return result.(domain.Incentive), nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (domain.Incentive, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/incentive", bytes.NewReader(body))
	if err != nil {
		return domain.Incentive{}, apperror.ErrEnrichmentUnreachable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Incentive{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return domain.Incentive{}, apperror.ErrEnrichmentUnreachable(
			fmt.Errorf("incentive service returned status %d", resp.StatusCode))
	}

	var out incentiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Incentive{}, apperror.ErrEnrichmentMalformed(err)
	}
	if out.Amount.IsNegative() {
		return domain.Incentive{}, apperror.ErrEnrichmentMalformed(
			fmt.Errorf("negative incentive %s", out.Amount))
	}

	return domain.Incentive{Amount: out.Amount}, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperror.ErrEnrichmentTimeout(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.ErrEnrichmentTimeout(err)
	}
	return apperror.ErrEnrichmentUnreachable(err)
}
