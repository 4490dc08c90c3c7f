package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tradecatalog/internal/config"
)

const maxAttempts = 3

var ErrNoReference = errors.New("product has no referencia")

// URL derives the photo location of a product: <base>/base-fotos/<referencia>.jpg.
// It is empty when referencia is blank.
func URL(baseURL, referencia string) string {
	return photoURL(baseURL, strings.TrimSpace(referencia))
}

func photoURL(baseURL, ref string) string {
	if ref == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/base-fotos/" + ref + ".jpg"
}

type Client struct {
	baseURL    string
	maxBytes   int64
	httpClient *http.Client
	limiter    *RateLimiter
	log        zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	maxBytes := cfg.ImageMaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &Client{
		baseURL:    cfg.ImageBaseURL,
		maxBytes:   maxBytes,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ImageTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.ImageRateLimitRPS),
		log:        log.With().Str("component", "images").Logger(),
	}
}

// Fetch downloads the photo of referencia, retrying throttling and server errors.
func (c *Client) Fetch(ctx context.Context, referencia string) ([]byte, error) {
	u := photoURL(c.baseURL, url.PathEscape(strings.TrimSpace(referencia)))
	if u == "" {
		return nil, ErrNoReference
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		body, status, err := c.get(ctx, u)
		if err == nil && status >= 200 && status < 300 {
			return body, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("image %s: status %d", referencia, status)
			if !isRetryableStatus(status) {
				return nil, lastErr
			}
		}
		if errors.Is(err, errTooLarge) || ctx.Err() != nil {
			return nil, lastErr
		}

		if attempt < maxAttempts {
			backoff := time.Duration(200*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
			c.log.Debug().Err(lastErr).Int("attempt", attempt).Dur("backoff", backoff).Msg("retrying image fetch")
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

var errTooLarge = errors.New("image exceeds size limit")

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if int64(len(body)) > c.maxBytes {
		return nil, resp.StatusCode, errTooLarge
	}
	return body, resp.StatusCode, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
