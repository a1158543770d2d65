package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

const maxBodyBytes = 1 << 20

// Resultados reportados ao Observer
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "unavailable"
)

// Client traduz "último" ou um número de concurso em exatamente um ContestResult
// ou numa falha definitiva. Uma tentativa por chamada: sem cache e sem retry.
type Client struct {
	BaseURL   string // ex: https://servicebus2.caixa.gov.br/portaldeloterias/api
	UserAgent string
	HTTP      *http.Client
	Limiter   *rate.Limiter // opcional: ritmo das chamadas ao fornecedor

	// Observer recebe operação ("latest" | "by_number"), resultado e latência
	Observer func(op, outcome string, d time.Duration)
}

type Option func(*Client)

// WithTimeout troca o timeout numa cópia; um *http.Client recebido de fora não é alterado
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.HTTP
		hc.Timeout = d
		c.HTTP = &hc
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.UserAgent = ua }
}

// WithRateLimit limita o ritmo de saída; rps <= 0 desliga
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.Limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithObserver(fn func(op, outcome string, d time.Duration)) Option {
	return func(c *Client) { c.Observer = fn }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

func New(base string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchLatest busca o concurso mais recente.
// Qualquer falha (inclusive 404) vira ErrUpstreamUnavailable.
func (c *Client) FetchLatest(ctx context.Context) (dto.ContestResult, error) {
	return c.fetch(ctx, "latest", c.BaseURL+"/megasena", ErrUpstreamUnavailable)
}

// FetchByNumber busca um concurso específico.
// n <= 0 devolve ErrInvalidArgument sem tocar na rede; 404 vira ErrNotFound.
func (c *Client) FetchByNumber(ctx context.Context, n int) (dto.ContestResult, error) {
	if n <= 0 {
		return dto.ContestResult{}, fmt.Errorf("%w: %d", ErrInvalidArgument, n)
	}

	res, err := c.fetch(ctx, "by_number", c.BaseURL+"/megasena/"+strconv.Itoa(n), ErrNotFound)
	if err != nil {
		return dto.ContestResult{}, err
	}
	if res.ContestNumber != n {
		return dto.ContestResult{}, fmt.Errorf("%w: pedido concurso %d, recebido %d", ErrUpstreamUnavailable, n, res.ContestNumber)
	}
	return res, nil
}

func (c *Client) fetch(ctx context.Context, op, url string, notFound error) (res dto.ContestResult, err error) {
	start := time.Now()
	defer func() {
		outcome := OutcomeOK
		switch {
		case err == nil:
		case errors.Is(err, ErrNotFound):
			outcome = OutcomeNotFound
		default:
			outcome = OutcomeUnavailable
		}
		c.observe(op, outcome, time.Since(start))
	}()

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return dto.ContestResult{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return dto.ContestResult{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return dto.ContestResult{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return dto.ContestResult{}, &StatusError{StatusCode: resp.StatusCode, URL: url, kind: notFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return dto.ContestResult{}, &StatusError{StatusCode: resp.StatusCode, URL: url, kind: ErrUpstreamUnavailable}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return dto.ContestResult{}, fmt.Errorf("%w: read body: %w", ErrUpstreamUnavailable, err)
	}

	res, err = decode(body)
	if err != nil {
		return dto.ContestResult{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return res, nil
}

func (c *Client) observe(op, outcome string, d time.Duration) {
	if c.Observer != nil {
		c.Observer(op, outcome, d)
	}
}
