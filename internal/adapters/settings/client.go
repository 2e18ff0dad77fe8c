// Package settings habla con el servicio externo de configuración, donde
// viven los perfiles de cálculo y los ajustes rápidos de cada dominio.
//
// El documento tiene la forma
//
//	{"config": {"stocks": {"calc_profile": {...}, "quick_settings": {...}}, ...}}
//
// y las escrituras son merges parciales: {"updates": {"dfs": {"calc_profile": {...}}}}.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/playscore/internal/domain"
)

const (
	// El servicio es local; el límite solo evita ráfagas desde la API.
	ratePerSec = 10
	rateBurst  = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	profileKey = "calc_profile"
	quickKey   = "quick_settings"
)

// ErrDisabled se devuelve cuando el cliente no tiene URL base.
var ErrDisabled = errors.New("settings service disabled")

// Client es el HTTP client del servicio de settings con rate limiting y retries.
// Implementa ports.ProfileRepository.
type Client struct {
	http      *http.Client
	base      string
	limiter   *rate.Limiter
	retryWait time.Duration
}

// Option configura un Client.
type Option func(*Client)

// WithHTTPClient sustituye el http.Client por defecto (timeout 10s).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetryWait cambia la espera base del backoff exponencial.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.retryWait = d }
}

// NewClient crea un Client contra base (p.ej. http://localhost:8000/api/v1).
// Con base vacío todas las llamadas devuelven ErrDisabled.
func NewClient(base string, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		base:      strings.TrimRight(base, "/"),
		limiter:   rate.NewLimiter(ratePerSec, rateBurst),
		retryWait: baseRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled indica si hay servicio configurado.
func (c *Client) Enabled() bool {
	return c.base != ""
}

type configResponse struct {
	Config map[string]any `json:"config"`
}

type updateRequest struct {
	Updates map[string]any `json:"updates"`
}

// Config devuelve el documento completo de configuración.
func (c *Client) Config(ctx context.Context) (map[string]any, error) {
	var resp configResponse
	if err := c.get(ctx, c.url("/settings"), &resp); err != nil {
		return nil, fmt.Errorf("settings.Config: %w", err)
	}
	return resp.Config, nil
}

// Update hace merge de updates en el documento y devuelve el resultado.
func (c *Client) Update(ctx context.Context, updates map[string]any) (map[string]any, error) {
	var resp configResponse
	if err := c.post(ctx, c.url("/settings"), updateRequest{Updates: updates}, &resp); err != nil {
		return nil, fmt.Errorf("settings.Update: %w", err)
	}
	return resp.Config, nil
}

// Reset vuelve el documento a los defaults del servicio.
func (c *Client) Reset(ctx context.Context) (map[string]any, error) {
	var resp configResponse
	if err := c.post(ctx, c.url("/settings/reset"), struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("settings.Reset: %w", err)
	}
	return resp.Config, nil
}

// LoadProfile devuelve el calc_profile del dominio, o nil si no existe.
func (c *Client) LoadProfile(ctx context.Context, d domain.Domain) (map[string]any, error) {
	return c.section(ctx, d, profileKey)
}

// SaveProfile escribe el calc_profile del dominio.
func (c *Client) SaveProfile(ctx context.Context, d domain.Domain, fields map[string]any) error {
	_, err := c.Update(ctx, map[string]any{
		d.String(): map[string]any{profileKey: fields},
	})
	return err
}

// QuickSettings devuelve los ajustes rápidos del dominio (score mínimo,
// edge mínimo, filtro de lado...), o nil si no existen.
func (c *Client) QuickSettings(ctx context.Context, d domain.Domain) (map[string]any, error) {
	return c.section(ctx, d, quickKey)
}

func (c *Client) section(ctx context.Context, d domain.Domain, key string) (map[string]any, error) {
	cfg, err := c.Config(ctx)
	if err != nil {
		return nil, err
	}
	dom, _ := cfg[d.String()].(map[string]any)
	sec, _ := dom[key].(map[string]any)
	return sec, nil
}

func (c *Client) url(path string) string {
	return c.base + path
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial. Los 4xx (salvo 429)
// no se reintentan.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				return fmt.Errorf("request failed after %d retries: %w", attempt, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by settings service", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
