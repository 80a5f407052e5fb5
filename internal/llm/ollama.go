package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"ragdoc/internal/domain"
)

// DefaultTimeout bounds a whole generation call.
const DefaultTimeout = 300 * time.Second

type Config struct {
	Host    string // http://localhost:11434
	Model   string // tinyllama:latest etc
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{Host: "http://localhost:11434", Model: "tinyllama:latest", Timeout: DefaultTimeout}
}

// Client streams completions from an Ollama server.
type Client struct {
	cfg    Config
	client *api.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	var c *api.Client
	if cfg.Host != "" {
		u, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host: %w", err)
		}
		c = api.NewClient(u, &http.Client{Timeout: cfg.Timeout})
	} else {
		var err error
		c, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
	}
	return &Client{cfg: cfg, client: c}, nil
}

var errDone = errors.New("generation done")

// Stream yields response pieces until the server marks the stream done.
// A failure is yielded once as the final element.
func (c *Client) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		stream := true
		req := &api.GenerateRequest{Model: c.cfg.Model, Prompt: prompt, Stream: &stream}
		var stopped, done bool
		err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
			if resp.Response != "" && !yield(resp.Response, nil) {
				stopped = true
				return errDone
			}
			if resp.Done {
				done = true
				return errDone
			}
			return nil
		})
		if stopped {
			return
		}
		if err != nil && !errors.Is(err, errDone) {
			yield("", c.classify(err))
			return
		}
		if !done {
			yield("", fmt.Errorf("%w: stream from %s ended without a done marker", domain.ErrGeneration, c.cfg.Model))
		}
	}
}

// Generate returns the full accumulated response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var b strings.Builder
	for piece, err := range c.Stream(ctx, prompt) {
		if err != nil {
			return "", err
		}
		b.WriteString(piece)
	}
	return b.String(), nil
}

func (c *Client) classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: timed out after %s: %v", domain.ErrGeneration, c.cfg.Timeout, err)
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: ollama returned HTTP %d: %s", domain.ErrGeneration, statusErr.StatusCode, statusErr.ErrorMessage)
	}
	return fmt.Errorf("%w: ollama generate: %v", domain.ErrGeneration, err)
}
