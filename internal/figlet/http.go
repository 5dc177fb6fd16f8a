package figlet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meshchat/internal/domain"
)

// DefaultURL is the public rendering service; text is appended escaped.
const DefaultURL = "https://durokotte.foo.ng/figlet-api/?text="

// maxBody caps the accepted response size.
const maxBody = 64 << 10

// ErrEmpty is returned when the service answers with no art.
var ErrEmpty = errors.New("figlet: empty response")

// HTTP renders text through a figlet web service.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for base. A zero timeout leaves requests bounded
// only by their context.
func NewHTTP(base string, timeout time.Duration) *HTTP {
	if base == "" {
		base = DefaultURL
	}
	return &HTTP{Base: base, HTTP: &http.Client{Timeout: timeout}}
}

// Render fetches text rendered as ASCII art.
func (c *HTTP) Render(ctx context.Context, text string) (string, error) {
	u := c.Base + url.QueryEscape(text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("figlet get: %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("figlet read: %w", err)
	}
	art := strings.TrimRight(string(b), "\n")
	if strings.TrimSpace(art) == "" {
		return "", ErrEmpty
	}
	return art, nil
}

var _ domain.FigletClient = (*HTTP)(nil)
