package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// FetchText GETs url and returns the body as text.
func (h *HTTP) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "mediagram/1.0")

	resp, err := h.c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fetch read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}
