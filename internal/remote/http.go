package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/illarion/boveda/internal/vault"
)

// maxContainerSize bounds response bodies read from a server.
const maxContainerSize = 16 << 20

// HTTP is a client for the boveda sync server.
type HTTP struct {
	base   string
	client *http.Client
}

// NewHTTP creates a client for the server at baseURL.
func NewHTTP(baseURL string, timeout time.Duration) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote url %q", baseURL)
	}
	return &HTTP{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (h *HTTP) vaultURL(deviceKey string) string {
	return h.base + "/v1/vaults/" + url.PathEscape(deviceKey)
}

func (h *HTTP) Get(ctx context.Context, deviceKey string) (vault.Container, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.vaultURL(deviceKey), nil)
	if err != nil {
		return vault.Container{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return vault.Container{}, transportError("get", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return vault.Container{}, ErrNotFound
	default:
		return vault.Container{}, transportError("get", fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContainerSize))
	if err != nil {
		return vault.Container{}, transportError("get", err)
	}
	return vault.Decode(body)
}

func (h *HTTP) Put(ctx context.Context, deviceKey string, c vault.Container) error {
	data, err := vault.Encode(c)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, h.vaultURL(deviceKey), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return transportError("put", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return transportError("put", fmt.Errorf("unexpected status %s", resp.Status))
	}
	return nil
}
