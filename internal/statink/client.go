// Package statink fetches reference data from the stat.ink API.
package statink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/condensedtea/turf-ratings/internal/catalog"
)

const (
	weaponsPath   = "/api/v3/weapon"
	abilitiesPath = "/api/v3/ability"
	stagesPath    = "/api/v3/stage"
)

type Client struct {
	tr http.RoundTripper

	baseURL url.URL
}

// NewClient builds a client for the stat.ink instance at baseURL, e.g.
// "https://stat.ink".
func NewClient(baseURL string, tr http.RoundTripper) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}

	return &Client{tr: tr, baseURL: *u}, nil
}

// LoadCatalog downloads the weapon, ability and stage lists and builds a
// catalog from them. Weapon kits (main, sub, special) come along so
// Catalog.ReskinProblems can check the reskin table against them.
func (c *Client) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	weapons, err := c.get(ctx, weaponsPath)
	if err != nil {
		return nil, err
	}

	abilities, err := c.get(ctx, abilitiesPath)
	if err != nil {
		return nil, err
	}

	stages, err := c.get(ctx, stagesPath)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.New(weapons, abilities, stages)
	if err != nil {
		return nil, fmt.Errorf("LoadCatalog: %w", err)
	}

	slog.Info("loaded catalog", "host", c.baseURL.Host, "loadouts", len(cat.Loadouts()))

	return cat, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u := c.baseURL
	u.Path = path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("preparing http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.tr.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, string(respBytes))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: reading body: %w", path, err)
	}

	return body, nil
}
