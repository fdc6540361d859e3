// Package source downloads season play-by-play files from a release mirror.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultURLTemplate points at the public nflverse play-by-play releases. The
// single %d verb receives the season.
const DefaultURLTemplate = "https://github.com/nflverse/nflverse-data/releases/download/pbp/play_by_play_%d.csv.gz"

// Client is a minimal season file downloader.
type Client struct {
	urlTemplate string
	http        *http.Client
}

// NewClient returns a Client for urlTemplate, or DefaultURLTemplate when it
// is empty.
func NewClient(urlTemplate string) *Client {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	return &Client{
		urlTemplate: urlTemplate,
		http:        &http.Client{Timeout: 5 * time.Minute},
	}
}

// URL returns the download URL of one season.
func (c *Client) URL(season int) string {
	return fmt.Sprintf(c.urlTemplate, season)
}

// Download fetches one season into dir and returns the file path. The file
// keeps its compressed form; the name comes from the last URL path element so
// the extension still tells the reader how to decompress it.
func (c *Client) Download(ctx context.Context, season int, dir string) (string, error) {
	raw := c.URL(season)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = fmt.Sprintf("play_by_play_%d.csv", season)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("GET %s: HTTP %d: %s", raw, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	outPath := filepath.Join(dir, name)
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(outPath)
		return "", err
	}
	return outPath, nil
}
