// Package stock searches and downloads stock footage from Pexels.
package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ivlev/topic2video/internal/config"
)

var (
	ErrNoResults = errors.New("stock: no videos found")
	ErrNoFiles   = errors.New("stock: video has no files")
	ErrNoLink    = errors.New("stock: video file has no link")
)

// StatusError reports a non-2xx answer from the footage API.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stock %s: unexpected status %d", e.Op, e.StatusCode)
}

type FootageSource interface {
	Search(ctx context.Context, query, orientation string) (string, error)
	Download(ctx context.Context, link, path string) error
}

type PexelsClient struct {
	BaseURL         string
	Key             string
	Client          *http.Client
	SearchTimeout   time.Duration
	DownloadTimeout time.Duration
}

func NewPexelsClient(cfg config.FootageConfig) *PexelsClient {
	return &PexelsClient{
		BaseURL:         cfg.BaseURL,
		Key:             cfg.Key,
		Client:          &http.Client{},
		SearchTimeout:   cfg.SearchTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
	}
}

type searchResponse struct {
	Videos []struct {
		ID         int `json:"id"`
		VideoFiles []struct {
			Width  int    `json:"width"`
			Height int    `json:"height"`
			Link   string `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
}

// Search returns the link of the widest file of the first matching video.
func (p *PexelsClient) Search(ctx context.Context, query, orientation string) (string, error) {
	if p.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.SearchTimeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", "1")
	if orientation != "" {
		q.Set("orientation", orientation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/videos/search?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", p.Key)

	resp, err := p.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("pexels search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Op: "search", StatusCode: resp.StatusCode}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("failed to decode pexels response: %w", err)
	}
	if len(sr.Videos) == 0 {
		return "", ErrNoResults
	}

	files := sr.Videos[0].VideoFiles
	if len(files) == 0 {
		return "", ErrNoFiles
	}
	best := 0
	for i, f := range files {
		if f.Width > files[best].Width {
			best = i
		}
	}
	if files[best].Link == "" {
		return "", ErrNoLink
	}
	return files[best].Link, nil
}

// Download streams link into path. On failure path may hold a partial file;
// the caller owns its removal.
func (p *PexelsClient) Download(ctx context.Context, link, path string) error {
	if p.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.DownloadTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}
	resp, err := p.client().Do(req)
	if err != nil {
		return fmt.Errorf("footage download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: "download", StatusCode: resp.StatusCode}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create footage file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("footage download interrupted: %w", err)
	}
	return f.Close()
}

func (p *PexelsClient) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}
