package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"h1nted/internal/domain"
	"h1nted/internal/domain/services"
)

// maxObjectBytes bounds a downloaded formula document
const maxObjectBytes = 32 << 20

// SupabaseStorage downloads objects through the Supabase Storage REST API
// using the service role key.
type SupabaseStorage struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewSupabaseStorage(supabaseURL, serviceKey string) services.ObjectStore {
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(supabaseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Download fetches bucket/key. A missing object wraps domain.ErrNotFound.
func (s *SupabaseStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, url.PathEscape(bucket), escapeKey(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build storage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	// Storage answers a missing object with 400 or 404 depending on version
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("object %s/%s: %w", bucket, key, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("download %s/%s: status %d: %s", bucket, key, resp.StatusCode, snippet)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	if len(data) > maxObjectBytes {
		return nil, fmt.Errorf("object %s/%s exceeds %d bytes", bucket, key, maxObjectBytes)
	}

	return data, nil
}

// escapeKey escapes each path segment, keeping the separators
func escapeKey(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
