package objstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RESTStore talks to a Supabase-storage-compatible HTTP API using a service
// key. Bucket management and object access all go through the same endpoint.
type RESTStore struct {
	client   *resty.Client
	bucket   string
	public   bool
	maxBytes int64
}

type RESTConfig struct {
	Endpoint   string
	ServiceKey string
	Bucket     string
	Public     bool
	MaxBytes   int64
}

func NewRESTStore(cfg RESTConfig) *RESTStore {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetAuthToken(cfg.ServiceKey).
		SetTimeout(30 * time.Second)
	return &RESTStore{
		client:   client,
		bucket:   cfg.Bucket,
		public:   cfg.Public,
		maxBytes: cfg.MaxBytes,
	}
}

type bucketInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e apiError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func (s *RESTStore) EnsureBucket(ctx context.Context) error {
	var buckets []bucketInfo
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&buckets).
		Get("/bucket")
	if err != nil {
		return fmt.Errorf("listing buckets: %w", err)
	}
	if denied(resp) {
		return fmt.Errorf("listing buckets: %w", ErrBucketAccessDenied)
	}
	if resp.IsSuccess() {
		for _, b := range buckets {
			if b.Name == s.bucket {
				return nil
			}
		}
	}

	var apiErr apiError
	resp, err = s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"name":            s.bucket,
			"public":          s.public,
			"file_size_limit": s.maxBytes,
		}).
		SetError(&apiErr).
		Post("/bucket")
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	// Another instance may have created it between list and create.
	if resp.StatusCode() == http.StatusConflict ||
		strings.Contains(strings.ToLower(apiErr.text()), "already exists") {
		return nil
	}
	if denied(resp) {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, ErrBucketAccessDenied)
	}
	return fmt.Errorf("creating bucket %s: status %d: %s", s.bucket, resp.StatusCode(), apiErr.text())
}

func (s *RESTStore) Upload(ctx context.Context, fileName string, content io.Reader) (string, error) {
	data, err := readCapped(content, s.maxBytes)
	if err != nil {
		return "", err
	}
	key := ObjectKey(fileName)

	var apiErr apiError
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		SetError(&apiErr).
		Post(fmt.Sprintf("/object/%s/%s", s.bucket, key))
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	if denied(resp) {
		return "", fmt.Errorf("uploading %s: %w", key, ErrBucketAccessDenied)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("uploading %s: status %d: %s", key, resp.StatusCode(), apiErr.text())
	}
	return key, nil
}

func (s *RESTStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(fmt.Sprintf("/object/%s/%s", s.bucket, key))
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		resp.RawBody().Close()
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if !resp.IsSuccess() {
		resp.RawBody().Close()
		return nil, fmt.Errorf("fetching %s: status %d", key, resp.StatusCode())
	}
	return resp.RawBody(), nil
}

func (s *RESTStore) AccessURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.public {
		return fmt.Sprintf("%s/object/public/%s/%s", s.client.BaseURL, s.bucket, key), nil
	}

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	var apiErr apiError
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"expiresIn": int(ttl.Seconds())}).
		SetResult(&signed).
		SetError(&apiErr).
		Post(fmt.Sprintf("/object/sign/%s/%s", s.bucket, key))
	if err != nil {
		return "", fmt.Errorf("signing %s: %w", key, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("signing %s: status %d: %s", key, resp.StatusCode(), apiErr.text())
	}
	return s.client.BaseURL + signed.SignedURL, nil
}

func denied(resp *resty.Response) bool {
	return resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden
}
