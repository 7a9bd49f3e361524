package objstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestObjectKeyFormat(t *testing.T) {
	key := ObjectKey("results.pdf")
	if !regexp.MustCompile(`^\d{13}-[0-9a-f]{16}\.pdf$`).MatchString(key) {
		t.Errorf("unexpected key format: %s", key)
	}

	// Keys never repeat, even for the same file name in a tight loop.
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		k := ObjectKey("results.pdf")
		if seen[k] {
			t.Fatalf("duplicate key generated: %s", k)
		}
		seen[k] = true
	}
}

func TestObjectKeyNoExtension(t *testing.T) {
	key := ObjectKey("scan")
	if strings.Contains(key, ".") {
		t.Errorf("expected no extension, got %s", key)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore("reports", true, 0)
	ctx := context.Background()

	key, err := store.Upload(ctx, "blood-panel.pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "pdf bytes" {
		t.Errorf("expected original content, got %q", data)
	}
}

func TestMemoryStoreOpenNotFound(t *testing.T) {
	store := NewMemoryStore("reports", true, 0)
	if _, err := store.Open(context.Background(), "missing-key"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMemoryStoreSizeLimit(t *testing.T) {
	store := NewMemoryStore("reports", true, 10)
	_, err := store.Upload(context.Background(), "big.pdf", strings.NewReader("this content is over ten bytes"))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("oversized upload must not be stored")
	}
}

func TestMemoryStoreAccessURL(t *testing.T) {
	ctx := context.Background()

	pub := NewMemoryStore("reports", true, 0)
	key, _ := pub.Upload(ctx, "x.pdf", strings.NewReader("data"))
	url, err := pub.AccessURL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("access url: %v", err)
	}
	if !strings.Contains(url, "/object/public/reports/"+key) {
		t.Errorf("expected public url, got %s", url)
	}

	priv := NewMemoryStore("reports", false, 0)
	key, _ = priv.Upload(ctx, "x.pdf", strings.NewReader("data"))
	url, err = priv.AccessURL(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("access url: %v", err)
	}
	if !strings.Contains(url, "/object/sign/reports/"+key) || !strings.Contains(url, "expires=") {
		t.Errorf("expected signed url with expiry, got %s", url)
	}

	if _, err := pub.AccessURL(ctx, "missing", time.Hour); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMemoryStoreEnsureBucketConcurrent(t *testing.T) {
	store := NewMemoryStore("reports", true, 0)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.EnsureBucket(context.Background()); err != nil {
				t.Errorf("ensure bucket: %v", err)
			}
		}()
	}
	wg.Wait()
}

// fakeStorageAPI emulates the bucket and object endpoints of the storage
// service for RESTStore tests.
type fakeStorageAPI struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte

	denyAll bool
}

func newFakeStorageAPI() *fakeStorageAPI {
	return &fakeStorageAPI{buckets: make(map[string]bool), objects: make(map[string][]byte)}
}

func (f *fakeStorageAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bucket", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.denyAll {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"message": "row-level security policy violation"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			var out []map[string]any
			for name := range f.buckets {
				out = append(out, map[string]any{"id": name, "name": name})
			}
			json.NewEncoder(w).Encode(out)
		case http.MethodPost:
			var body struct {
				Name string `json:"name"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if f.buckets[body.Name] {
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{"message": "Bucket already exists"})
				return
			}
			f.buckets[body.Name] = true
			json.NewEncoder(w).Encode(map[string]string{"name": body.Name})
		}
	})
	mux.HandleFunc("/object/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			data, _ := io.ReadAll(r.Body)
			f.objects[strings.TrimPrefix(r.URL.Path, "/object/")] = data
			json.NewEncoder(w).Encode(map[string]string{"Key": r.URL.Path})
		case http.MethodGet:
			data, ok := f.objects[strings.TrimPrefix(r.URL.Path, "/object/")]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(data)
		}
	})
	return mux
}

func TestRESTStoreEnsureBucket(t *testing.T) {
	api := newFakeStorageAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := NewRESTStore(RESTConfig{Endpoint: srv.URL, ServiceKey: "service-key", Bucket: "reports", Public: true})
	ctx := context.Background()

	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if !api.buckets["reports"] {
		t.Fatal("bucket was not created")
	}
	// Second call finds the bucket in the listing.
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
}

func TestRESTStoreEnsureBucketRace(t *testing.T) {
	// Listing reports no buckets, creation answers 409 because another
	// instance won the race. That still counts as success.
	mux := http.NewServeMux()
	mux.HandleFunc("/bucket", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]map[string]any{})
		case http.MethodPost:
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "Bucket already exists"})
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewRESTStore(RESTConfig{Endpoint: srv.URL, ServiceKey: "service-key", Bucket: "reports"})
	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("ensure during race: %v", err)
	}
}

func TestRESTStoreEnsureBucketDenied(t *testing.T) {
	api := newFakeStorageAPI()
	api.denyAll = true
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := NewRESTStore(RESTConfig{Endpoint: srv.URL, ServiceKey: "anon-key", Bucket: "reports"})
	if err := store.EnsureBucket(context.Background()); !errors.Is(err, ErrBucketAccessDenied) {
		t.Errorf("expected ErrBucketAccessDenied, got %v", err)
	}
}

func TestRESTStoreUploadAndOpen(t *testing.T) {
	api := newFakeStorageAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	store := NewRESTStore(RESTConfig{Endpoint: srv.URL, ServiceKey: "service-key", Bucket: "reports", Public: true})
	ctx := context.Background()

	key, err := store.Upload(ctx, "mri.pdf", strings.NewReader("scan data"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Errorf("expected .pdf key, got %s", key)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "scan data" {
		t.Errorf("expected original content, got %q", data)
	}

	if _, err := store.Open(ctx, "missing.pdf"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestRESTStorePublicAccessURL(t *testing.T) {
	store := NewRESTStore(RESTConfig{Endpoint: "https://storage.example.com", Bucket: "reports", Public: true})
	url, err := store.AccessURL(context.Background(), "123-abc.pdf", time.Hour)
	if err != nil {
		t.Fatalf("access url: %v", err)
	}
	if url != "https://storage.example.com/object/public/reports/123-abc.pdf" {
		t.Errorf("unexpected url: %s", url)
	}
}
