package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. It backs development mode and
// tests, where no external storage service is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	bucket   string
	public   bool
	maxBytes int64
	created  bool
	objects  map[string][]byte
}

func NewMemoryStore(bucket string, public bool, maxBytes int64) *MemoryStore {
	return &MemoryStore{
		bucket:   bucket,
		public:   public,
		maxBytes: maxBytes,
		objects:  make(map[string][]byte),
	}
}

func (s *MemoryStore) EnsureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = true
	return nil
}

func (s *MemoryStore) Upload(ctx context.Context, fileName string, content io.Reader) (string, error) {
	data, err := readCapped(content, s.maxBytes)
	if err != nil {
		return "", err
	}
	key := ObjectKey(fileName)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		// Same millisecond, same random token. Practically unreachable.
		return "", fmt.Errorf("key collision on %q", key)
	}
	s.objects[key] = data
	return key, nil
}

func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) AccessURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if s.public {
		return fmt.Sprintf("memory://%s/object/public/%s/%s", s.bucket, s.bucket, key), nil
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("memory://%s/object/sign/%s/%s?expires=%d", s.bucket, s.bucket, key, expires), nil
}

// Len reports the number of stored objects. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
