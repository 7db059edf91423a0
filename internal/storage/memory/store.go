package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stockpilot/stockpilot/internal/storage"
)

// Store keeps objects in process memory. It stands in for S3 in the dev profile
// when no endpoint is configured.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

type object struct {
	body []byte
	info storage.ObjectInfo
}

func New() *Store {
	return &Store{objects: map[string]object{}, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, _ int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return storage.ObjectInfo{}, fmt.Errorf("object key is required")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("read object body: %w", err)
	}
	sum := md5.Sum(data)
	info := storage.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: s.now(),
		Metadata:     opts.Metadata,
	}
	s.mu.Lock()
	s.objects[key] = object{body: data, info: info}
	s.mu.Unlock()
	return info, ctx.Err()
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[strings.TrimPrefix(key, "/")]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.body)), nil
}

func (s *Store) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	s.mu.RLock()
	obj, ok := s.objects[strings.TrimPrefix(key, "/")]
	s.mu.RUnlock()
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return obj.info, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, strings.TrimPrefix(key, "/"))
	s.mu.Unlock()
	return nil
}

func (s *Store) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	prefix = strings.TrimPrefix(prefix, "/")
	s.mu.RLock()
	out := make([]storage.ObjectInfo, 0, len(s.objects))
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, obj.info)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
