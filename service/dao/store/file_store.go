package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/durable/service/dao"
)

// FileStore persists entities as JSON documents under a base URL, one
// <key>.json object per entity. Any afs scheme works (file://, mem://, s3://).
type FileStore[K comparable, T any] struct {
	baseURL     string
	fs          afs.Service
	mu          sync.RWMutex
	keySelector func(*T) K
}

var _ dao.Service[string, struct{}] = (*FileStore[string, struct{}])(nil)

// NewFileStore creates a store rooted at baseURL, creating it when missing.
func NewFileStore[K comparable, T any](ctx context.Context, fs afs.Service, baseURL string, keySelector func(*T) K) (*FileStore[K, T], error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	baseURL = url.Normalize(baseURL, file.Scheme)
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory %s: %w", baseURL, err)
		}
	}
	return &FileStore[K, T]{baseURL: baseURL, fs: fs, keySelector: keySelector}, nil
}

// Save writes v, replacing a previous version.
func (s *FileStore[K, T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	if isZero(key) {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %v: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.location(key)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", location, err)
	}
	return nil
}

// Load reads the entity stored under key.
func (s *FileStore[K, T]) Load(ctx context.Context, key K) (*T, error) {
	if isZero(key) {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	location := s.location(key)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", location, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	ret := new(T)
	if err = json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", location, err)
	}
	return ret, nil
}

// Delete removes the entity stored under key.
func (s *FileStore[K, T]) Delete(ctx context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.location(key)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", location, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err = s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to delete %s: %w", location, err)
	}
	return nil
}

// List returns every stored entity. Unreadable documents are skipped.
func (s *FileStore[K, T]) List(ctx context.Context, _ ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.baseURL, err)
	}
	var ret []*T
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			continue
		}
		v := new(T)
		if err = json.Unmarshal(data, v); err != nil {
			continue
		}
		ret = append(ret, v)
	}
	return ret, nil
}

func (s *FileStore[K, T]) location(key K) string {
	return url.Join(s.baseURL, path.Base(fmt.Sprintf("%v.json", key)))
}

func isZero[K comparable](key K) bool {
	var zero K
	return key == zero
}
