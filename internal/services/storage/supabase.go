package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	storage_go "github.com/supabase-community/storage-go"
)

// generationMarker makes empty stores visible to Names; object storage has no
// real directories.
const generationMarker = ".generation"

const listLimit = 1000

// Supabase stores entries as objects "<store>/<sha256(key)>.json" in one bucket.
type Supabase struct {
	client *storage_go.Client
	bucket string
}

func NewSupabase(client *storage_go.Client, bucket string) *Supabase {
	return &Supabase{client: client, bucket: bucket}
}

func (s *Supabase) Type() string {
	return "supabase"
}

func (s *Supabase) upload(path string, data []byte, contentType string) error {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to supabase: %w", err)
	}
	return nil
}

func (s *Supabase) Open(ctx context.Context, name string) (Store, error) {
	if err := s.upload(name+"/"+generationMarker, []byte(name), "text/plain"); err != nil {
		return nil, err
	}
	return &supabaseStore{name: name, parent: s}, nil
}

func (s *Supabase) list(prefix string) ([]string, error) {
	files, err := s.client.ListFiles(s.bucket, prefix, storage_go.FileSearchOptions{Limit: listLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names, nil
}

func (s *Supabase) Delete(ctx context.Context, name string) (bool, error) {
	files, err := s.list(name)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, nil
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, name+"/"+f)
	}
	if _, err := s.client.RemoveFile(s.bucket, paths); err != nil {
		return false, fmt.Errorf("failed to delete store %q: %w", name, err)
	}
	return true, nil
}

func (s *Supabase) Names(ctx context.Context) ([]string, error) {
	names, err := s.list("")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *Supabase) Health(ctx context.Context) error {
	_, err := s.list("")
	return err
}

type supabaseStore struct {
	name   string
	parent *Supabase
}

func (s *supabaseStore) Name() string {
	return s.name
}

func (s *supabaseStore) path(key string) string {
	return s.name + "/" + entryID(key) + entrySuffix
}

func (s *supabaseStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	data, err := s.parent.client.DownloadFile(s.parent.bucket, s.path(key))
	if err != nil {
		// storage-go does not expose typed errors; any download failure is a miss.
		return nil, fmt.Errorf("%w: %v", errs.ErrNotFound, err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry: %w", err)
	}
	// Missing objects can come back as a JSON error document.
	if entry.URL == "" || entry.Status == 0 {
		return nil, errs.ErrNotFound
	}
	return &entry, nil
}

func (s *supabaseStore) Put(ctx context.Context, key string, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.parent.upload(s.path(key), data, "application/json")
}

func (s *supabaseStore) Keys(ctx context.Context) ([]string, error) {
	files, err := s.parent.list(s.name)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, f := range files {
		if !strings.HasSuffix(f, entrySuffix) {
			continue
		}
		data, err := s.parent.client.DownloadFile(s.parent.bucket, s.name+"/"+f)
		if err != nil {
			continue
		}
		var entry models.CacheEntry
		if json.Unmarshal(data, &entry) == nil {
			keys = append(keys, entry.URL)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
