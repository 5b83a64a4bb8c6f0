package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
)

const entrySuffix = ".json"

// Disk keeps one directory per store under BaseDir and one JSON file per entry.
type Disk struct {
	BaseDir string
}

func NewDisk(baseDir string) (*Disk, error) {
	if baseDir == "" {
		return nil, errors.New("disk cache backend needs CACHE_DSN to point at a directory")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Disk{BaseDir: baseDir}, nil
}

func (d *Disk) Type() string {
	return "disk"
}

func (d *Disk) storeDir(name string) string {
	return filepath.Join(d.BaseDir, url.PathEscape(name))
}

func (d *Disk) Open(ctx context.Context, name string) (Store, error) {
	dir := d.storeDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to open store %q: %w", name, err)
	}
	return &diskStore{name: name, dir: dir}, nil
}

func (d *Disk) Delete(ctx context.Context, name string) (bool, error) {
	dir := d.storeDir(name)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("failed to delete store %q: %w", name, err)
	}
	return true, nil
}

func (d *Disk) Names(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (d *Disk) Health(ctx context.Context) error {
	_, err := os.Stat(d.BaseDir)
	return err
}

type diskStore struct {
	name string
	dir  string
}

func (s *diskStore) Name() string {
	return s.name
}

func (s *diskStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, entryID(key)+entrySuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry: %w", err)
	}
	return &entry, nil
}

// Put writes to a temp file and renames it into place so readers never see a
// partial entry.
func (s *diskStore) Put(ctx context.Context, key string, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tmpPath := filepath.Join(s.dir, ".tmp-"+uuid.New().String())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, entryID(key)+entrySuffix)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *diskStore) Keys(ctx context.Context) ([]string, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), entrySuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, f.Name()))
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
