package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pillbot/pkg/logx"
)

// fileBackend keeps one <key>.json document per record under a directory.
//
// Saves are write-new-then-replace: the document is written to a temp file
// and renamed over the previous one, so a crash mid-write never leaves a
// half-written record behind.
type fileBackend struct {
	log logx.Logger
	dir string

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Backend, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileBackend{log: log, dir: dir}, nil
}

func (b *fileBackend) pathFor(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("invalid record key %q", key)
	}
	return filepath.Join(b.dir, key+".json"), nil
}

func (b *fileBackend) Load(ctx context.Context, key string, v any) (bool, error) {
	_ = ctx
	path, err := b.pathFor(key)
	if err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("load", key, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, storageErr("decode", key, err)
	}
	return true, nil
}

func (b *fileBackend) Save(ctx context.Context, key string, v any) error {
	_ = ctx
	path, err := b.pathFor(key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return storageErr("encode", key, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return storageErr("save", key, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return storageErr("save", key, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return storageErr("save", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return storageErr("save", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return storageErr("save", key, err)
	}
	return nil
}

func (b *fileBackend) Close() error { return nil }
