// Package testdata caches downloaded problem test data packs. Packs are zstd
// compressed tar archives in object storage; a distributed lock keeps two
// concurrent invocations from downloading the same pack twice.
package testdata

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"cpenv/internal/common/cache"
	"cpenv/internal/common/storage"
	appErr "cpenv/pkg/errors"
)

const (
	metaFileName  = "meta.json"
	tempFileName  = "testdata-pack.tmp"
	lockKeyPrefix = "cpenv:testdata:lock:"
)

// PackMeta identifies one problem's test data pack in object storage.
type PackMeta struct {
	Contest  string `json:"contest"`
	Problem  string `json:"problem"`
	PackKey  string `json:"pack_key"`
	PackHash string `json:"pack_hash"`
}

type packEntry struct {
	key       string
	path      string
	sizeBytes int64
	expiresAt time.Time
}

// Cache manages local test data pack caching with TTL and LRU eviction.
type Cache struct {
	rootDir    string
	ttl        time.Duration
	lockWait   time.Duration
	maxEntries int
	maxBytes   int64
	bucket     string
	storage    storage.ObjectStorage
	lock       cache.LockOps

	mu        sync.Mutex
	entries   map[string]*packEntry
	lruKeys   []string
	totalSize int64
}

// New creates a test data cache rooted at rootDir.
func New(rootDir string, ttl, lockWait time.Duration, maxEntries int, maxBytes int64, bucket string, storageClient storage.ObjectStorage, lock cache.LockOps) *Cache {
	if maxEntries <= 0 {
		maxEntries = 32
	}
	if lockWait <= 0 {
		lockWait = 30 * time.Second
	}
	return &Cache{
		rootDir:    rootDir,
		ttl:        ttl,
		lockWait:   lockWait,
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		bucket:     bucket,
		storage:    storageClient,
		lock:       lock,
		entries:    make(map[string]*packEntry),
	}
}

// Get returns the local directory holding the extracted test data pack,
// downloading and extracting it when no valid copy exists.
func (c *Cache) Get(ctx context.Context, meta PackMeta) (string, error) {
	if meta.Contest == "" || meta.Problem == "" {
		return "", appErr.ValidationError("contest/problem", "required")
	}
	if c.storage == nil {
		return "", appErr.New(appErr.TestDataFetchFailed).WithMessage("storage client is not initialized")
	}
	if c.rootDir == "" {
		return "", appErr.New(appErr.TestDataFetchFailed).WithMessage("cache root is not configured")
	}
	key := packKey(meta.Contest, meta.Problem)
	path := filepath.Join(c.rootDir, meta.Contest, meta.Problem)

	if c.hitEntry(key) {
		return path, nil
	}
	if c.checkDisk(path, meta) {
		c.addEntry(key, path)
		return path, nil
	}
	if err := c.fetchAndExtract(ctx, meta, path); err != nil {
		return "", err
	}
	c.addEntry(key, path)
	return path, nil
}

func (c *Cache) hitEntry(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	if time.Now().After(entry.expiresAt) {
		c.removeEntryLocked(key)
		return false
	}
	entry.expiresAt = time.Now().Add(c.ttl)
	c.touchLocked(key)
	return true
}

func (c *Cache) checkDisk(path string, meta PackMeta) bool {
	data, err := os.ReadFile(filepath.Join(path, metaFileName))
	if err != nil {
		return false
	}
	var stored PackMeta
	if err := json.Unmarshal(data, &stored); err != nil {
		return false
	}
	return stored.PackHash == meta.PackHash && stored.PackKey == meta.PackKey
}

func (c *Cache) fetchAndExtract(ctx context.Context, meta PackMeta, path string) error {
	if c.lock == nil {
		return appErr.New(appErr.TestDataFetchFailed).WithMessage("lock client is not initialized")
	}
	lockKey := lockKeyPrefix + packKey(meta.Contest, meta.Problem)
	locked, err := c.lock.TryLock(ctx, lockKey, 5*time.Minute)
	if err != nil {
		return appErr.Wrapf(err, appErr.TestDataFetchFailed, "acquire test data lock failed")
	}
	if !locked {
		return c.waitForCache(ctx, meta, path)
	}
	defer func() {
		_ = c.lock.Unlock(ctx, lockKey)
	}()

	// Another invocation may have filled the cache before we got the lock.
	if c.checkDisk(path, meta) {
		return nil
	}

	if err := os.RemoveAll(path); err != nil {
		return appErr.Wrapf(err, appErr.TestDataFetchFailed, "cleanup cache dir failed")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return appErr.Wrapf(err, appErr.TestDataFetchFailed, "create cache dir failed")
	}

	tempPath := filepath.Join(path, tempFileName)
	if err := c.downloadPack(ctx, meta, tempPath); err != nil {
		return err
	}
	if err := extractPack(tempPath, path); err != nil {
		return err
	}
	_ = os.Remove(tempPath)

	metaBytes, _ := json.Marshal(meta)
	if err := os.WriteFile(filepath.Join(path, metaFileName), metaBytes, 0o644); err != nil {
		return appErr.Wrapf(err, appErr.TestDataFetchFailed, "write meta failed")
	}
	return nil
}

// waitForCache polls for the holder of the download lock to finish.
func (c *Cache) waitForCache(ctx context.Context, meta PackMeta, path string) error {
	deadline := time.Now().Add(c.lockWait)
	for {
		if c.checkDisk(path, meta) {
			return nil
		}
		if time.Now().After(deadline) {
			return appErr.New(appErr.Timeout).WithMessage("wait for test data cache timeout")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (c *Cache) downloadPack(ctx context.Context, meta PackMeta, dstPath string) error {
	if meta.PackKey == "" {
		return appErr.ValidationError("pack_key", "required")
	}
	reader, err := c.storage.GetObject(ctx, c.bucket, meta.PackKey)
	if err != nil {
		return appErr.Wrapf(err, appErr.TestDataFetchFailed, "download test data pack failed")
	}
	defer reader.Close()

	file, err := os.Create(dstPath)
	if err != nil {
		return appErr.Wrapf(err, appErr.TestDataFetchFailed, "create pack file failed")
	}
	defer file.Close()

	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)
	if _, err := io.Copy(file, tee); err != nil {
		return appErr.Wrapf(err, appErr.TestDataFetchFailed, "write pack file failed")
	}
	if meta.PackHash != "" {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actual, meta.PackHash) {
			return appErr.New(appErr.TestDataFetchFailed).WithMessage("test data pack hash mismatch")
		}
	}
	return nil
}

func extractPack(srcPath, dstDir string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return appErr.Wrapf(err, appErr.TestDataFetchFailed, "open pack failed")
	}
	defer file.Close()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return appErr.Wrapf(err, appErr.TestDataFetchFailed, "create zstd reader failed")
	}
	defer zstdReader.Close()

	tr := tar.NewReader(zstdReader)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return appErr.Wrapf(err, appErr.TestDataFetchFailed, "read tar entry failed")
		}
		if hdr.Name == "" {
			continue
		}
		cleanName := filepath.Clean(hdr.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return appErr.New(appErr.TestDataFetchFailed).WithMessage("invalid tar entry path")
		}
		target := filepath.Join(dstDir, cleanName)
		if !strings.HasPrefix(target, filepath.Clean(dstDir)+string(filepath.Separator)) {
			return appErr.New(appErr.TestDataFetchFailed).WithMessage("tar entry escape detected")
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return appErr.Wrapf(err, appErr.TestDataFetchFailed, "create dir failed")
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return appErr.Wrapf(err, appErr.TestDataFetchFailed, "create parent dir failed")
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode))
			if err != nil {
				return appErr.Wrapf(err, appErr.TestDataFetchFailed, "create file failed")
			}
			if _, err := io.Copy(out, tr); err != nil {
				_ = out.Close()
				return appErr.Wrapf(err, appErr.TestDataFetchFailed, "write file failed")
			}
			_ = out.Close()
		default:
			// skip other entry types
		}
	}
	return nil
}

func (c *Cache) addEntry(key, path string) {
	size := dirSize(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		c.totalSize -= existing.sizeBytes
	}
	c.entries[key] = &packEntry{
		key:       key,
		path:      path,
		sizeBytes: size,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.totalSize += size
	c.touchLocked(key)
	c.evictLocked()
}

func (c *Cache) touchLocked(key string) {
	for i, k := range c.lruKeys {
		if k == key {
			c.lruKeys = append(c.lruKeys[:i], c.lruKeys[i+1:]...)
			break
		}
	}
	c.lruKeys = append(c.lruKeys, key)
}

func (c *Cache) evictLocked() {
	for {
		if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
			c.removeOldestLocked()
			continue
		}
		if c.maxBytes > 0 && c.totalSize > c.maxBytes {
			c.removeOldestLocked()
			continue
		}
		break
	}
}

func (c *Cache) removeOldestLocked() {
	if len(c.lruKeys) == 0 {
		return
	}
	key := c.lruKeys[0]
	c.lruKeys = c.lruKeys[1:]
	c.removeEntryLocked(key)
}

func (c *Cache) removeEntryLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.totalSize -= entry.sizeBytes
	_ = os.RemoveAll(entry.path)
}

func packKey(contest, problem string) string {
	return fmt.Sprintf("%s:%s", contest, problem)
}

func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}
