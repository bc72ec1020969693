// Package cache persists extraction results so unchanged logs are not parsed twice.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/explog-analyzer/explog/internal/models"
	"github.com/explog-analyzer/explog/internal/parser"
)

const (
	snapshotExt = ".msgpack.zst"
	// formatVersion is bumped whenever the snapshot layout or extraction output changes.
	formatVersion = 1
)

// Entry is one cached extraction.
type Entry struct {
	Version  int                  `msgpack:"version"`
	Log      *models.ParsedLog    `msgpack:"log"`
	Warnings []*models.ParseError `msgpack:"warnings"`
}

// Cache stores snapshots as zstd-compressed msgpack files keyed by a fingerprint of the log
// file and the extraction options.
type Cache struct {
	dir    string
	logger *zap.Logger

	mu sync.RWMutex
	// index tracks known keys (key -> snapshot path)
	index map[string]string
}

// New opens (creating if needed) a cache in dir and indexes existing snapshots.
func New(dir string, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	c := &Cache{
		dir:    dir,
		logger: logger.Named("cache"),
		index:  make(map[string]string),
	}
	c.scanExisting()
	return c, nil
}

func (c *Cache) scanExisting() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn("failed to scan cache directory", zap.Error(err))
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		c.index[strings.TrimSuffix(name, snapshotExt)] = filepath.Join(c.dir, name)
	}
	c.logger.Debug("scanned existing snapshots", zap.Int("count", len(c.index)))
}

// Key fingerprints path (size and modification time) together with opts. Any change to the
// file or the options produces a different key.
func (c *Cache) Key(path string, opts parser.Options) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &models.FileReadError{Path: path, Err: err}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	h := xxhash.New()
	fmt.Fprintf(h, "v%d\x00%s\x00%d\x00%d\x00", formatVersion, abs, info.Size(), info.ModTime().UnixNano())
	fmt.Fprintf(h, "%q\x00%t\x00%q\x00%d\x00%t",
		opts.ConfigKeys, opts.ExtractClientAccuracy, opts.AlgorithmPrefix, opts.AlgorithmScanLines, opts.StrictRounds)
	return strconv.FormatUint(h.Sum64(), 16), nil
}

func (c *Cache) snapshotPath(key string) string {
	return filepath.Join(c.dir, key+snapshotExt)
}

// Get returns the snapshot for key. A missing or unreadable snapshot is a miss.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.RLock()
	path, ok := c.index[key]
	c.mu.RUnlock()
	if !ok {
		path = c.snapshotPath(key)
	}

	entry, err := readSnapshot(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("discarding unreadable snapshot", zap.String("key", key), zap.Error(err))
			_ = c.Delete(key)
		} else if ok {
			c.mu.Lock()
			delete(c.index, key)
			c.mu.Unlock()
		}
		return nil, false
	}
	if entry.Version != formatVersion {
		_ = c.Delete(key)
		return nil, false
	}

	c.mu.Lock()
	c.index[key] = path
	c.mu.Unlock()
	return entry, true
}

// Put stores log and warnings under key, replacing any previous snapshot.
func (c *Cache) Put(key string, log *models.ParsedLog, warnings []*models.ParseError) error {
	path := c.snapshotPath(key)
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeSnapshot(tmp, &Entry{Version: formatVersion, Log: log, Warnings: warnings}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	c.mu.Lock()
	c.index[key] = path
	c.mu.Unlock()
	c.logger.Debug("stored snapshot", zap.String("key", key), zap.String("source", log.Source))
	return nil
}

// Delete removes the snapshot for key.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	delete(c.index, key)
	c.mu.Unlock()

	if err := os.Remove(c.snapshotPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// List returns all known keys, sorted.
func (c *Cache) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.index))
	for k := range c.index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stats summarises the cache contents.
type Stats struct {
	Count     int    `json:"count"`
	TotalSize int64  `json:"totalSize"`
	Dir       string `json:"dir"`
}

// Stats returns statistics about the cache, dropping index entries whose file vanished.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for key, path := range c.index {
		if info, err := os.Stat(path); err == nil {
			total += info.Size()
		} else {
			delete(c.index, key)
		}
	}
	return Stats{Count: len(c.index), TotalSize: total, Dir: c.dir}
}

func writeSnapshot(f *os.File, entry *Entry) error {
	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(zw).Encode(entry); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func readSnapshot(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	dec := msgpack.NewDecoder(zr)
	dec.UseLooseInterfaceDecoding(true)

	entry := &Entry{}
	if err := dec.Decode(entry); err != nil {
		return nil, err
	}
	if entry.Log == nil {
		return nil, fmt.Errorf("snapshot has no log")
	}
	normalise(entry.Log)
	return entry, nil
}

// normalise restores the in-memory types a fresh parse produces.
func normalise(log *models.ParsedLog) {
	if log.Summary == nil {
		log.Summary = make(models.ConfigSummary)
	}
	if log.Rounds == nil {
		log.Rounds = make([]models.RoundRecord, 0)
	}
	for _, rec := range log.Rounds {
		if n, ok := rec.Round(); ok {
			rec[models.KeyRound] = n
		}
	}
}
