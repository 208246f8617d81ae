package speech

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"
)

// Store persists synthesized speech by cache key.
type Store interface {
	Get(ctx context.Context, key string) (*SpeechWithTimestamps, bool, error)
	Put(ctx context.Context, key string, s *SpeechWithTimestamps) error
}

// CacheKey hashes the namespace (voice, model) and the text.
func CacheKey(namespace, text string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// CachedSynthesizer returns stored results before calling the wrapped
// synthesizer. Concurrent requests for the same text share one call.
type CachedSynthesizer struct {
	next      Synthesizer
	store     Store
	namespace string
	logger    zerolog.Logger
	group     singleflight.Group
}

func NewCachedSynthesizer(next Synthesizer, store Store, namespace string, logger zerolog.Logger) *CachedSynthesizer {
	return &CachedSynthesizer{
		next:      next,
		store:     store,
		namespace: namespace,
		logger:    logger.With().Str("component", "tts-cache").Logger(),
	}
}

func (c *CachedSynthesizer) Synthesize(ctx context.Context, text string) (*SpeechWithTimestamps, error) {
	key := CacheKey(c.namespace, text)

	s, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		c.logger.Debug().Str("key", key).Msg("cache hit")
		return s, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		s, err := c.next.Synthesize(ctx, text)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(ctx, key, s); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SpeechWithTimestamps), nil
}

// FileStore keeps one JSON document per key in Dir.
type FileStore struct {
	Dir string
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.Dir, key+".json")
}

func (f *FileStore) Get(_ context.Context, key string) (*SpeechWithTimestamps, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var s SpeechWithTimestamps
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return &s, true, nil
}

func (f *FileStore) Put(_ context.Context, key string, s *SpeechWithTimestamps) error {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(key))
}

// SQLiteStore keeps entries in a single key-value table.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS tts_cache (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*SpeechWithTimestamps, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM tts_cache WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var sp SpeechWithTimestamps
	if err := json.Unmarshal(payload, &sp); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return &sp, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, sp *SpeechWithTimestamps) error {
	payload, err := json.Marshal(sp)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO tts_cache (key, payload, created_at)
		VALUES (?, ?, ?)`,
		key, payload, time.Now().Unix())
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
