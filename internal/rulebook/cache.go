package rulebook

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Shin-ichiroh/Manuscript-review/internal/logger"
)

// Cache keeps the vectorized chunks of rulebooks per path. A rulebook is
// reparsed only when its content hash changes.
type Cache struct {
	opts   Options
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]cachedRulebook
}

type cachedRulebook struct {
	hash   string
	chunks []Chunk
}

// NewCache returns an empty cache parsing with opts.
func NewCache(opts Options, l *zap.Logger) *Cache {
	return &Cache{
		opts:    opts,
		logger:  logger.OrNop(l),
		entries: make(map[string]cachedRulebook),
	}
}

// Chunks loads the rulebook at path and returns its vectorized chunks. The
// returned slice is shared between callers and must not be modified.
func (c *Cache) Chunks(path string) ([]Chunk, error) {
	content, err := Load(path)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(content))
	hash := fmt.Sprintf("%x", sum[:])

	c.mu.RLock()
	if existing, ok := c.entries[path]; ok && existing.hash == hash {
		c.mu.RUnlock()
		return existing.chunks, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[path]; ok && existing.hash == hash {
		return existing.chunks, nil
	}

	chunks := Vectorize(ParseWithOptions(content, c.opts))
	c.entries[path] = cachedRulebook{hash: hash, chunks: chunks}

	c.logger.Debug("rulebook parsed",
		zap.String(logger.FieldRulebook, path),
		zap.Int("chunks", len(chunks)),
		zap.Int("sections", len(Sections(chunks))),
	)

	return chunks, nil
}
