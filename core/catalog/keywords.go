package catalog

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"

	"echofm/logger"

	"github.com/fsnotify/fsnotify"
)

// Corpus holds the discovery keyword list. Reads are frequent (every feed
// request draws from it), writes only happen when a keyword file is edited.
type Corpus struct {
	mu       sync.RWMutex
	keywords []string
}

// NewCorpus builds a corpus from the given keywords. The feed needs at
// least two distinct terms.
func NewCorpus(keywords []string) *Corpus {
	return &Corpus{keywords: append([]string(nil), keywords...)}
}

// Keywords returns a snapshot of the current keyword list.
func (c *Corpus) Keywords() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.keywords...)
}

// Len returns the number of keywords.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keywords)
}

// LoadFile replaces the corpus with the contents of path: one keyword per
// line, blank lines and #-comments ignored. Files yielding fewer than two
// keywords are rejected so the feed always has a pair to draw.
func (c *Corpus) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var keywords []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(keywords) < 2 {
		logger.Warn("Keyword file has fewer than two entries, keeping current corpus",
			logger.String("path", path), logger.Int("count", len(keywords)))
		return nil
	}

	c.mu.Lock()
	c.keywords = keywords
	c.mu.Unlock()

	logger.Info("Feed keyword corpus reloaded",
		logger.String("path", path), logger.Int("count", len(keywords)))
	return nil
}

// Watch reloads the corpus whenever the keyword file changes, until ctx is
// cancelled.
func (c *Corpus) Watch(ctx context.Context, path string) error {
	if err := c.LoadFile(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if err := c.LoadFile(path); err != nil {
						logger.Warn("Failed to reload keyword file",
							logger.String("path", path), logger.ErrorField(err))
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Keyword file watcher error", logger.ErrorField(err))
			}
		}
	}()

	return nil
}
