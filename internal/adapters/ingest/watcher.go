package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// messageExt is the extension of message files picked up by the watcher
	messageExt = ".eml"
	// defaultSettle is how long a new file must go without writes before it is read
	defaultSettle = 500 * time.Millisecond
)

// DirWatcher threads every .eml file present in, written to or moved into a
// directory. A file is read once it has gone quiet for the settle interval;
// empty files wait for their content.
type DirWatcher struct {
	processor Processor
	logger    *zap.Logger
	dir       string
	settle    time.Duration

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDirWatcher creates a new directory ingester
func NewDirWatcher(processor Processor, logger *zap.Logger, dir string) *DirWatcher {
	return &DirWatcher{
		processor: processor,
		logger:    logger,
		dir:       dir,
		settle:    defaultSettle,
		seen:      make(map[string]struct{}),
	}
}

// Start processes the files already in the directory and starts watching it
func (w *DirWatcher) Start() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.watcher = watcher

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	existing, err := filepath.Glob(filepath.Join(w.dir, "*"+messageExt))
	if err != nil {
		cancel()
		_ = watcher.Close()
		return fmt.Errorf("failed to list %s: %w", w.dir, err)
	}
	sort.Strings(existing)

	w.logger.Info("Directory watcher starting",
		zap.String("dir", w.dir),
		zap.Int("existing_files", len(existing)))

	go func() {
		defer close(w.done)
		for _, path := range existing {
			if ctx.Err() != nil {
				return
			}
			w.processFile(ctx, path)
		}
		w.loop(ctx)
	}()

	return nil
}

func (w *DirWatcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	// pending holds the time of the last write seen for each file
	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Ext(event.Name), messageExt) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pending[event.Name] = time.Now()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}
		case <-ticker.C:
			for path, last := range pending {
				if time.Since(last) < w.settle {
					continue
				}
				delete(pending, path)
				w.processFile(ctx, path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Filesystem watcher error", zap.Error(err))
		}
	}
}

func (w *DirWatcher) processFile(ctx context.Context, path string) {
	w.mu.Lock()
	_, done := w.seen[path]
	w.mu.Unlock()
	if done {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		w.logger.Error("Failed to read message file", zap.String("path", path), zap.Error(err))
		return
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		w.logger.Debug("Message file is empty, waiting for content", zap.String("path", path))
		return
	}

	w.mu.Lock()
	w.seen[path] = struct{}{}
	w.mu.Unlock()

	res, err := w.processor.Process(ctx, raw)
	if err != nil {
		w.logger.Error("Failed to process message file", zap.String("path", path), zap.Error(err))
		return
	}

	w.logger.Debug("Message file threaded",
		zap.String("path", path),
		zap.String("message_id", res.MessageID),
		zap.String("thread_id", res.ThreadID))
}

// Stop stops watching and waits for the file being processed
func (w *DirWatcher) Stop() error {
	if w.watcher == nil {
		return nil
	}
	w.cancel()
	<-w.done
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close filesystem watcher: %w", err)
	}
	return nil
}

// Name returns the ingester name
func (w *DirWatcher) Name() string {
	return "watch"
}
