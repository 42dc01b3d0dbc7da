// Package logwatch tails the game client's Player.log and hands new lines to
// a consumer callback. The game truncates the file on restart, so the reader
// resets its offset whenever the file shrinks.
package logwatch

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LogWatcher monitors one game log file for new content.
type LogWatcher struct {
	LogPath  string
	offset   int64
	watcher  *fsnotify.Watcher
	done     chan struct{}
	mu       sync.Mutex
	readMu   sync.Mutex
	stopOnce sync.Once

	cleanLogPath string
	onNewLines   func(lines []string, startOffset, endOffset int64)
	onError      func(err error)
}

type Config struct {
	OnNewLines func(lines []string, startOffset, endOffset int64)
	OnError    func(err error)
}

// New creates a watcher for the given log file path.
func New(logPath string, cfg Config) (*LogWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &LogWatcher{
		LogPath:      logPath,
		watcher:      w,
		done:         make(chan struct{}),
		cleanLogPath: filepath.Clean(logPath),
		onNewLines:   cfg.OnNewLines,
		onError:      cfg.OnError,
	}, nil
}

// StartWatching creates and starts a watcher in one call and returns its stop
// handle. This is the shape the load coordinator consumes.
func StartWatching(logPath string, cfg Config) (func(), error) {
	lw, err := New(logPath, cfg)
	if err != nil {
		return nil, err
	}
	if err := lw.Start(); err != nil {
		lw.Stop()
		return nil, err
	}
	return lw.Stop, nil
}

// Start begins watching for file changes.
func (lw *LogWatcher) Start() error {
	slog.Info("watcher starting", "path", lw.LogPath)
	// Watch the directory (more reliable than watching file directly)
	dir := filepath.Dir(lw.LogPath)
	if err := lw.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	// Read existing content first only when no explicit offset is set.
	// This keeps caller-specified offsets (e.g. EOF after initial import).
	if lw.offset == 0 {
		if err := lw.readNewContent(); err != nil {
			_ = err // non-fatal
		}
	}

	go lw.watchLoop()
	return nil
}

// Stop stops the watcher.
func (lw *LogWatcher) Stop() {
	lw.stopOnce.Do(func() {
		slog.Info("watcher stopped", "path", lw.LogPath)
		close(lw.done)
		_ = lw.watcher.Close()
	})
}

// SetOffset sets the initial read offset (for resuming).
func (lw *LogWatcher) SetOffset(offset int64) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.offset = offset
}

func (lw *LogWatcher) watchLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-lw.done:
			return
		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if filepath.Clean(event.Name) == lw.cleanLogPath {
					if err := lw.readNewContent(); err != nil && lw.onError != nil {
						lw.onError(err)
					}
				}
			}
		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			if lw.onError != nil {
				lw.onError(err)
			}
		case <-ticker.C:
			// Periodic poll as fallback
			if err := lw.readNewContent(); err != nil && lw.onError != nil {
				lw.onError(err)
			}
		}
	}
}

func (lw *LogWatcher) readNewContent() error {
	lw.readMu.Lock()
	defer lw.readMu.Unlock()

	f, err := os.Open(lw.LogPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()
	// The client truncates Player.log on restart.
	if info.Size() < lw.offset {
		lw.offset = 0
	}
	if info.Size() <= lw.offset {
		return nil // No new content
	}
	startOffset := lw.offset

	if _, err := f.Seek(startOffset, 0 /* io.SeekStart */); err != nil {
		return err
	}

	endOffset := info.Size()
	lw.offset = endOffset

	// Stream lines without loading the entire new content into memory at once.
	lines := make([]string, 0, 512)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(lines) > 0 && lw.onNewLines != nil {
		slog.Debug("new data detected", "path", lw.LogPath, "lines", len(lines))
		lw.onNewLines(lines, startOffset, endOffset)
	}

	return nil
}

// DefaultLogPath returns the OS-specific location of the game client's
// Player.log, or an error when no known location exists on this platform.
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "LocalLow", "Wizards Of The Coast", "MTGA", "Player.log"), nil
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "Wizards Of The Coast", "MTGA", "Player.log"), nil
	case "linux":
		// Steam Proton prefix
		return filepath.Join(home, ".local", "share", "Steam", "steamapps", "compatdata", "2141910", "pfx", "drive_c", "users", "steamuser", "AppData", "LocalLow", "Wizards Of The Coast", "MTGA", "Player.log"), nil
	default:
		return "", fmt.Errorf("no known log location for %s", runtime.GOOS)
	}
}
