package source

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounceDelay = 100 * time.Millisecond

// FileWatcher reports changes to individual files. It watches the parent
// directories so that files replaced by rename (as the store saves them)
// stay watched.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]time.Time
	dirs     map[string]int
	onChange func(string)
	log      zerolog.Logger
	mu       sync.RWMutex
	done     chan struct{}
	once     sync.Once
}

func NewFileWatcher(onChange func(string), log zerolog.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher:  watcher,
		files:    make(map[string]time.Time),
		dirs:     make(map[string]int),
		onChange: onChange,
		log:      log,
		done:     make(chan struct{}),
	}

	go fw.watch()
	return fw, nil
}

func (fw *FileWatcher) AddFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, exists := fw.files[absPath]; exists {
		return nil // Already watching
	}

	dir := filepath.Dir(absPath)
	if fw.dirs[dir] == 0 {
		if err := fw.watcher.Add(dir); err != nil {
			return err
		}
	}
	fw.dirs[dir]++
	fw.files[absPath] = time.Now()
	return nil
}

func (fw *FileWatcher) RemoveFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, exists := fw.files[absPath]; !exists {
		return nil // Not watching
	}
	delete(fw.files, absPath)

	dir := filepath.Dir(absPath)
	fw.dirs[dir]--
	if fw.dirs[dir] <= 0 {
		delete(fw.dirs, dir)
		return fw.watcher.Remove(dir)
	}
	return nil
}

func (fw *FileWatcher) watching(path string) bool {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	_, ok := fw.files[path]
	return ok
}

func (fw *FileWatcher) watch() {
	var debounceMu sync.Mutex
	debounce := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			if !fw.watching(name) {
				continue
			}

			// Debounce rapid events
			debounceMu.Lock()
			if timer, exists := debounce[name]; exists {
				timer.Stop()
			}
			debounce[name] = time.AfterFunc(debounceDelay, func() {
				debounceMu.Lock()
				delete(debounce, name)
				debounceMu.Unlock()

				select {
				case <-fw.done:
					return
				default:
				}
				if fw.onChange != nil && fw.watching(name) {
					fw.onChange(name)
				}
			})
			debounceMu.Unlock()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warn().Err(err).Msg("file watcher error")

		case <-fw.done:
			return
		}
	}
}

func (fw *FileWatcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.done)
		err = fw.watcher.Close()
	})
	return err
}
