package notify

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultThreadSleep bounds the drain loop's stop-check cadence, default
// 250ms.
const defaultThreadSleep = 250 * time.Millisecond

// notifyBase holds the policy shared by every backend regardless of which
// kernel mechanism it wraps — stop flag, ignore lists, event queue, and the
// recursive-directory-walk helper. It owns nothing kernel-specific; backends
// embed it and call into it from their drain loops and Watch*/Unwatch
// methods.
type notifyBase struct {
	queue *eventQueue

	stopOnce sync.Once
	stopCh   chan struct{}

	mu          sync.Mutex
	ignored     map[string]struct{}
	ignoredOnce map[string]struct{}
	globs       []string

	threadSleep time.Duration

	errMu   sync.Mutex
	fatal   error
}

func newNotifyBase(queueCapacity int) *notifyBase {
	return &notifyBase{
		queue:       newEventQueue(queueCapacity),
		stopCh:      make(chan struct{}),
		ignored:     make(map[string]struct{}),
		ignoredOnce: make(map[string]struct{}),
		threadSleep: defaultThreadSleep,
	}
}

// Stop flips the stop flag exactly once; subsequent calls are no-ops. The
// flag transitions to true exactly once per controller and never back.
func (b *notifyBase) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

func (b *notifyBase) Stopped() bool {
	select {
	case <-b.stopCh:
		return true
	default:
		return false
	}
}

func (b *notifyBase) StopChan() <-chan struct{} { return b.stopCh }

// setFatal records the drain loop's terminal error (first one wins) and
// stops the backend. An unhandled error inside the drain loop itself is
// fatal to Run: stop is set and the error surfaces to the caller.
func (b *notifyBase) setFatal(err error) {
	if err == nil {
		return
	}
	b.errMu.Lock()
	if b.fatal == nil {
		b.fatal = err
	}
	b.errMu.Unlock()
	b.Stop()
}

// Err returns the drain loop's recorded fatal error, if any.
func (b *notifyBase) Err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.fatal
}

// Ignore appends path to the permanent ignore list.
func (b *notifyBase) Ignore(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ignored[path] = struct{}{}
}

// IgnoreOnce appends path to the one-shot ignore list.
func (b *notifyBase) IgnoreOnce(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ignoredOnce[path] = struct{}{}
}

// IgnoreGlob supplements the exact-path ignore lists with a doublestar glob
// pattern, matched against delivered paths by shouldDropEvent. This is
// additive: IsIgnored keeps its exact-match-only contract (tests rely on
// it never doing prefix matching), so IgnoreGlob is consulted only by the
// drain-time filter, never by IsIgnored itself.
func (b *notifyBase) IgnoreGlob(pattern string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.globs = append(b.globs, pattern)
}

// IsIgnored is an exact-path membership test; it never mutates state.
func (b *notifyBase) IsIgnored(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.ignored[path]
	return ok
}

// IsIgnoredOnce reports whether path is on the one-shot list, removing it on
// the first query that matches.
func (b *notifyBase) IsIgnoredOnce(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.ignoredOnce[path]; ok {
		delete(b.ignoredOnce, path)
		return true
	}
	return false
}

func (b *notifyBase) isGlobIgnored(path string) bool {
	b.mu.Lock()
	globs := append([]string(nil), b.globs...)
	b.mu.Unlock()
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}

// shouldDropEvent applies every drain-time filter in one place: permanent
// ignore, one-shot ignore (consuming it), and glob ignore. Backends call
// this once per candidate event before enqueueing it.
func (b *notifyBase) shouldDropEvent(path string) bool {
	if b.IsIgnored(path) {
		return true
	}
	if b.isGlobIgnored(path) {
		return true
	}
	// IsIgnoredOnce must be evaluated even when the above are false, since
	// it has a side effect (consuming the entry) that must happen exactly
	// once regardless of match order.
	return b.IsIgnoredOnce(path)
}

// CheckWatchFile validates that path exists and is a regular file. It
// returns (false, nil) if path is permanently ignored — a false return
// always and only means "skip silently because of a permanent ignore",
// while every other failure mode is a typed error.
func (b *notifyBase) CheckWatchFile(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, fmtPathMissing(path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		info, err = os.Stat(path)
		if err != nil {
			return false, fmtPathMissing(path, err)
		}
	}
	if !info.Mode().IsRegular() {
		return false, fmtNotAFile(path)
	}
	if b.IsIgnored(path) {
		return false, nil
	}
	return true, nil
}

// CheckWatchDirectory validates path must exist and be a directory.
func (b *notifyBase) CheckWatchDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmtPathMissing(path, err)
	}
	if !info.IsDir() {
		return false, fmtNotADirectory(path)
	}
	if b.IsIgnored(path) {
		return false, nil
	}
	return true, nil
}

// WatchPathRecursively walks root depth-first and calls watchFile for every
// regular-file entry that passes CheckWatchFile. It deliberately does not
// install watches on intermediate directories (unless the backend's own
// watchFile implementation requires that internally) and does not re-walk
// on later create events: newly created files inside an already-recursed
// tree are not auto-watched.
//
// mask is decomposed into its constituent atoms (FileSystemEvent.Decompose)
// and watchFile is called once per atom per entry rather than once with the
// whole composite: this mirrors inotify's IN_MASK_ADD semantics, where each
// call ORs its atom onto whatever mask the entry already carries, so a
// single unsupported atom in mask fails only that atom's call instead of
// the entry's entire subscription. An entry for which every atom fails with
// ErrUnsupportedEvent ends the walk with that error.
func (b *notifyBase) WatchPathRecursively(root string, mask Event, watchFile func(path string, mask Event) error) error {
	ok, err := b.CheckWatchDirectory(root)
	if err != nil {
		return err
	}
	if !ok {
		return nil // permanently ignored root: skip silently.
	}

	fse := FileSystemEvent{Path: root, Flag: mask}
	atoms := fse.Decompose()

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		allowed, err := b.CheckWatchFile(path)
		if err != nil {
			// A file can vanish between WalkDir's stat and ours (race with
			// the filesystem); that's not a hard error for the whole walk.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !allowed {
			return nil
		}
		var unsupported error
		watchedAny := false
		for _, atom := range atoms {
			err := watchFile(path, atom.Flag)
			if errors.Is(err, ErrUnsupportedEvent) {
				unsupported = err
				continue
			}
			if err != nil {
				return err
			}
			watchedAny = true
		}
		if !watchedAny && unsupported != nil {
			return unsupported
		}
		return nil
	})
}

func fmtPathMissing(path string, cause error) error {
	return wrapf(ErrPathMissing, "%s: %v", path, cause)
}

func fmtNotAFile(path string) error {
	return wrapf(ErrNotAFile, "%s", path)
}

func fmtNotADirectory(path string) error {
	return wrapf(ErrNotADirectory, "%s", path)
}
