package notify

// backend is the contract every native adapter (inotify, fanotify, kqueue)
// implements identically, so Controller can drive any of them through the
// same surface: a single interface with one concrete implementation
// selected per OS build, rather than an inheritance hierarchy.
type backend interface {
	// WatchFile validates path is a regular file, translates mask through
	// this backend's translator, and registers it with the kernel.
	WatchFile(path string, mask Event) error

	// WatchDirectory is like WatchFile but requires path to be a directory.
	// It does not recurse; recursion is handled above this layer (base.go).
	WatchDirectory(path string, mask Event) error

	// WatchMountPoint uses a mount-scope marker. Only the fanotify backend
	// implements this; inotify and kqueue return ErrUnsupportedOp.
	WatchMountPoint(path string, mask Event) error

	// Unwatch finds path by reverse lookup, deregisters it with the
	// kernel, and removes the bookkeeping entry. Not recursive.
	Unwatch(path string) error

	// NextEvent blocks until an event is available or the stop flag is
	// observed, in which case it returns (FileSystemEvent{}, false).
	NextEvent() (FileSystemEvent, bool)

	// Stop sets the stop flag; safe to call from any goroutine, any number
	// of times.
	Stop()

	// Close releases every watch and closes the native descriptor(s). Safe
	// to call more than once.
	Close() error

	// WatchList returns every path currently registered.
	WatchList() []string

	// WatchPathRecursively walks path depth-first and installs a file
	// watch on every regular-file entry beneath it.
	WatchPathRecursively(path string, mask Event) error

	// Ignore, IgnoreOnce, IgnoreGlob delegate to the embedded notifyBase
	// that every backend carries.
	Ignore(path string)
	IgnoreOnce(path string)
	IgnoreGlob(pattern string)

	// Err returns the drain loop's fatal error, if any. Checked by
	// Controller.Run/RunOnce after NextEvent reports the backend stopped.
	Err() error
}
