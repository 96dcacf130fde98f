package notify

import (
	"fmt"

	"github.com/google/uuid"
)

// FileSystemEvent pairs an absolute path with an Event flag.
//
// When constructed as a subscription request (passed into WatchFile,
// WatchDirectory, ...) Flag may be a composite, e.g. Close or a custom
// union; the backend decomposes it into the atoms it can express. When
// emitted from a backend's drain loop, Flag is always a single atomic
// Event — see Event.IsAtomic.
type FileSystemEvent struct {
	Path string
	Flag Event
}

// NewFileSystemEvent constructs a FileSystemEvent, validating that path is
// non-empty.
func NewFileSystemEvent(path string, flag Event) (FileSystemEvent, error) {
	if path == "" {
		return FileSystemEvent{}, fmt.Errorf("notify: %w", ErrPathMissing)
	}
	return FileSystemEvent{Path: path, Flag: flag}, nil
}

// Decompose splits a (possibly composite) subscription Flag into its
// constituent atoms. The recursive expander (base.go) uses it to hand each
// backend one atom at a time.
func (e FileSystemEvent) Decompose() []FileSystemEvent {
	atoms := e.Flag.Atoms()
	out := make([]FileSystemEvent, 0, len(atoms))
	for _, a := range atoms {
		out = append(out, FileSystemEvent{Path: e.Path, Flag: a})
	}
	return out
}

func (e FileSystemEvent) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Flag)
}

// Notification is the value form delivered to observer callbacks. It carries
// FileSystemEvent's Path and Flag plus an ID, kept as a distinct type so
// further fields (time, pid) can be added without disturbing FileSystemEvent's
// narrower contract. ID is a per-notification identifier useful for
// correlating a delivered callback invocation with debug-log output.
type Notification struct {
	Path string
	Flag Event
	ID   uuid.UUID
}

// notificationFrom builds the surface Notification from an internal
// FileSystemEvent, stamping a fresh correlation ID.
func notificationFrom(fse FileSystemEvent) Notification {
	return Notification{Path: fse.Path, Flag: fse.Flag, ID: uuid.New()}
}

func (n Notification) String() string {
	return fmt.Sprintf("%s [%s]: %s", n.Path, n.ID, n.Flag)
}
