package notify

// FanotifyClass selects the fanotify_init notification class. Notify-only
// consumers never need anything but FanotifyClassNotif; the content classes
// exist for callers that need the kernel to block the triggering operation
// until this process responds — a capability this package does not yet
// decode into the Event vocabulary, so FanotifyClassContent/PreContent open
// the fanotify fd in the right mode but permission events are not currently
// surfaced as atoms. Declared without a build tag since FanotifyController's
// signature must exist on every platform, even where fanotify itself
// cannot be constructed.
type FanotifyClass int

const (
	// FanotifyClassNotif is notification-only: the kernel never blocks
	// the triggering operation waiting for this process.
	FanotifyClassNotif FanotifyClass = iota
	// FanotifyClassContent blocks the operation until this process
	// responds, with a view of the file's final content.
	FanotifyClassContent
	// FanotifyClassPreContent is like Content but runs before the
	// operation is allowed to proceed, for callers that want to
	// transform content before it's read (e.g. on-demand decompression).
	FanotifyClassPreContent
)
