//go:build linux

package notify

import "github.com/syndtr/gocapability/capability"

// hasCapSysAdmin reports whether the running process holds CAP_SYS_ADMIN in
// its effective set, the privilege fanotify's mount-scope marks require
// (FAN_MARK_MOUNT / FAN_MARK_FILESYSTEM, see fanotify(7)).
func hasCapSysAdmin() bool {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return false
	}
	if err := caps.Load(); err != nil {
		return false
	}
	return caps.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN)
}
