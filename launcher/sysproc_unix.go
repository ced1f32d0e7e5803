//go:build unix

package launcher

import "syscall"

// detachedAttr puts the child in a new session so signals aimed at the broker's
// process group do not reach it.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
