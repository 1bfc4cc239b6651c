//go:build unix

package pipeline

import (
	"os"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// maxRSSBytes normalizes the platform maxrss unit. Linux and the BSDs
// report kibibytes; darwin reports bytes.
func maxRSSBytes(maxrss int64) uint64 {
	if runtime.GOOS == "darwin" {
		return uint64(maxrss)
	}

	return uint64(maxrss) * 1024
}

func usageFromState(state *os.ProcessState) Usage {
	var u Usage

	if state == nil {
		return u
	}

	user := state.UserTime().Nanoseconds()
	system := state.SystemTime().Nanoseconds()
	u.CPUUserNS = &user
	u.CPUSystemNS = &system

	if ru, ok := state.SysUsage().(*syscall.Rusage); ok && ru != nil {
		rss := maxRSSBytes(int64(ru.Maxrss))
		u.PeakRSSBytes = &rss
	}

	return u
}

// selfRusage samples the calling process's cumulative CPU time and peak
// resident set, for in-process phase runners.
func selfRusage() (user, system int64, peakRSS *uint64, ok bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, 0, nil, false
	}

	user = ru.Utime.Nano()
	system = ru.Stime.Nano()
	rss := maxRSSBytes(int64(ru.Maxrss))

	return user, system, &rss, true
}
