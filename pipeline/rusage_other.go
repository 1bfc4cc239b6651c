//go:build !unix

package pipeline

import "os"

func usageFromState(state *os.ProcessState) Usage {
	var u Usage

	if state == nil {
		return u
	}

	// CPU times are portable; peak RSS is not reported off unix.
	user := state.UserTime().Nanoseconds()
	system := state.SystemTime().Nanoseconds()
	u.CPUUserNS = &user
	u.CPUSystemNS = &system

	return u
}

func selfRusage() (user, system int64, peakRSS *uint64, ok bool) {
	return 0, 0, nil, false
}
