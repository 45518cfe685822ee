//go:build !(linux || darwin || freebsd || openbsd)

package dframe

func freeDiskSpace(string) (int64, bool) { return 0, false }
