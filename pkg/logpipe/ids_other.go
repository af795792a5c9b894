//go:build !linux

package logpipe

// gettid has no portable equivalent; records carry 0.
func gettid() int {
	return 0
}
