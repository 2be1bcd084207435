//go:build !windows && !darwin

package internal

// platformLocale has nothing beyond the environment to offer on Unix.
func platformLocale() string {
	return ""
}
