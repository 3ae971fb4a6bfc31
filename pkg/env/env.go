package env

import "os"

// Get returns the value of the given environment variable or a fallback.
// Kept for the few reads that happen before config.Load, such as the
// logger picking its output format.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
