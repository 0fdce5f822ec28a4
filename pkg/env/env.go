package env

import "os"

// Get reads an environment variable, falling back when it is unset or blank.
// Blank counts as unset so an empty export cannot wipe out a default.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
