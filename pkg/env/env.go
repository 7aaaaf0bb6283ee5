package env

import "os"

// GetOr reads an environment variable, falling back when it is unset or empty.
func GetOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
