package env

import "os"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// Bool reports whether the variable holds a truthy value.
func Bool(key string) bool {
	switch Get(key, "") {
	case "1", "true", "TRUE", "True", "yes":
		return true
	default:
		return false
	}
}
