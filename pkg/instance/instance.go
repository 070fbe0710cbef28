package instance

import "os"

// GetID returns the process instance identifier used in log lines. Platform
// variables win over the hostname; "local" is the fallback.
func GetID() string {
	for _, key := range []string{"INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
