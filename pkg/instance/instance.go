package instance

import (
	"os"

	"github.com/angelmondragon/cheetah-storefront/pkg/env"
)

// GetID identifies this process in logs: CHEETAH_INSTANCE_ID, then the
// platform dyno name, then the hostname.
func GetID() string {
	if id := env.Get("CHEETAH_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
