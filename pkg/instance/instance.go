package instance

import "github.com/angelmondragon/raamul-storefront/pkg/env"

// ID names the running process in logs: an explicit id, the platform dyno, the host, or "local".
func ID() string {
	return env.First("local", "RAAMUL_INSTANCE_ID", "DYNO", "HOSTNAME")
}
