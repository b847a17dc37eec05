// Tollgate enforces per-tenant request quotas and runs the scheduled
// maintenance that keeps them honest: the monthly usage reset and the
// audit log retention cleanup.
//
// Usage:
//
//	# Start the scheduler with default configuration
//	tollgate run
//
//	# Start with a configuration file
//	tollgate run --config /etc/tollgate/config.yaml
//
//	# Reset every active tenant's monthly usage now
//	tollgate reset
//
//	# Delete audit records past the retention window now
//	tollgate cleanup
//
//	# Show the job schedule projection
//	tollgate status --output json
package main

import "os"

func main() {
	os.Exit(Execute())
}
