// Package misc holds small facts shared across the program that do not
// belong to any single subsystem.
package misc

const appName = "transfuse"

// GetAppName returns the program name used for temp file prefixes, logger
// naming and default config file lookups.
func GetAppName() string {
	return appName
}
