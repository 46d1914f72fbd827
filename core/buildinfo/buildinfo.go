// Package buildinfo carries version stamps injected with -ldflags, e.g.
//
//	-X 'github.com/m3rciful/sheetbot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/sheetbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/sheetbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "local"
	// Date is RFC3339; empty in local builds.
	Date = ""
)

// String renders the stamps for the startup banner.
func String() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
