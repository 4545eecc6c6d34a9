package config

import (
	"strings"
	"time"
)

// UnspecifiedVersion is treated like an empty version.
const UnspecifiedVersion = "unspecified"

// DateLayout is the layout of the build_date variable.
const DateLayout = "2006-01-02 15:04:05"

// ResolveVersion returns version, or a prerelease version derived from the
// build time when version is empty or unspecified.
func ResolveVersion(version string, at time.Time) string {
	v := strings.TrimSpace(version)
	if v == "" || v == UnspecifiedVersion {
		return "0." + at.Format("20060102.150405")
	}
	return v
}

// BuildDate formats t with DateLayout.
func BuildDate(t time.Time) string {
	return t.Format(DateLayout)
}
