// Package version reports the pawgate build version.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Override is set with -ldflags "-X .../version.Override=v1.2.3" by release builds.
var Override string

// Get returns the current version, with whitespace trimmed
func Get() string {
	if Override != "" {
		return Override
	}
	return strings.TrimSpace(versionContent)
}
