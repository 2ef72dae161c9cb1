package api

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// MinServerVersion is the oldest backend this client speaks to.
const MinServerVersion = "v1.0.0"

// CheckCompatibility reports whether a server advertising version can be used.
// The version must be at least MinServerVersion and share its major version.
func CheckCompatibility(version string) error {
	v := strings.TrimSpace(version)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid server version %q", version)
	}
	if semver.Major(v) != semver.Major(MinServerVersion) || semver.Compare(v, MinServerVersion) < 0 {
		return &IncompatibleServerError{Version: version, Minimum: MinServerVersion}
	}
	return nil
}
