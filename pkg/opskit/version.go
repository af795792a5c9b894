package opskit

import (
	"fmt"

	"github.com/bft-labs/opskit/pkg/health"
	"github.com/bft-labs/opskit/pkg/label"
	"github.com/bft-labs/opskit/pkg/lifecycle"
	"github.com/bft-labs/opskit/pkg/listener"
	"github.com/bft-labs/opskit/pkg/log"
	"github.com/bft-labs/opskit/pkg/logpipe"
	"github.com/bft-labs/opskit/pkg/ring"
)

// Version information for the opskit module.
const (
	// Version is the current version of the opskit module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)

type moduleVersion struct {
	version    string
	minVersion string
}

var modules = map[string]moduleVersion{
	"health":    {health.Version, health.MinCompatibleVersion},
	"label":     {label.Version, label.MinCompatibleVersion},
	"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
	"listener":  {listener.Version, listener.MinCompatibleVersion},
	"log":       {log.Version, log.MinCompatibleVersion},
	"logpipe":   {logpipe.Version, logpipe.MinCompatibleVersion},
	"ring":      {ring.Version, ring.MinCompatibleVersion},
}

// ModuleVersions returns the version of every sub-module.
func ModuleVersions() map[string]string {
	out := make(map[string]string, len(modules)+1)
	out["opskit"] = Version
	for name, m := range modules {
		out[name] = m.version
	}
	return out
}

// CompatibilityMatrix returns the minimum compatible version of every sub-module.
func CompatibilityMatrix() map[string]string {
	out := make(map[string]string, len(modules)+1)
	out["opskit"] = MinCompatibleVersion
	for name, m := range modules {
		out[name] = m.minVersion
	}
	return out
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
