package opskit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleVersions(t *testing.T) {
	versions := ModuleVersions()

	assert.Equal(t, Version, versions["opskit"])
	for _, name := range []string{"health", "label", "lifecycle", "listener", "log", "logpipe", "ring"} {
		assert.NotEmpty(t, versions[name], name)
	}
	assert.Len(t, CompatibilityMatrix(), len(versions))
	assert.NoError(t, validateModuleVersions())
}

func TestIsVersionCompatible(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.2.0", "1.0.0", true},
		{"1.0.1", "1.0.0", true},
		{"2.0.0", "1.9.9", true},
		{"1.0.0", "1.0.1", false},
		{"1.0.0", "2.0.0", false},
		{"0.9.0", "1.0.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isVersionCompatible(tt.version, tt.min), "%s >= %s", tt.version, tt.min)
	}
}
