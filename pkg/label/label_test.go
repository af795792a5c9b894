package label

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/opskit/pkg/errs"
)

func TestDefault_StandardLabels(t *testing.T) {
	want := []string{"datacenter", "environment", "hostname", "pid", "revision", "service", "version"}
	assert.Equal(t, want, Default().Keys())

	d, ok := Default().Lookup(KeyPID)
	require.True(t, ok)
	assert.Equal(t, TypeInt64, d.Type)
	assert.NotEmpty(t, d.Description)
}

func TestConstructors(t *testing.T) {
	v, err := String(KeyService, "opskitd")
	require.NoError(t, err)
	assert.Equal(t, "service=opskitd", v.String())
	assert.Equal(t, "opskitd", v.Any())

	p, err := Int64(KeyPID, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.Int64Value())
	assert.Equal(t, TypeInt64, p.Type())
}

func TestConstructors_Invalid(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unknown key", func() error { _, err := String("nope", "x"); return err }()},
		{"string as int", func() error { _, err := Int64(KeyService, 1); return err }()},
		{"int as string", func() error { _, err := String(KeyPID, "1"); return err }()},
		{"bool on string", func() error { _, err := Bool(KeyHostname, true); return err }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, errs.ErrInvalid), "err = %v", tt.err)
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Descriptor{Key: "canary", Type: TypeBool}))

	v, err := r.Bool("canary", true)
	require.NoError(t, err)
	assert.Equal(t, "canary=true", v.String())

	err = r.Register(Descriptor{Key: "canary", Type: TypeString})
	assert.True(t, errors.Is(err, errs.ErrInvalid), "duplicate: %v", err)

	assert.True(t, errors.Is(r.Register(Descriptor{}), errs.ErrInvalid))
	assert.True(t, errors.Is(r.Register(Descriptor{Key: "x", Type: ValueType(9)}), errs.ErrInvalid))

	_, ok := Default().Lookup("canary")
	assert.False(t, ok, "private registry leaked into default")
}

func TestValue_Zero(t *testing.T) {
	var v Value
	assert.True(t, v.IsZero())
	assert.Equal(t, "", v.Any())
}

func TestProcess(t *testing.T) {
	vals, err := Process("opskitd", "")
	require.NoError(t, err)
	require.Len(t, vals, 3)

	host, _ := os.Hostname()
	assert.Equal(t, KeyHostname, vals[0].Key())
	assert.Equal(t, host, vals[0].Str())
	assert.Equal(t, int64(os.Getpid()), vals[1].Int64Value())
	assert.Equal(t, "opskitd", vals[2].Str())
}
