package logpipe

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/opskit/pkg/errs"
)

func TestCollector(t *testing.T) {
	p := newPipeline(t, 1, NewDiscard())
	for range 3 {
		_ = p.Errorf("x")
	}
	_, err := p.Drain(1)
	require.NoError(t, err)

	c, err := NewCollector(p)
	require.NoError(t, err)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	assert.Equal(t, 8, testutil.CollectAndCount(c))

	name := p.Name()
	expected := `
# HELP opskit_logpipe_records_enqueued_total Records accepted into the ring.
# TYPE opskit_logpipe_records_enqueued_total counter
opskit_logpipe_records_enqueued_total{pipeline="` + name + `"} 2
# HELP opskit_logpipe_records_dropped_total Records rejected because the ring was full.
# TYPE opskit_logpipe_records_dropped_total counter
opskit_logpipe_records_dropped_total{pipeline="` + name + `"} 1
# HELP opskit_logpipe_records_buffered Records waiting to be drained.
# TYPE opskit_logpipe_records_buffered gauge
opskit_logpipe_records_buffered{pipeline="` + name + `"} 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"opskit_logpipe_records_enqueued_total",
		"opskit_logpipe_records_dropped_total",
		"opskit_logpipe_records_buffered",
	)
	assert.NoError(t, err)
}

func namedPipeline(t *testing.T, name string) *Pipeline {
	t.Helper()
	p, err := New(name, 1, NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestCollector_Add(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)
	assert.Zero(t, testutil.CollectAndCount(c))

	require.NoError(t, c.Add(namedPipeline(t, "a")))
	require.NoError(t, c.Add(namedPipeline(t, "b")))
	assert.Equal(t, 16, testutil.CollectAndCount(c))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	_, err = reg.Gather()
	assert.NoError(t, err)
}

func TestCollector_AddDuplicateName(t *testing.T) {
	c, err := NewCollector(namedPipeline(t, "a"))
	require.NoError(t, err)

	err = c.Add(namedPipeline(t, "a"))
	if !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("Add duplicate = %v, want ErrInvalid", err)
	}
	assert.Equal(t, 8, testutil.CollectAndCount(c))

	_, err = NewCollector(namedPipeline(t, "b"), namedPipeline(t, "b"))
	assert.ErrorIs(t, err, errs.ErrInvalid)
}
