package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddFaultParamsScenario5 reproduces spec §8 scenario 5 verbatim: a
// `--fault-start-time-delta 1h30m --fault-duration 15s` invocation must
// parse into start_time_ms_delta: 5400000 and duration_ms: 15000.
func TestAddFaultParamsScenario5(t *testing.T) {
	p, err := ParseAddFaultParams("f1", `{"kind":"NoOpFault"}`, "", "1h30m", "", "15s")
	require.NoError(t, err)
	require.NotNil(t, p.StartTimeMsDelta)
	assert.Equal(t, int64(5400000), *p.StartTimeMsDelta)
	require.NotNil(t, p.DurationMs)
	assert.Equal(t, int64(15000), *p.DurationMs)
	assert.Nil(t, p.StartTimeMs)
	assert.Nil(t, p.EndTimeMs)
}

func TestAddFaultParamsRejectsBothStartFlags(t *testing.T) {
	_, err := ParseAddFaultParams("f1", `{}`, "100", "1h", "", "10s")
	assert.Error(t, err)
}

func TestAddFaultParamsRejectsNeitherEndFlag(t *testing.T) {
	_, err := ParseAddFaultParams("f1", `{}`, "100", "", "", "")
	assert.Error(t, err)
}

func TestAddFaultParamsResolveDelta(t *testing.T) {
	p, err := ParseAddFaultParams("f1", `{"kind":"NoOpFault"}`, "", "1h", "", "30s")
	require.NoError(t, err)
	startMs, durationMs := p.Resolve(1000)
	assert.Equal(t, int64(1000+3600_000), startMs)
	assert.Equal(t, int64(30_000), durationMs)
}

func TestAddFaultParamsResolveEndTimeMs(t *testing.T) {
	p, err := ParseAddFaultParams("f1", `{"kind":"NoOpFault"}`, "1000", "", "5000", "")
	require.NoError(t, err)
	startMs, durationMs := p.Resolve(0)
	assert.Equal(t, int64(1000), startMs)
	assert.Equal(t, int64(4000), durationMs)
}

func TestBuildFaultSpecMergesResolvedTiming(t *testing.T) {
	p, err := ParseAddFaultParams("f1", `{"kind":"NoOpFault"}`, "1000", "", "", "2s")
	require.NoError(t, err)
	raw, err := p.BuildFaultSpec(0)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"duration_ms":2000`)
	assert.Contains(t, string(raw), `"start_ms":1000`)
}
