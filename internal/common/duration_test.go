package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationYAML(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`"90s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration)

	out, err := yaml.Marshal(NewDuration(5 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "5m0s\n", string(out))
}

func TestDurationJSON(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1h30m"`), &d))
	assert.Equal(t, 90*time.Minute, d.Duration)

	out, err := json.Marshal(NewDuration(12 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"12s"`, string(out))
}

func TestDurationText(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, 250*time.Millisecond, d.Duration)

	text, err := NewDuration(time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1s", string(text))
}

func TestDurationInvalid(t *testing.T) {
	t.Parallel()

	var d Duration
	require.Error(t, d.UnmarshalText([]byte("not-a-duration")))
	require.Error(t, json.Unmarshal([]byte(`"30"`), &d))
	require.Error(t, json.Unmarshal([]byte(`42`), &d))
}
