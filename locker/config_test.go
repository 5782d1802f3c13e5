package locker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, "que_jobs", cfg.Table)
	assert.Equal(t, 6, cfg.WorkerCount)
	require.Len(t, cfg.WorkerPriorities, 6)
	require.NotNil(t, cfg.WorkerPriorities[0])
	assert.Equal(t, int16(10), *cfg.WorkerPriorities[0])
	require.NotNil(t, cfg.WorkerPriorities[1])
	assert.Equal(t, int16(30), *cfg.WorkerPriorities[1])
	require.NotNil(t, cfg.WorkerPriorities[2])
	assert.Equal(t, int16(50), *cfg.WorkerPriorities[2])
	assert.Nil(t, cfg.WorkerPriorities[3])
	assert.Nil(t, cfg.WorkerPriorities[4])
	assert.Nil(t, cfg.WorkerPriorities[5])

	assert.Equal(t, float64(5), cfg.PollInterval)
	assert.Equal(t, []QueueConfig{{Name: "que_jobs", Interval: 5}}, cfg.Queues)
	assert.Equal(t, 2, cfg.MinimumBufferSize)
	assert.Equal(t, 8, cfg.MaximumBufferSize)
	assert.NotNil(t, cfg.Runtime)
}

func TestPadPrioritiesTruncatesWhenTooLong(t *testing.T) {
	one := int16(1)
	two := int16(2)
	three := int16(3)
	got := padPriorities([]*int16{&one, &two, &three}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, int16(1), *got[0])
	assert.Equal(t, int16(2), *got[1])
}

func TestPadPrioritiesPadsWhenTooShort(t *testing.T) {
	one := int16(1)
	got := padPriorities([]*int16{&one}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, int16(1), *got[0])
	assert.Nil(t, got[1])
	assert.Nil(t, got[2])
}
