package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWallClockAdvances(t *testing.T) {
	w := NewWall()
	first := w.Get()
	time.Sleep(5 * time.Millisecond)
	second := w.Get()
	assert.GreaterOrEqual(t, second, first)
}

func TestMockClockStartsAtGivenValue(t *testing.T) {
	m := NewMock(100)
	assert.Equal(t, int64(100), m.Get())
}

func TestMockClockIncrement(t *testing.T) {
	m := NewMock(100)
	m.Increment(99)
	assert.Equal(t, int64(199), m.Get())
	m.Increment(1)
	assert.Equal(t, int64(200), m.Get())
}

func TestMockClockSet(t *testing.T) {
	m := NewMock(0)
	m.Set(400)
	assert.Equal(t, int64(400), m.Get())
}
