package reembed

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerReportsAtInterval(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressTracker(&out, 100, 25)
	p.Start()

	p.Update(10)
	assert.Empty(t, out.String(), "below interval, nothing reported")

	p.Update(25)
	assert.Contains(t, out.String(), "25/100")

	p.Update(30)
	reported := out.String()
	p.Update(40)
	assert.Equal(t, reported, out.String(), "only 15 since last report")

	p.Finish()
	assert.Contains(t, out.String(), "100/100")
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}

func TestProgressTrackerCapsAtTotal(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressTracker(&out, 10, 1)
	p.Start()
	p.Update(50)
	assert.Contains(t, out.String(), "10/10")
}

func TestProgressTrackerIgnoresUpdatesBeforeStart(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressTracker(&out, 10, 1)
	p.Update(5)
	p.Finish()
	assert.Empty(t, out.String())
	assert.Zero(t, p.Elapsed())
}
