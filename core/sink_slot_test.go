package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oneclick_bridge/bridgetest"
)

func TestSinkSlotDefersEndOfStreamWhileInUse(t *testing.T) {
	var slot sinkSlot
	old, replacement := &bridgetest.Sink{}, &bridgetest.Sink{}

	slot.Store(old)
	ref := slot.Acquire()
	slot.Store(replacement)
	assert.Zero(t, old.Ended(), "in-flight delivery pins the old sink")

	slot.Release(ref)
	assert.Equal(t, 1, old.Ended())

	slot.Store(nil)
	assert.Equal(t, 1, replacement.Ended())
	assert.False(t, slot.Attached())
	assert.Nil(t, slot.Acquire())
}

func TestSinkSlotReleaseNil(t *testing.T) {
	var slot sinkSlot
	slot.Release(nil)
	slot.Store(nil)
	assert.False(t, slot.Attached())
}

func TestSinkSlotClearIf(t *testing.T) {
	var slot sinkSlot
	a, b := &bridgetest.Sink{}, &bridgetest.Sink{}

	slot.Store(a)
	assert.False(t, slot.ClearIf(b))
	assert.True(t, slot.Attached())

	assert.True(t, slot.ClearIf(a))
	assert.False(t, slot.Attached())
	assert.Equal(t, 1, a.Ended())
	assert.False(t, slot.ClearIf(a))
	assert.Equal(t, 1, a.Ended())
}
