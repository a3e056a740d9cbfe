package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_NilIsNoOp(t *testing.T) {
	var tr *Tracker
	assert.NotPanics(t, func() {
		tr.AddLogged(10)
		tr.AddRead(10)
		tr.AddWritten(10)
	})

	snap := tr.Snapshot(100, 200)
	assert.Equal(t, uint64(100), snap.ResidentBytes)
	assert.Equal(t, uint64(200), snap.OnDiskBytes)
	assert.Zero(t, snap.LoggedBytes)
	assert.Zero(t, snap.WriteAmp)
}

func TestTracker_AccumulatesAcrossCalls(t *testing.T) {
	tr := New()
	tr.AddLogged(10)
	tr.AddLogged(20)
	tr.AddRead(5)
	tr.AddWritten(15)

	snap := tr.Snapshot(0, 0)
	assert.Equal(t, uint64(30), snap.LoggedBytes)
	assert.Equal(t, uint64(5), snap.ReadBytes)
	assert.Equal(t, uint64(15), snap.WrittenBytes)
}

func TestSnapshot_DerivesAmplificationRatios(t *testing.T) {
	tr := New()
	tr.AddLogged(100)
	tr.AddWritten(300)

	snap := tr.Snapshot(50, 150)
	assert.InDelta(t, 3.0, snap.SpaceAmp, 0.0001)
	assert.InDelta(t, 3.0, snap.WriteAmp, 0.0001)
}

func TestSnapshot_ZeroDenominatorsLeaveRatiosZero(t *testing.T) {
	tr := New()
	snap := tr.Snapshot(0, 0)
	assert.Zero(t, snap.SpaceAmp)
	assert.Zero(t, snap.WriteAmp)
}
