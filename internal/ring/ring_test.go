package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAudioRingWriteRead(t *testing.T) {
	r := NewAudioRing(4, 8)
	frame := make([]float32, 8)
	for i := range frame {
		frame[i] = float32(i)
	}

	require.NoError(t, r.Write(frame))
	assert.Equal(t, 1, r.Occupancy())

	out := make([]float32, 8)
	require.NoError(t, r.Read(out))
	assert.Equal(t, frame, out)
	assert.Equal(t, 0, r.Occupancy())
}

func TestAudioRingFullEmpty(t *testing.T) {
	r := NewAudioRing(2, 4)
	frame := make([]float32, 4)

	require.NoError(t, r.Write(frame))
	require.NoError(t, r.Write(frame))
	assert.ErrorIs(t, r.Write(frame), ErrFull)

	out := make([]float32, 4)
	require.NoError(t, r.Read(out))
	require.NoError(t, r.Read(out))
	assert.ErrorIs(t, r.Read(out), ErrEmpty)
}

func TestAudioRingOccupancyBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := 1 << rapid.IntRange(1, 6).Draw(t, "log2capacity")
		r := NewAudioRing(capacity, 2)
		ops := rapid.SliceOfN(rapid.Bool(), 0, 200).Draw(t, "ops")

		frame := make([]float32, 2)
		out := make([]float32, 2)
		for _, writeOp := range ops {
			if writeOp {
				_ = r.Write(frame)
			} else {
				_ = r.Read(out)
			}
			occ := r.Occupancy()
			if occ < 0 || occ > capacity {
				t.Fatalf("occupancy %d out of [0,%d]", occ, capacity)
			}
		}
	})
}

func TestCommandRingPreservesOrder(t *testing.T) {
	r := NewCommandRing(8)
	for i := uint64(0); i < 5; i++ {
		require.NoError(t, r.Write(Command{Seq: i, Op: OpParamSet, ModuleID: 1, ParamID: 2, Value: float32(i)}))
	}
	for i := uint64(0); i < 5; i++ {
		cmd, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, i, cmd.Seq)
	}
	_, err := r.Read()
	assert.ErrorIs(t, err, ErrEmpty)
}
