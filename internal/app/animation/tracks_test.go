package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/animbox/internal/domain/spline"
)

func TestMany_Sample(t *testing.T) {
	m := NewMany(linearSpline(0, 1), linearSpline(2, 3), spline.New())

	got := m.Sample(0.5)
	require.Len(t, got, 3)
	assert.Equal(t, Sample{Value: 0.5, OK: true}, got[0])
	assert.False(t, got[1].OK)
	assert.False(t, got[2].OK)

	assert.Nil(t, m.Sample(1.5), "no track has data between the two ranges")
	assert.Equal(t, 3, m.TrackCount())
}

func TestMany_Labeled(t *testing.T) {
	m := NewMany(linearSpline(0, 1), spline.New())

	got := m.Labeled(0.25)
	require.Len(t, got, 2)
	assert.Equal(t, "0", got[0].Track)
	assert.True(t, got[0].OK)
	assert.Equal(t, "1", got[1].Track)
	assert.False(t, got[1].OK)
}

func TestMany_AdvanceUsesUnionOfTracks(t *testing.T) {
	m := NewMany(linearSpline(0, 1), linearSpline(3, 4))
	m.LoopStyle = Loop
	m.Time = 3.5

	// Past the first track's end but inside the union.
	assert.Equal(t, StepAdvanced, m.Advance(0.25))
	assert.InDelta(t, 3.75, m.Time, 1e-9)

	m.Time = 4.5
	assert.Equal(t, StepRestarted, m.Advance(0.25))
	assert.Equal(t, 0.0, m.Time)
}

func TestNamed_Sample(t *testing.T) {
	n := NewNamed(map[string]*spline.Spline{
		"x": linearSpline(0, 1),
		"y": linearSpline(0.5, 2),
		"z": spline.New(),
	})

	got := n.Sample(0.25)
	require.Len(t, got, 1)
	assert.Equal(t, Sample{Value: 0.25, OK: true}, got["x"])

	got = n.Sample(0.75)
	require.Len(t, got, 2)
	assert.True(t, got["x"].OK)
	assert.True(t, got["y"].OK)

	assert.Nil(t, n.Sample(5))
}

func TestNamed_LabeledIsOrdered(t *testing.T) {
	n := NewNamed(map[string]*spline.Spline{
		"z": linearSpline(0, 1),
		"a": linearSpline(0, 1),
		"m": spline.New(),
	})

	got := n.Labeled(0.5)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Track)
	assert.Equal(t, "m", got[1].Track)
	assert.Equal(t, "z", got[2].Track)
	assert.False(t, got[1].OK)
	assert.Equal(t, []string{"a", "m", "z"}, n.Names())
}

func TestNamed_Bounds(t *testing.T) {
	n := NewNamed(nil)
	assert.True(t, n.IsEmpty())

	n.Splines["pos"] = linearSpline(1, 2, 6)
	n.Splines["rot"] = linearSpline(0, 4)

	start, ok := n.StartTime()
	require.True(t, ok)
	assert.Equal(t, 0.0, start)

	end, ok := n.EndTime()
	require.True(t, ok)
	assert.Equal(t, 6.0, end)

	assert.Equal(t, []Bounds{{First: 1, Last: 6}, {First: 0, Last: 4}}, n.TrackBounds())
}

func TestGenericHelpers(t *testing.T) {
	// The package-level helpers work on any Group, not just the built-in ones.
	var g Group[[]Sample] = NewMany(linearSpline(0, 2))

	assert.False(t, IsEmpty(g))
	assert.Equal(t, StepAdvanced, Advance(g, 1))
	assert.Equal(t, []Sample{{Value: 0.5, OK: true}}, Current(g))
}

func TestLabeledClamped(t *testing.T) {
	tests := []struct {
		name   string
		player Player
		at     float64
		want   []LabeledSample
	}{
		{
			name:   "one before start",
			player: NewOne(linearSpline(1, 2)),
			at:     -3,
			want:   []LabeledSample{{Track: "value", Sample: Sample{Value: 0, OK: true}}},
		},
		{
			name:   "many past end with an empty track",
			player: NewMany(linearSpline(0, 1), spline.New()),
			at:     9,
			want: []LabeledSample{
				{Track: "0", Sample: Sample{Value: 1, OK: true}},
				{Track: "1", Sample: Sample{}},
			},
		},
		{
			name: "named between ranges",
			player: NewNamed(map[string]*spline.Spline{
				"x": linearSpline(0, 1),
				"y": linearSpline(2, 3),
			}),
			at: 1.5,
			want: []LabeledSample{
				{Track: "x", Sample: Sample{Value: 1, OK: true}},
				{Track: "y", Sample: Sample{Value: 0, OK: true}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.player.LabeledClamped(tt.at))
		})
	}
}
