package disk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSectorCount(t *testing.T) {
	cases := []struct {
		track, want int
	}{
		{0, 0}, {1, 21}, {17, 21}, {18, 19}, {24, 19},
		{25, 18}, {30, 18}, {31, 17}, {35, 17}, {36, 0},
	}
	for _, c := range cases {
		require.Equal(t, c.want, SectorCount(c.track), "track %d", c.track)
	}
}

func TestIndexBijection(t *testing.T) {
	seen := make(map[int]bool)
	for track := MinTrack; track <= MaxTrack; track++ {
		for sector := 0; sector < SectorCount(track); sector++ {
			pos := Position{Track: uint8(track), Sector: uint8(sector)}
			require.True(t, pos.IsValid())

			index, ok := pos.Index()
			require.True(t, ok)
			require.False(t, seen[index], "index %d assigned twice", index)
			seen[index] = true

			back, ok := PositionAt(index)
			require.True(t, ok)
			require.Equal(t, pos, back)

			off, ok := pos.Offset()
			require.True(t, ok)
			require.Equal(t, int64(index)*BlockSize, off)
		}
	}
	require.Len(t, seen, TotalSectors)

	for i := 0; i < TotalSectors; i++ {
		require.True(t, seen[i])
	}
}

func TestInvalidPositions(t *testing.T) {
	invalid := []Position{
		{0, 0}, {0, 255}, {36, 0}, {255, 0},
		{17, 21}, {18, 19}, {24, 19}, {30, 18}, {35, 17},
	}
	for _, pos := range invalid {
		require.False(t, pos.IsValid(), pos.String())

		_, ok := pos.Index()
		require.False(t, ok)

		_, ok = pos.Offset()
		require.False(t, ok)
	}

	_, ok := PositionAt(-1)
	require.False(t, ok)
	_, ok = PositionAt(TotalSectors)
	require.False(t, ok)
}

func TestZoneBoundaries(t *testing.T) {
	index, _ := Position{18, 0}.Index()
	require.Equal(t, 357, index)

	index, _ = Position{25, 0}.Index()
	require.Equal(t, 490, index)

	index, _ = Position{31, 0}.Index()
	require.Equal(t, 598, index)

	index, _ = Position{35, 16}.Index()
	require.Equal(t, TotalSectors-1, index)
}

func TestPositions(t *testing.T) {
	n := 0
	for index, pos := range Positions() {
		got, ok := pos.Index()
		require.True(t, ok)
		require.Equal(t, n, index)
		require.Equal(t, index, got)
		n++
	}
	require.Equal(t, TotalSectors, n)
}
