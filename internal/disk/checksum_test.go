package disk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	var block [BlockSize]byte
	require.Equal(t, uint16(0x0000), Checksum(block[:]))

	// lo runs through 1..255,0 so hi ends at 32640 mod 256.
	for i := range block {
		block[i] = 0x01
	}
	require.Equal(t, uint16(0x8000), Checksum(block[:]))

	require.Equal(t, uint16(0x0101), Checksum([]byte{0x01}))
	require.Equal(t, uint16(0x0302), Checksum([]byte{0x01, 0x01}))
}

func TestChecksumOrderSensitive(t *testing.T) {
	a := []byte{0x01, 0x02}
	b := []byte{0x02, 0x01}
	require.NotEqual(t, Checksum(a), Checksum(b))
}
