package disk

// Checksum computes the 16 bit rolling checksum used by the transfer
// hardware. Two 8 bit accumulators are updated per byte: lo sums the bytes,
// hi sums the successive values of lo. The result is hi<<8 | lo.
func Checksum(block []byte) uint16 {
	var lo, hi uint8
	for _, b := range block {
		lo += b
		hi += lo
	}
	return uint16(hi)<<8 | uint16(lo)
}
