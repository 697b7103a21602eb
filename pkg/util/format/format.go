package format

import (
	"fmt"
	"io"
	"strings"
)

// FormatBytes formats a size into human-readable units, avoiding .00 for
// whole numbers.
func FormatBytes(b int64) string {
	const (
		_  = iota // ignore first value
		KB = 1 << (10 * iota)
		MB
		GB
		TB
	)

	val := float64(b)
	var unit string

	switch {
	case b >= TB:
		val /= float64(TB)
		unit = "TB"
	case b >= GB:
		val /= float64(GB)
		unit = "GB"
	case b >= MB:
		val /= float64(MB)
		unit = "MB"
	case b >= KB:
		val /= float64(KB)
		unit = "KB"
	default:
		return fmt.Sprintf("%dB", b)
	}

	// Use %.0f for whole numbers, %.2f for numbers with decimals
	if val == float64(int(val)) {
		return fmt.Sprintf("%.0f%s", val, unit)
	}
	return fmt.Sprintf("%.2f%s", val, unit)
}

// PETSCIIChar maps a PETSCII byte to a printable ASCII character,
// or '.' if it has none.
func PETSCIIChar(b byte) byte {
	switch {
	case b >= 0x20 && b <= 0x5F:
		return b
	case b >= 0xC1 && b <= 0xDA:
		return 'A' + (b - 0xC1)
	case b == 0xA0:
		return ' '
	}
	return '.'
}

// HexDump writes data as rows of 16 bytes: offset, hex bytes and their
// PETSCII rendering.
func HexDump(w io.Writer, data []byte) error {
	const perRow = 16

	var sb strings.Builder
	for off := 0; off < len(data); off += perRow {
		row := data[off:min(off+perRow, len(data))]

		sb.Reset()
		fmt.Fprintf(&sb, "%02X:", off)
		for i := 0; i < perRow; i++ {
			if i < len(row) {
				fmt.Fprintf(&sb, " %02X", row[i])
			} else {
				sb.WriteString("   ")
			}
		}

		sb.WriteString("  |")
		for _, b := range row {
			sb.WriteByte(PETSCIIChar(b))
		}
		sb.WriteString("|\n")

		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
