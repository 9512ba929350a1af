package storage

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// encodeColumn packs a metric column as zigzag varints, the same layout
// protobuf uses for packed repeated sint64 fields.
func encodeColumn(xs []int64) []byte {
	buf := make([]byte, 0, len(xs)*3)
	for _, x := range xs {
		buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(x))
	}
	return buf
}

// decodeColumn unpacks exactly n values written by encodeColumn.
func decodeColumn(b []byte, n int) ([]int64, error) {
	out := make([]int64, 0, n)
	for len(b) > 0 {
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return nil, fmt.Errorf("decode column: %w", protowire.ParseError(m))
		}
		out = append(out, protowire.DecodeZigZag(v))
		b = b[m:]
	}
	if len(out) != n {
		return nil, fmt.Errorf("decode column: got %d values, want %d", len(out), n)
	}
	return out, nil
}
