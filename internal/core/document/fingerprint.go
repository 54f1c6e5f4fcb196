package document

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the value's structure and contents into a 64-bit
// digest. Two deep-equal values always produce the same fingerprint, so a
// digest comparison is a cheap precheck before running a full diff.
func Fingerprint(v Value) uint64 {
	d := xxhash.New()
	hashValue(d, v)
	return d.Sum64()
}

func hashValue(d *xxhash.Digest, v Value) {
	var kindByte [1]byte
	kindByte[0] = byte(v.Kind())
	_, _ = d.Write(kindByte[:])

	switch v.Kind() {
	case KindBool:
		if v.BoolValue() {
			_, _ = d.WriteString("t")
		} else {
			_, _ = d.WriteString("f")
		}
	case KindNumber:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.NumberValue()))
		_, _ = d.Write(buf[:])
	case KindString:
		hashString(d, v.StringValue())
	case KindSequence:
		for i := 0; i < v.Len(); i++ {
			hashValue(d, v.Index(i))
		}
	case KindMapping:
		// Keys() is sorted, which keeps the digest independent of map
		// iteration order.
		for _, key := range v.Keys() {
			hashString(d, key)
			child, _ := v.Get(key)
			hashValue(d, child)
		}
	}
}

func hashString(d *xxhash.Digest, s string) {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
	_, _ = d.Write(lenBuf[:])
	_, _ = d.WriteString(s)
}
