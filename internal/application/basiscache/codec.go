package basiscache

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"gonum.org/v1/gonum/mat"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/harmonics"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Blob layout, little endian:
//
//	magic "IBXB" | version u16 | dpi u32 | maxL u32 | count u32
//	count × (len u32 | mat.Dense binary)
//	crc32 (IEEE) of everything above
const (
	blobMagic   = "IBXB"
	blobVersion = uint16(1)
	headerLen   = 4 + 2 + 4 + 4 + 4
)

// EncodeBasis serializes a BasisSet.
func EncodeBasis(set *harmonics.BasisSet) ([]byte, error) {
	if set == nil || len(set.Elements) != harmonics.BasisLen(set.MaxL) {
		return nil, errors.New(errors.CodeInvalidParam, "incomplete basis set")
	}
	var buf bytes.Buffer
	buf.WriteString(blobMagic)
	_ = binary.Write(&buf, binary.LittleEndian, blobVersion)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(set.DPI))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(set.MaxL))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(set.Elements)))

	for i, el := range set.Elements {
		raw, err := el.MarshalBinary()
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeSerialization, "encode basis element %d", i)
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(raw)))
		buf.Write(raw)
	}
	_ = binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

// DecodeBasis parses a blob written by EncodeBasis. Any structural problem is
// reported as CodeCacheCorrupted.
func DecodeBasis(data []byte) (*harmonics.BasisSet, error) {
	if len(data) < headerLen+4 {
		return nil, corrupted("blob too short")
	}
	body, sum := data[:len(data)-4], binary.LittleEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != sum {
		return nil, corrupted("checksum mismatch")
	}
	if string(body[:4]) != blobMagic {
		return nil, corrupted("bad magic")
	}
	if v := binary.LittleEndian.Uint16(body[4:6]); v != blobVersion {
		return nil, corrupted("unsupported version").WithDetailf("version=%d", v)
	}
	dpi := int(binary.LittleEndian.Uint32(body[6:10]))
	maxL := int(binary.LittleEndian.Uint32(body[10:14]))
	count := int(binary.LittleEndian.Uint32(body[14:18]))
	if dpi <= 0 || count != harmonics.BasisLen(maxL) {
		return nil, corrupted("inconsistent header").WithDetailf("dpi=%d max_l=%d count=%d", dpi, maxL, count)
	}

	set := &harmonics.BasisSet{DPI: dpi, MaxL: maxL, Elements: make([]*mat.Dense, count)}
	off := headerLen
	for i := 0; i < count; i++ {
		if off+4 > len(body) {
			return nil, corrupted("truncated element header").WithDetailf("element=%d", i)
		}
		n := int(binary.LittleEndian.Uint32(body[off : off+4]))
		off += 4
		if n < 0 || off+n > len(body) {
			return nil, corrupted("truncated element").WithDetailf("element=%d", i)
		}
		var m mat.Dense
		if err := m.UnmarshalBinary(body[off : off+n]); err != nil {
			return nil, corrupted("bad element").WithDetailf("element=%d", i).WithCause(err)
		}
		if r, c := m.Dims(); r != dpi || c != dpi {
			return nil, corrupted("element shape").WithDetailf("element=%d shape=%dx%d", i, r, c)
		}
		set.Elements[i] = &m
		off += n
	}
	if off != len(body) {
		return nil, corrupted("trailing bytes")
	}
	return set, nil
}

func corrupted(msg string) *errors.AppError {
	return errors.New(errors.CodeCacheCorrupted, msg)
}
