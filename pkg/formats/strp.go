package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/midgard-strips/pkg/strip"
)

// STRP format errors.
var (
	ErrInvalidSTRPMagic       = errors.New("invalid STRP magic: expected 'STRP'")
	ErrUnsupportedSTRPVersion = errors.New("unsupported STRP version")
	ErrTruncatedSTRPData      = errors.New("truncated STRP data")
	ErrInvalidStripLength     = errors.New("invalid STRP strip length")
	ErrInvalidSTRPStats       = errors.New("invalid STRP stats block")
)

const strpMagic = "STRP"

// strpMaxBodySize caps the decompressed body when no stats block bounds it.
const strpMaxBodySize = 256 << 20

// STRPFlags describes how the strip body is stored.
type STRPFlags uint8

const (
	STRPFlagZstd STRPFlags = 1 << iota // Body is a zstd frame
)

// STRP is a parsed strip container.
//
// Layout (little-endian):
//
//	magic[4] "STRP"
//	major, minor uint8
//	flags uint8, reserved uint8
//	v1.1+: faces, strips, max length, rate int32
//	body: strip count uint32, then per strip: length uint32, indices uint32[length]
type STRP struct {
	Version Version
	Flags   STRPFlags
	Stats   strip.Stats
	Strips  []strip.Strip
}

// EncodeOptions controls STRP serialization.
type EncodeOptions struct {
	Compress bool // zstd-compress the strip body
}

// EncodeSTRP serializes a compression result as a version 1.1 STRP file.
func EncodeSTRP(res strip.Result, opts EncodeOptions) ([]byte, error) {
	var flags STRPFlags
	if opts.Compress {
		flags |= STRPFlagZstd
	}

	var buf bytes.Buffer
	buf.WriteString(strpMagic)
	buf.Write([]byte{1, 1, byte(flags), 0})

	st := res.Stats
	binary.Write(&buf, binary.LittleEndian, [4]int32{
		int32(st.Faces),
		int32(st.Strips),
		int32(st.MaxStripLength),
		int32(st.CompressionRate),
	})

	body := encodeStripBody(res.Strips)
	if opts.Compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		body = enc.EncodeAll(body, nil)
		enc.Close()
	}
	buf.Write(body)

	return buf.Bytes(), nil
}

// maxStripBodySize is the raw body size of strips built from faces triangles:
// each strip holds its triangle count plus two indices, behind a length word.
func maxStripBodySize(faces, strips int) uint64 {
	return 4 + 12*uint64(strips) + 4*uint64(faces)
}

func encodeStripBody(strips []strip.Strip) []byte {
	size := 4
	for _, s := range strips {
		size += 4 + 4*len(s)
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	binary.Write(buf, binary.LittleEndian, uint32(len(strips)))
	for _, s := range strips {
		binary.Write(buf, binary.LittleEndian, uint32(len(s)))
		binary.Write(buf, binary.LittleEndian, []strip.Index(s))
	}
	return buf.Bytes()
}

// ParseSTRP parses STRP data from a byte slice.
func ParseSTRP(data []byte) (*STRP, error) {
	if len(data) < 8 {
		return nil, ErrTruncatedSTRPData
	}
	if string(data[:4]) != strpMagic {
		return nil, ErrInvalidSTRPMagic
	}

	f := &STRP{
		Version: Version{Major: data[4], Minor: data[5]},
		Flags:   STRPFlags(data[6]),
	}

	if f.Version.Major != 1 || f.Version.Minor > 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSTRPVersion, f.Version)
	}

	rest := data[8:]

	// Stats block (v1.1+)
	var stored [4]int32
	if f.Version.AtLeast(1, 1) {
		if len(rest) < 16 {
			return nil, ErrTruncatedSTRPData
		}
		binary.Read(bytes.NewReader(rest[:16]), binary.LittleEndian, &stored)
		rest = rest[16:]
	}

	if f.Flags&STRPFlagZstd != 0 {
		limit := uint64(strpMaxBodySize)
		if f.Version.AtLeast(1, 1) {
			if stored[0] < 0 || stored[1] < 0 {
				return nil, fmt.Errorf("%w: %d faces, %d strips", ErrInvalidSTRPStats, stored[0], stored[1])
			}
			limit = min(limit, maxStripBodySize(int(stored[0]), int(stored[1])))
		}

		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		rest, err = dec.DecodeAll(rest, nil)
		dec.Close()
		if err != nil {
			return nil, fmt.Errorf("decompressing strip body: %w", err)
		}
	}

	strips, err := parseStripBody(rest)
	if err != nil {
		return nil, err
	}
	f.Strips = strips

	faces := 0
	for _, s := range strips {
		faces += len(s) - 2
	}
	f.Stats = strip.ComputeStats(strips, faces)

	if f.Version.AtLeast(1, 1) {
		f.Stats.Faces = int(stored[0])
		f.Stats.NaiveIndices = 3 * f.Stats.Faces
		f.Stats.CompressionRate = int(stored[3])
	}

	return f, nil
}

func parseStripBody(data []byte) ([]strip.Strip, error) {
	r := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ErrTruncatedSTRPData
	}
	// Each strip takes at least 4 bytes for its length.
	if uint64(count)*4 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: %d strips declared", ErrTruncatedSTRPData, count)
	}

	strips := make([]strip.Strip, count)
	for i := range strips {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: strip %d", ErrTruncatedSTRPData, i)
		}
		if n < 3 {
			return nil, fmt.Errorf("%w: strip %d has %d indices", ErrInvalidStripLength, i, n)
		}
		if uint64(n)*4 > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: strip %d", ErrTruncatedSTRPData, i)
		}

		s := make(strip.Strip, n)
		binary.Read(r, binary.LittleEndian, []strip.Index(s))
		strips[i] = s
	}

	return strips, nil
}

// ParseSTRPFile parses a STRP file from disk.
func ParseSTRPFile(path string) (*STRP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSTRP(data)
}

// Result returns the container contents as a compression result.
func (f *STRP) Result() strip.Result {
	return strip.Result{Strips: f.Strips, Stats: f.Stats}
}
