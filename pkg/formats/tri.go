package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/midgard-strips/pkg/strip"
)

// TRI format errors.
var (
	ErrInvalidTRIMagic       = errors.New("invalid TRI magic: expected 'GTRI'")
	ErrUnsupportedTRIVersion = errors.New("unsupported TRI version")
	ErrTruncatedTRIData      = errors.New("truncated TRI data")
)

const triMagic = "GTRI"

// triHeaderSize is magic + version + index count.
const triHeaderSize = 4 + 2 + 4

// Version represents a binary file version.
type Version struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v Version) AtLeast(major, minor uint8) bool {
	if v.Major > major {
		return true
	}
	return v.Major == major && v.Minor >= minor
}

// TRI is a raw triangle list: a flat uint32 index buffer, three per face.
// The index count does not have to be a multiple of three.
type TRI struct {
	Version Version
	Indices []strip.Index
}

// Faces returns the number of complete triangles.
func (t *TRI) Faces() int {
	return len(t.Indices) / 3
}

// ParseTRI parses TRI data from a byte slice.
func ParseTRI(data []byte) (*TRI, error) {
	if len(data) < triHeaderSize {
		return nil, ErrTruncatedTRIData
	}

	r := bytes.NewReader(data)

	magic := make([]byte, 4)
	r.Read(magic)
	if string(magic) != triMagic {
		return nil, ErrInvalidTRIMagic
	}

	tri := &TRI{}
	binary.Read(r, binary.LittleEndian, &tri.Version.Major)
	binary.Read(r, binary.LittleEndian, &tri.Version.Minor)

	if tri.Version.Major != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTRIVersion, tri.Version)
	}

	var count uint32
	binary.Read(r, binary.LittleEndian, &count)

	if uint64(r.Len()) < uint64(count)*4 {
		return nil, fmt.Errorf("%w: %d indices declared, %d bytes left", ErrTruncatedTRIData, count, r.Len())
	}

	tri.Indices = make([]strip.Index, count)
	if err := binary.Read(r, binary.LittleEndian, tri.Indices); err != nil {
		return nil, fmt.Errorf("reading indices: %w", err)
	}

	return tri, nil
}

// ParseTRIFile parses a TRI file from disk.
func ParseTRIFile(path string) (*TRI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTRI(data)
}

// EncodeTRI serializes indices as a version 1.0 TRI file.
func EncodeTRI(indices []strip.Index) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, triHeaderSize+4*len(indices)))
	buf.WriteString(triMagic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, uint32(len(indices)))
	binary.Write(buf, binary.LittleEndian, indices)
	return buf.Bytes()
}
