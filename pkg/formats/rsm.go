package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/midgard-strips/pkg/strip"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
	ErrInvalidRSMCount       = errors.New("invalid RSM element count")
)

// Sanity limits for counts read from RSM files.
const (
	rsmMaxNodes    = 10000
	rsmMaxTextures = 1000
	rsmMaxItems    = 100000
	rsmMaxKeys     = 10000
)

// RSMMeshNode is the triangle list of one model node. Indices are already
// rebased into the model-wide vertex space.
type RSMMeshNode struct {
	Name         string
	Parent       string
	VertexBase   int // Offset of this node's first vertex in the model
	VertexCount  int
	Indices      []strip.Index
	SkippedFaces int // Faces referencing vertices outside the node
}

// RSMMesh is the geometry of an RSM (Resource Model) file, reduced to what strip
// building needs: per-node triangle lists.
type RSMMesh struct {
	Version  Version
	RootNode string
	Nodes    []RSMMeshNode
}

// Indices returns the triangle lists of all nodes in file order.
func (m *RSMMesh) Indices() []strip.Index {
	var n int
	for _, node := range m.Nodes {
		n += len(node.Indices)
	}

	out := make([]strip.Index, 0, n)
	for _, node := range m.Nodes {
		out = append(out, node.Indices...)
	}
	return out
}

// VertexCount returns the total number of vertices across all nodes.
func (m *RSMMesh) VertexCount() int {
	total := 0
	for _, node := range m.Nodes {
		total += node.VertexCount
	}
	return total
}

// FaceCount returns the number of faces kept across all nodes.
func (m *RSMMesh) FaceCount() int {
	total := 0
	for _, node := range m.Nodes {
		total += len(node.Indices) / 3
	}
	return total
}

// rsmReader reads little-endian values and remembers the first error.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rr *rsmReader) read(v any) {
	if rr.err != nil {
		return
	}
	if err := binary.Read(rr.r, binary.LittleEndian, v); err != nil {
		rr.err = ErrTruncatedRSMData
	}
}

func (rr *rsmReader) skip(n int64) {
	if rr.err != nil {
		return
	}
	if n > int64(rr.r.Len()) {
		rr.err = ErrTruncatedRSMData
		return
	}
	rr.r.Seek(n, io.SeekCurrent)
}

func (rr *rsmReader) count(limit int32, what string) int {
	var n int32
	rr.read(&n)
	if rr.err == nil && (n < 0 || n > limit) {
		rr.err = fmt.Errorf("%w: %d %s", ErrInvalidRSMCount, n, what)
	}
	if rr.err != nil {
		return 0
	}
	return int(n)
}

// readString reads a fixed-length null-terminated string.
func (rr *rsmReader) readString(length int) string {
	buf := make([]byte, length)
	rr.read(buf)
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

// ParseRSMMesh parses the node geometry of RSM data. Transforms, textures and
// animation are skipped. Versions 1.1 to 1.5 are supported.
func ParseRSMMesh(data []byte) (*RSMMesh, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	mesh := &RSMMesh{Version: Version{Major: data[4], Minor: data[5]}}
	if mesh.Version.Major != 1 || mesh.Version.Minor < 1 || mesh.Version.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, mesh.Version)
	}

	rr := &rsmReader{r: bytes.NewReader(data[6:])}

	// Animation length, shading type
	rr.skip(8)

	// Alpha (v1.4+)
	if mesh.Version.AtLeast(1, 4) {
		rr.skip(1)
	}

	// Reserved
	rr.skip(16)

	textures := rr.count(rsmMaxTextures, "textures")
	rr.skip(int64(textures) * 40)

	mesh.RootNode = rr.readString(40)

	var nodeCount int32
	rr.read(&nodeCount)
	if rr.err != nil {
		return nil, rr.err
	}
	if nodeCount < 0 || nodeCount > rsmMaxNodes {
		return nil, ErrInvalidNodeCount
	}

	mesh.Nodes = make([]RSMMeshNode, nodeCount)
	base := 0
	for i := range mesh.Nodes {
		node := &mesh.Nodes[i]
		node.VertexBase = base
		readRSMNode(rr, mesh.Version, node)
		if rr.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, rr.err)
		}
		base += node.VertexCount
	}

	return mesh, nil
}

func readRSMNode(rr *rsmReader, version Version, node *RSMMeshNode) {
	node.Name = rr.readString(40)
	node.Parent = rr.readString(40)

	textures := rr.count(rsmMaxTextures, "node textures")
	rr.skip(int64(textures) * 4)

	// Matrix, offset, position, rotation angle and axis, scale
	rr.skip(36 + 12 + 12 + 4 + 12 + 12)

	node.VertexCount = rr.count(rsmMaxItems, "vertices")
	rr.skip(int64(node.VertexCount) * 12)

	texCoordSize := int64(8)
	if version.AtLeast(1, 2) {
		texCoordSize += 4 // vertex color
	}
	texCoords := rr.count(rsmMaxItems, "texture coordinates")
	rr.skip(int64(texCoords) * texCoordSize)

	// Texture coord IDs, texture ID, padding, two-sided flag, smooth group (v1.2+)
	faceTail := int64(6 + 2 + 2 + 4)
	if version.AtLeast(1, 2) {
		faceTail += 4
	}

	faces := rr.count(rsmMaxItems, "faces")
	node.Indices = make([]strip.Index, 0, 3*faces)
	for i := 0; i < faces && rr.err == nil; i++ {
		var ids [3]uint16
		rr.read(&ids)
		rr.skip(faceTail)

		if int(ids[0]) >= node.VertexCount || int(ids[1]) >= node.VertexCount || int(ids[2]) >= node.VertexCount {
			node.SkippedFaces++
			continue
		}
		for _, id := range ids {
			node.Indices = append(node.Indices, strip.Index(node.VertexBase+int(id)))
		}
	}

	// Position keyframes (v < 1.5): frame + position
	if !version.AtLeast(1, 5) {
		rr.skip(int64(rr.count(rsmMaxKeys, "position keys")) * 16)
	}

	// Rotation keyframes: frame + quaternion
	rr.skip(int64(rr.count(rsmMaxKeys, "rotation keys")) * 20)

	// Scale keyframes (v1.5): frame + scale
	if version.AtLeast(1, 5) {
		rr.skip(int64(rr.count(rsmMaxKeys, "scale keys")) * 16)
	}
}

// ParseRSMMeshFile parses an RSM file from disk.
func ParseRSMMeshFile(path string) (*RSMMesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSMMesh(data)
}
