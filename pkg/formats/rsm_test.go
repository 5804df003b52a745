package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Faultbox/midgard-strips/pkg/strip"
)

// testRSMNode describes a node for makeRSM.
type testRSMNode struct {
	name     string
	parent   string
	vertices int
	faces    [][3]uint16
	rotKeys  int
}

func putString(buf *bytes.Buffer, s string, length int) {
	b := make([]byte, length)
	copy(b, s)
	buf.Write(b)
}

func putInt32(buf *bytes.Buffer, v int32) {
	binary.Write(buf, binary.LittleEndian, v)
}

// makeRSM builds an RSM file with the given nodes and one texture.
func makeRSM(major, minor uint8, nodes []testRSMNode) []byte {
	var buf bytes.Buffer
	atLeast := func(mi uint8) bool { return major > 1 || minor >= mi }

	buf.WriteString("GRSM")
	buf.Write([]byte{major, minor})

	// Animation length, shading type
	putInt32(&buf, 0)
	putInt32(&buf, 2)

	// Alpha (v1.4+)
	if atLeast(4) {
		buf.WriteByte(255)
	}

	// Reserved
	buf.Write(make([]byte, 16))

	// Textures
	putInt32(&buf, 1)
	putString(&buf, "test.bmp", 40)

	rootName := ""
	if len(nodes) > 0 {
		rootName = nodes[0].name
	}
	putString(&buf, rootName, 40)

	putInt32(&buf, int32(len(nodes)))
	for _, n := range nodes {
		putString(&buf, n.name, 40)
		putString(&buf, n.parent, 40)

		// Node textures
		putInt32(&buf, 1)
		putInt32(&buf, 0)

		// Transform
		buf.Write(make([]byte, 88))

		putInt32(&buf, int32(n.vertices))
		buf.Write(make([]byte, 12*n.vertices))

		// One texture coordinate
		putInt32(&buf, 1)
		if atLeast(2) {
			buf.Write([]byte{255, 255, 255, 255})
		}
		buf.Write(make([]byte, 8))

		putInt32(&buf, int32(len(n.faces)))
		for _, f := range n.faces {
			binary.Write(&buf, binary.LittleEndian, f)
			buf.Write(make([]byte, 6+2+2+4))
			if atLeast(2) {
				putInt32(&buf, 0)
			}
		}

		if !atLeast(5) {
			putInt32(&buf, 0) // position keys
		}
		putInt32(&buf, int32(n.rotKeys))
		buf.Write(make([]byte, 20*n.rotKeys))
		if atLeast(5) {
			putInt32(&buf, 0) // scale keys
		}
	}

	// Volume boxes
	putInt32(&buf, 0)

	return buf.Bytes()
}

func TestParseRSMMesh_MagicValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "valid magic",
			data:    makeRSM(1, 5, nil),
			wantErr: nil,
		},
		{
			name:    "invalid magic",
			data:    append([]byte("XXXX"), makeRSM(1, 5, nil)[4:]...),
			wantErr: ErrInvalidRSMMagic,
		},
		{
			name:    "empty data",
			data:    []byte{},
			wantErr: ErrTruncatedRSMData,
		},
		{
			name:    "truncated data",
			data:    []byte{'G', 'R', 'S'},
			wantErr: ErrTruncatedRSMData,
		},
		{
			name:    "truncated header",
			data:    makeRSM(1, 5, nil)[:30],
			wantErr: ErrTruncatedRSMData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSMMesh(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseRSMMesh_VersionSupport(t *testing.T) {
	tests := []struct {
		name    string
		major   uint8
		minor   uint8
		wantErr bool
	}{
		{"v1.1", 1, 1, false},
		{"v1.2", 1, 2, false},
		{"v1.3", 1, 3, false},
		{"v1.4", 1, 4, false},
		{"v1.5", 1, 5, false},
		{"v0.1 unsupported", 0, 1, true},
		{"v2.2 unsupported", 2, 2, true},
	}

	node := []testRSMNode{{name: "root", vertices: 3, faces: [][3]uint16{{0, 1, 2}}, rotKeys: 1}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := ParseRSMMesh(makeRSM(tt.major, tt.minor, node))
			if (err != nil) != tt.wantErr {
				t.Fatalf("version %d.%d: got error=%v, wantErr=%v", tt.major, tt.minor, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrUnsupportedRSMVersion) {
					t.Errorf("expected ErrUnsupportedRSMVersion, got %v", err)
				}
				return
			}
			if mesh.FaceCount() != 1 {
				t.Errorf("version %d.%d: expected 1 face, got %d", tt.major, tt.minor, mesh.FaceCount())
			}
		})
	}
}

func TestParseRSMMesh_Nodes(t *testing.T) {
	data := makeRSM(1, 4, []testRSMNode{
		{name: "root", vertices: 4, faces: [][3]uint16{{0, 1, 2}, {1, 2, 3}}},
		{name: "door", parent: "root", vertices: 3, faces: [][3]uint16{{0, 1, 2}, {0, 1, 9}}, rotKeys: 2},
	})

	mesh, err := ParseRSMMesh(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mesh.RootNode != "root" {
		t.Errorf("expected root node 'root', got %q", mesh.RootNode)
	}
	if len(mesh.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(mesh.Nodes))
	}

	door := mesh.Nodes[1]
	if door.Parent != "root" {
		t.Errorf("expected parent 'root', got %q", door.Parent)
	}
	if door.VertexBase != 4 {
		t.Errorf("expected vertex base 4, got %d", door.VertexBase)
	}
	if door.SkippedFaces != 1 {
		t.Errorf("expected 1 skipped face, got %d", door.SkippedFaces)
	}

	want := []strip.Index{0, 1, 2, 1, 2, 3, 4, 5, 6}
	if got := mesh.Indices(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected indices %v, got %v", want, got)
	}
	if mesh.VertexCount() != 7 {
		t.Errorf("expected 7 vertices, got %d", mesh.VertexCount())
	}
	if mesh.FaceCount() != 3 {
		t.Errorf("expected 3 faces, got %d", mesh.FaceCount())
	}
}

func TestParseRSMMesh_InvalidCounts(t *testing.T) {
	data := makeRSM(1, 5, nil)

	// Node count sits right before the trailing volume box count
	badNodes := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(badNodes[len(badNodes)-8:], 0xFFFFFFFF)
	if _, err := ParseRSMMesh(badNodes); !errors.Is(err, ErrInvalidNodeCount) {
		t.Errorf("expected ErrInvalidNodeCount, got %v", err)
	}

	node := makeRSM(1, 5, []testRSMNode{{name: "root", vertices: 3}})
	if _, err := ParseRSMMesh(node[:len(node)-20]); !errors.Is(err, ErrTruncatedRSMData) {
		t.Errorf("expected ErrTruncatedRSMData for cut node, got %v", err)
	}
}

func TestParseRSMMeshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.rsm")
	data := makeRSM(1, 5, []testRSMNode{{name: "root", vertices: 3, faces: [][3]uint16{{2, 1, 0}}}})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write RSM: %v", err)
	}

	mesh, err := ParseRSMMeshFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(mesh.Indices(), []strip.Index{2, 1, 0}) {
		t.Errorf("unexpected indices %v", mesh.Indices())
	}

	if _, err := ParseRSMMeshFile(filepath.Join(t.TempDir(), "missing.rsm")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
