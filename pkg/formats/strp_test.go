package formats

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/midgard-strips/pkg/strip"
)

func sampleResult() strip.Result {
	return strip.Compress([]strip.Index{
		0, 1, 2,
		1, 2, 3,
		2, 3, 4,
		10, 11, 12,
	}, strip.Options{})
}

func TestEncodeSTRP_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
	}{
		{"raw", false},
		{"zstd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sampleResult()

			data, err := EncodeSTRP(res, EncodeOptions{Compress: tt.compress})
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}

			f, err := ParseSTRP(data)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}

			if f.Version.String() != "1.1" {
				t.Errorf("expected version 1.1, got %s", f.Version)
			}
			if got := f.Flags&STRPFlagZstd != 0; got != tt.compress {
				t.Errorf("expected zstd flag %v, got %v", tt.compress, got)
			}
			if !reflect.DeepEqual(f.Strips, res.Strips) {
				t.Errorf("expected strips %v, got %v", res.Strips, f.Strips)
			}
			if f.Stats != res.Stats {
				t.Errorf("expected stats %+v, got %+v", res.Stats, f.Stats)
			}
		})
	}
}

func TestEncodeSTRP_Empty(t *testing.T) {
	data, err := EncodeSTRP(strip.Compress(nil, strip.Options{}), EncodeOptions{})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	f, err := ParseSTRP(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(f.Strips) != 0 {
		t.Errorf("expected no strips, got %d", len(f.Strips))
	}
	if f.Stats != (strip.Stats{}) {
		t.Errorf("expected zero stats, got %+v", f.Stats)
	}
}

func TestParseSTRP_Version10(t *testing.T) {
	// v1.0 has no stats block; stats come from the strips.
	data := []byte{'S', 'T', 'R', 'P', 1, 0, 0, 0}
	data = binary.LittleEndian.AppendUint32(data, 1)
	data = binary.LittleEndian.AppendUint32(data, 4)
	for _, v := range []uint32{0, 1, 2, 3} {
		data = binary.LittleEndian.AppendUint32(data, v)
	}

	f, err := ParseSTRP(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if f.Stats.Faces != 2 {
		t.Errorf("expected 2 faces, got %d", f.Stats.Faces)
	}
	if f.Stats.CompressionRate != 33 {
		t.Errorf("expected rate 33, got %d", f.Stats.CompressionRate)
	}
}

func TestParseSTRP_Errors(t *testing.T) {
	header := func(major, minor uint8) []byte {
		return []byte{'S', 'T', 'R', 'P', major, minor, 0, 0}
	}

	shortStrip := binary.LittleEndian.AppendUint32(header(1, 0), 1)
	shortStrip = binary.LittleEndian.AppendUint32(shortStrip, 2)
	shortStrip = binary.LittleEndian.AppendUint32(shortStrip, 0)
	shortStrip = binary.LittleEndian.AppendUint32(shortStrip, 1)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedSTRPData},
		{"bad magic", []byte("XXXX\x01\x01\x00\x00"), ErrInvalidSTRPMagic},
		{"future major", header(2, 0), ErrUnsupportedSTRPVersion},
		{"future minor", header(1, 2), ErrUnsupportedSTRPVersion},
		{"missing stats", header(1, 1), ErrTruncatedSTRPData},
		{"missing body", header(1, 0), ErrTruncatedSTRPData},
		{"count past end", binary.LittleEndian.AppendUint32(header(1, 0), 5), ErrTruncatedSTRPData},
		{"strip too short", shortStrip, ErrInvalidStripLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSTRP(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseSTRP_ZstdBodyLimit(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}
	bomb := enc.EncodeAll(make([]byte, 1<<20), nil)
	enc.Close()

	stats := func(faces, strips int32) []byte {
		b := []byte{'S', 'T', 'R', 'P', 1, 1, byte(STRPFlagZstd), 0}
		for _, v := range []int32{faces, strips, 3, 0} {
			b = binary.LittleEndian.AppendUint32(b, uint32(v))
		}
		return b
	}

	// One face in one strip needs 20 body bytes; a 1 MiB body is refused.
	if _, err := ParseSTRP(append(stats(1, 1), bomb...)); !errors.Is(err, zstd.ErrDecoderSizeExceeded) {
		t.Errorf("expected ErrDecoderSizeExceeded, got %v", err)
	}

	if _, err := ParseSTRP(append(stats(-1, 1), bomb...)); !errors.Is(err, ErrInvalidSTRPStats) {
		t.Errorf("expected ErrInvalidSTRPStats, got %v", err)
	}

	// The limit derived from the stats block still admits what EncodeSTRP writes.
	data, err := EncodeSTRP(sampleResult(), EncodeOptions{Compress: true})
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if _, err := ParseSTRP(data); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMaxStripBodySize(t *testing.T) {
	res := sampleResult()
	body := encodeStripBody(res.Strips)
	if got := maxStripBodySize(res.Stats.Faces, res.Stats.Strips); got != uint64(len(body)) {
		t.Errorf("expected bound %d, got %d", len(body), got)
	}
}
