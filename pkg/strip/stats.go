package strip

import (
	"fmt"
	"math"
)

// Stats summarizes a compression run.
type Stats struct {
	Faces           int `yaml:"faces"`            // Input triangles
	Strips          int `yaml:"strips"`           // Output strips
	MaxStripLength  int `yaml:"max_strip_length"` // Longest strip, in indices
	CompressionRate int `yaml:"compression_rate"` // Percent saved over 3 indices per face; may be negative

	TotalIndices int `yaml:"total_indices"` // Sum of strip lengths
	NaiveIndices int `yaml:"naive_indices"` // 3 * Faces
}

// ComputeStats derives statistics for strips built from faces triangles.
func ComputeStats(strips []Strip, faces int) Stats {
	st := Stats{
		Faces:        faces,
		Strips:       len(strips),
		NaiveIndices: 3 * faces,
	}

	for _, s := range strips {
		st.TotalIndices += len(s)
		if len(s) > st.MaxStripLength {
			st.MaxStripLength = len(s)
		}
	}

	st.CompressionRate = compressionRate(st.TotalIndices, st.NaiveIndices)
	return st
}

// compressionRate rounds halves up, so -0.5 becomes 0 rather than -1.
func compressionRate(total, naive int) int {
	if naive == 0 {
		return 0
	}
	rate := (1 - float64(total)/float64(naive)) * 100
	return int(math.Floor(rate + 0.5))
}

// String returns the summary printed after a run.
func (s Stats) String() string {
	return fmt.Sprintf("Input: %d triangles\nOutput: %d strips\nLongest strip: %d vertices\nCompression rate: %d%%",
		s.Faces, s.Strips, s.MaxStripLength, s.CompressionRate)
}
