package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-strips/pkg/strip"
)

// ErrInvalidIndexList is returned for tokens that are not vertex indices.
var ErrInvalidIndexList = errors.New("invalid index list")

// ParseIndexList reads a text index list: decimal vertex indices separated by
// whitespace or commas, three per triangle. Lines starting with '#' are comments.
func ParseIndexList(r io.Reader) ([]strip.Index, error) {
	var indices []strip.Index

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		for _, f := range fields {
			v, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %q", ErrInvalidIndexList, line, f)
			}
			indices = append(indices, strip.Index(v))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return indices, nil
}

// ParseIndexListFile reads a text index list from disk.
func ParseIndexListFile(path string) ([]strip.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseIndexList(f)
}

// WriteIndexList writes indices as text, one triangle per line.
func WriteIndexList(w io.Writer, indices []strip.Index) error {
	bw := bufio.NewWriter(w)
	for i, v := range indices {
		switch {
		case i == 0:
		case i%3 == 0:
			bw.WriteByte('\n')
		default:
			bw.WriteByte(' ')
		}
		bw.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	if len(indices) > 0 {
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
