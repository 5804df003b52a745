package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-strips/internal/config"
	"github.com/Faultbox/midgard-strips/internal/logger"
	"github.com/Faultbox/midgard-strips/pkg/formats"
	"github.com/Faultbox/midgard-strips/pkg/strip"
)

// fileResult describes one compressed input file.
type fileResult struct {
	Source      string
	Output      string
	Stats       strip.Stats
	InputBytes  int
	OutputBytes int
	Elapsed     time.Duration
}

func cmdCompress(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usageError("compress <in> [out]")
	}

	in := args[0]
	out := outputPath(in, "", cfg.Output.Format)
	if len(args) > 1 {
		out = args[1]
	}

	r, err := compressFile(ctx, cfg, in, out)
	if err != nil {
		return err
	}

	fmt.Println(r.Stats)
	fmt.Printf("Written: %s (%s, %s as triangle list)\n",
		r.Output, humanize.Bytes(uint64(r.OutputBytes)), humanize.Bytes(uint64(r.InputBytes)))
	return nil
}

func cmdBatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	outDir := fs.String("o", "", "Output directory (default: next to each input)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return usageError("batch [-o dir] <in...>")
	}

	results, err := compressAll(ctx, cfg, fs.Args(), *outDir)
	if err != nil {
		return err
	}

	printBatch(os.Stdout, results)
	return nil
}

// errDuplicateOutput reports two batch inputs that map to one output file.
var errDuplicateOutput = errors.New("inputs share an output path")

// compressAll compresses inputs with at most cfg.Compress.Workers files in
// flight. Results keep input order. The first failure cancels the rest.
func compressAll(ctx context.Context, cfg *config.Config, inputs []string, outDir string) ([]fileResult, error) {
	outputs, err := batchOutputs(inputs, outDir, cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Compress.Workers)

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			r, err := compressFile(ctx, cfg, in, outputs[i])
			if err != nil {
				return err
			}
			results[i] = *r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// batchOutputs resolves the output path of every input. Nothing is written
// when two inputs would land on the same file.
func batchOutputs(inputs []string, outDir, format string) ([]string, error) {
	outputs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		out := filepath.Clean(outputPath(in, outDir, format))
		if prev, ok := seen[out]; ok {
			return nil, fmt.Errorf("%w: %s and %s both write %s", errDuplicateOutput, prev, in, out)
		}
		seen[out] = in
		outputs[i] = out
	}
	return outputs, nil
}

func printBatch(w io.Writer, results []fileResult) {
	var faces, in, out int
	for _, r := range results {
		fmt.Fprintf(w, "%-40s %8d faces %7d strips %5d%%  %s\n",
			r.Source, r.Stats.Faces, r.Stats.Strips, r.Stats.CompressionRate, humanize.Bytes(uint64(r.OutputBytes)))
		faces += r.Stats.Faces
		in += r.InputBytes
		out += r.OutputBytes
	}
	fmt.Fprintf(w, "\n%d files, %s faces, %s -> %s\n",
		len(results), humanize.Comma(int64(faces)), humanize.Bytes(uint64(in)), humanize.Bytes(uint64(out)))
}

// compressFile reads a triangle list, compresses it and writes the result in
// the configured output format.
func compressFile(ctx context.Context, cfg *config.Config, in, out string) (*fileResult, error) {
	indices, err := loadIndices(in)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", in, err)
	}
	if len(indices)%3 != 0 {
		logger.Warn("ignoring incomplete trailing triangle",
			zap.String("source", in),
			zap.Int("indices", len(indices)))
	}

	start := time.Now()
	res, err := strip.CompressContext(ctx, indices, strip.Options{
		Progress:   logger.ProgressLogger(in, cfg.Compress.ProgressEvery),
		LegacyTail: cfg.Compress.LegacyTail,
	})
	if err != nil {
		return nil, fmt.Errorf("compressing %s: %w", in, err)
	}
	elapsed := time.Since(start)

	data, err := encodeResult(cfg, in, res)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", out, err)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return nil, err
	}

	logger.Info("compressed",
		zap.String("source", in),
		zap.String("output", out),
		zap.Int("faces", res.Stats.Faces),
		zap.Int("strips", res.Stats.Strips),
		zap.Int("maxStripLength", res.Stats.MaxStripLength),
		zap.Int("rate", res.Stats.CompressionRate),
		zap.Duration("elapsed", elapsed))

	return &fileResult{
		Source:      in,
		Output:      out,
		Stats:       res.Stats,
		InputBytes:  4 * len(indices),
		OutputBytes: len(data),
		Elapsed:     elapsed,
	}, nil
}

func encodeResult(cfg *config.Config, source string, res strip.Result) ([]byte, error) {
	if cfg.Output.Format == config.FormatYAML {
		return formats.NewReport(source, res, cfg.Output.IncludeStrips).MarshalReport()
	}
	return formats.EncodeSTRP(res, formats.EncodeOptions{
		Compress: cfg.Output.Compression == config.CompressionZstd,
	})
}

// loadIndices picks the reader by extension: .tri and .rsm are binary, anything
// else is a text index list.
func loadIndices(path string) ([]strip.Index, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tri":
		tri, err := formats.ParseTRIFile(path)
		if err != nil {
			return nil, err
		}
		return tri.Indices, nil
	case ".rsm":
		mesh, err := formats.ParseRSMMeshFile(path)
		if err != nil {
			return nil, err
		}
		for _, node := range mesh.Nodes {
			if node.SkippedFaces > 0 {
				logger.Warn("skipped faces with out-of-range vertices",
					zap.String("source", path),
					zap.String("node", node.Name),
					zap.Int("faces", node.SkippedFaces))
			}
		}
		logger.Debug("loaded model",
			zap.String("source", path),
			zap.String("version", mesh.Version.String()),
			zap.Int("nodes", len(mesh.Nodes)),
			zap.Int("vertices", mesh.VertexCount()))
		return mesh.Indices(), nil
	default:
		return formats.ParseIndexListFile(path)
	}
}

// outputPath replaces the input extension with the format's. With dir set the
// file goes there instead of next to the input.
func outputPath(in, dir, format string) string {
	base := strings.TrimSuffix(in, filepath.Ext(in))
	if dir != "" {
		base = filepath.Join(dir, filepath.Base(base))
	}
	return base + "." + format
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return usageError("info <file.strp>")
	}

	fi, err := os.Stat(args[0])
	if err != nil {
		return err
	}

	f, err := formats.ParseSTRPFile(args[0])
	if err != nil {
		return err
	}

	printInfo(os.Stdout, args[0], fi.Size(), f)
	return nil
}

func printInfo(w io.Writer, path string, size int64, f *formats.STRP) {
	body := "raw"
	if f.Flags&formats.STRPFlagZstd != 0 {
		body = "zstd"
	}

	fmt.Fprintf(w, "File:    %s\n", path)
	fmt.Fprintf(w, "Version: %s\n", f.Version)
	fmt.Fprintf(w, "Body:    %s\n", body)
	fmt.Fprintf(w, "Size:    %s\n", humanize.Bytes(uint64(size)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, f.Stats)

	if len(f.Strips) == 0 {
		return
	}

	shortest := f.Strips[0].Len()
	for _, s := range f.Strips {
		shortest = min(shortest, s.Len())
	}
	fmt.Fprintf(w, "Shortest strip: %d vertices\n", shortest)
	fmt.Fprintf(w, "Average strip: %.1f vertices\n", float64(f.Stats.TotalIndices)/float64(len(f.Strips)))
}

func cmdFlatten(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usageError("flatten <file.strp> [out]")
	}

	f, err := formats.ParseSTRPFile(args[0])
	if err != nil {
		return err
	}

	restart := cfg.Output.RestartIndex
	flat, err := flattenStrips(f.Strips, restart)
	if err != nil {
		return err
	}

	if len(args) < 2 {
		return writeFlattened(os.Stdout, flat, restart)
	}

	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer out.Close()

	if err := writeFlattened(out, flat, restart); err != nil {
		return err
	}
	return out.Close()
}

// errRestartCollision reports a strip vertex equal to the restart index.
var errRestartCollision = errors.New("strip uses the restart index as a vertex")

// flattenStrips joins strips with restart, refusing strips in which the
// restart value would be read as a strip boundary.
func flattenStrips(strips []strip.Strip, restart strip.Index) ([]strip.Index, error) {
	for i, s := range strips {
		if pos := slices.Index(s, restart); pos >= 0 {
			return nil, fmt.Errorf("%w: strip %d, position %d (set output.restart_index to an unused value)",
				errRestartCollision, i, pos)
		}
	}
	return strip.Flatten(strips, restart), nil
}

// writeFlattened writes one strip per line; the restart index ends each line.
func writeFlattened(w io.Writer, flat []strip.Index, restart strip.Index) error {
	bw := bufio.NewWriter(w)
	lineStart := true
	for _, v := range flat {
		if !lineStart {
			bw.WriteByte(' ')
		}
		bw.WriteString(strconv.FormatUint(uint64(v), 10))
		lineStart = v == restart
		if lineStart {
			bw.WriteByte('\n')
		}
	}
	if len(flat) > 0 {
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func cmdConvert(args []string) error {
	if len(args) < 2 {
		return usageError("convert <in> <out.tri>")
	}

	indices, err := formats.ParseIndexListFile(args[0])
	if err != nil {
		return err
	}

	data := formats.EncodeTRI(indices)
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		return err
	}

	fmt.Printf("Converted: %s (%s faces, %s)\n",
		args[1], humanize.Comma(int64(len(indices)/3)), humanize.Bytes(uint64(len(data))))
	return nil
}

var errConfigExists = errors.New("config file already exists")

// cmdConfig writes the effective configuration (defaults, file and flags
// merged) so it can be edited. Without a path it goes to the user config dir.
func cmdConfig(cfg *config.Config, args []string) error {
	if len(args) < 1 || args[0] != "init" {
		return usageError("config init [path]")
	}

	path := filepath.Join(config.ConfigDir(), config.FileName)
	if len(args) > 1 {
		path = args[1]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", errConfigExists, path)
	}

	var err error
	if len(args) > 1 {
		err = cfg.SaveTo(path)
	} else {
		err = cfg.Save()
	}
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Written: %s\n", path)
	return nil
}
