// Command silence-check verifies that audio files contain only silence.
//
// Usage:
//
//	silence-check [options] <file-or-directory>...
//
// Options:
//
//	-recursive     Scan directories recursively
//	-threshold     Level in dBFS at or below which a file counts as silent
//	-zero          Require every payload byte to be zero
//
// A file whose payload is all zero bytes always passes.
//	-verbose       Print the full level report for each file
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"silentwav/dsp"
	"silentwav/internal/inspect"
)

// ErrNotSilent is returned by run when at least one file failed the check.
var ErrNotSilent = errors.New("not all files are silent")

type options struct {
	recursive   bool
	thresholdDB float64
	zero        bool
	verbose     bool
}

func main() {
	var opts options

	flag.BoolVar(&opts.recursive, "recursive", false, "Scan directories recursively")
	flag.Float64Var(&opts.thresholdDB, "threshold", dsp.DefaultSilenceThresholdDB, "Silence threshold in dBFS")
	flag.BoolVar(&opts.zero, "zero", false, "Require every payload byte to be zero")
	flag.BoolVar(&opts.verbose, "verbose", false, "Print the full level report for each file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <file-or-directory>...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Checks WAV and AIFF files for silence.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s ./out/silence.wav\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -recursive -zero ./fixtures\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Args(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(paths []string, opts options, out io.Writer) error {
	var files []string

	for _, p := range paths {
		found, err := findAudioFiles(p, opts.recursive)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", p, err)
		}

		files = append(files, found...)
	}

	if len(files) == 0 {
		return fmt.Errorf("no audio files found in %s", strings.Join(paths, ", "))
	}

	analyzer, err := dsp.NewAnalyzer()
	if err != nil {
		return err
	}

	var failed int

	for _, path := range files {
		res, err := inspect.File(path, analyzer)
		if err != nil {
			fmt.Fprintf(out, "ERROR %s: %v\n", path, err)
			failed++

			continue
		}

		status := "OK   "
		if !res.Silent(opts.thresholdDB, opts.zero) {
			status = "LOUD "
			failed++
		}

		if opts.verbose {
			fmt.Fprintf(out, "%s%s\n", status, res)
		} else {
			fmt.Fprintf(out, "%s%s (%s, %d frames, peak %.1f dBFS)\n",
				status, path, res.Container, res.Frames, res.Report.PeakDB)
		}
	}

	fmt.Fprintf(out, "Checked %d files, %d failed\n", len(files), failed)

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrNotSilent, failed, len(files))
	}

	return nil
}

// findAudioFiles returns path itself if it is a file, or the WAV/AIFF files below it.
func findAudioFiles(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string

	walkFn := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip subdirectories if not recursive
		if d.IsDir() && p != path && !recursive {
			return fs.SkipDir
		}

		if !d.IsDir() && isAudioFile(p) {
			files = append(files, p)
		}

		return nil
	}

	if err := filepath.WalkDir(path, walkFn); err != nil {
		return nil, err
	}

	return files, nil
}

func isAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave", ".aif", ".aiff", ".aifc":
		return true
	}

	return false
}
