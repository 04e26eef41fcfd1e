// Command optimize shrinks an image in place by reducing it to a 256 colour
// palette and re-encoding it as a maximally compressed PNG.
//
// Usage:
//
//	optimize <path_to_png>
//
// The original is only replaced once the new file is fully written. The
// command always exits 0 and reports problems on stdout.
package main

import (
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/atchuuu/pw-studios/software/internal/imagefile"
	"github.com/atchuuu/pw-studios/software/internal/logger"
	"github.com/atchuuu/pw-studios/software/internal/palette"
	"github.com/atchuuu/pw-studios/software/internal/report"
)

const (
	paletteSize      = palette.MaxColors
	compressionLevel = png.BestCompression

	logLevel = logger.WARN
)

var errNotFound = errors.New("file not found")

func optimize(path string, stdout io.Writer) error {
	exists, err := imagefile.Exists(path)
	if err != nil {
		return errors.Wrapf(err, "could not check '%s'", path)
	}
	if !exists {
		return errNotFound
	}

	originalSize, err := imagefile.Size(path)
	if err != nil {
		return err
	}

	img, format, err := imagefile.Open(path)
	if err != nil {
		return err
	}
	logger.Info.Printf("decoded %s (%s, %dx%d, %d bytes)", path, format, img.Bounds().Dx(), img.Bounds().Dy(), originalSize)

	quantized := palette.Quantize(img, paletteSize)
	logger.Debug.Printf("palette has %d colours", len(quantized.Palette))

	newSize, err := imagefile.WritePNG(path, quantized, compressionLevel)
	if err != nil {
		return err
	}

	r := report.SizeReport{Path: path, Original: originalSize, Optimized: newSize}
	if _, err := r.WriteTo(stdout); err != nil {
		logger.Warn.Printf("could not print report: %v", err)
	}
	return nil
}

func run(args []string, stdout io.Writer) {
	if len(args) < 1 {
		fmt.Fprintln(stdout, "Usage: optimize <path_to_png>")
		return
	}
	path := args[0]

	err := optimize(path, stdout)
	switch {
	case err == nil:
	case errors.Is(err, errNotFound):
		fmt.Fprintf(stdout, "Error: File '%s' not found.\n", path)
	case errors.Is(err, imagefile.ErrUnsupportedFormat):
		fmt.Fprintf(stdout, "An error occurred: '%s' is not in a recognized image format.\n", path)
		fmt.Fprintf(stdout, "Supported formats: %s.\n", strings.Join(imagefile.Formats, ", "))
	default:
		fmt.Fprintf(stdout, "An error occurred: %v\n", err)
	}
}

func main() {
	logger.Initialize(logLevel, os.Stderr)
	run(os.Args[1:], os.Stdout)
}
