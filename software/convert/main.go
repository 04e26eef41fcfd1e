// Command convert turns the site banner from WebP into an opaque PNG.
//
// It takes no arguments and always exits 0; the outcome is the single line it
// prints.
package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/disintegration/gift"

	"github.com/atchuuu/pw-studios/software/internal/imagefile"
	"github.com/atchuuu/pw-studios/software/internal/logger"
)

const (
	inputPath  = "client/public/pw-banner.webp"
	outputPath = "client/public/pw-banner.png"

	logLevel = logger.WARN
)

// dropAlpha keeps the stored colour of every pixel and makes it fully opaque.
// Nothing is composited, so transparent areas show whatever RGB they carried.
func dropAlpha(img image.Image) *image.NRGBA {
	opaque := gift.New(gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a float32) {
		return r0, g0, b0, 1
	}))
	dst := image.NewNRGBA(opaque.Bounds(img.Bounds()))
	opaque.Draw(dst, img)
	return dst
}

func convertImage(src, dst string) error {
	img, format, err := imagefile.Open(src)
	if err != nil {
		return err
	}
	logger.Info.Printf("decoded %s (%s, %dx%d)", src, format, img.Bounds().Dx(), img.Bounds().Dy())

	n, err := imagefile.WritePNG(dst, dropAlpha(img), png.DefaultCompression)
	if err != nil {
		return err
	}
	logger.Info.Printf("wrote %s (%d bytes)", dst, n)
	return nil
}

func convert(src, dst string, stdout io.Writer) {
	if err := convertImage(src, dst); err != nil {
		fmt.Fprintf(stdout, "Error converting image: %v\n", err)
		return
	}
	fmt.Fprintf(stdout, "Successfully converted %s to %s\n", src, dst)
}

func main() {
	logger.Initialize(logLevel, os.Stderr)
	convert(inputPath, outputPath, os.Stdout)
}
