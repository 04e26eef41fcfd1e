package main

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 WebP files: a lossless VP8L image and a lossy VP8 image with an ALPH
// chunk inside a VP8X container.
const (
	losslessWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="
	alphaWebP    = "UklGRkoAAABXRUJQVlA4WAoAAAAQAAAAAAAAAAAAQUxQSAwAAAARBxAR/Q9ERP8DAABWUDggGAAAABQBAJ0BKgEAAQAAAP4AAA3AAP7mtQAAAA=="
)

func translucent(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 9), G: uint8(y * 9), B: 77, A: uint8(x * y)})
		}
	}
	return img
}

func encodeFile(t *testing.T, path string, encode func(*bytes.Buffer) error) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, encode(&buf))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestConvert_PNGWithAlpha(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "banner.webp")
	dst := filepath.Join(dir, "banner.png")
	encodeFile(t, src, func(b *bytes.Buffer) error { return png.Encode(b, translucent(24, 12)) })

	var out bytes.Buffer
	convert(src, dst, &out)
	a.Equal("Successfully converted "+src+" to "+dst+"\n", out.String())

	f, err := os.Open(dst)
	r.NoError(err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	r.NoError(err)
	a.Equal(24, cfg.Width)
	a.Equal(12, cfg.Height)
	// Colour type 2 (RGB) decodes with the RGBA model; type 6 would be NRGBA.
	a.Equal(color.RGBAModel, cfg.ColorModel)
}

func TestConvert_WebPSource(t *testing.T) {
	for name, fixture := range map[string]string{"lossless": losslessWebP, "alpha": alphaWebP} {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)
			r := require.New(t)
			dir := t.TempDir()
			src := filepath.Join(dir, "pw-banner.webp")
			dst := filepath.Join(dir, "pw-banner.png")

			data, err := base64.StdEncoding.DecodeString(fixture)
			r.NoError(err)
			r.NoError(os.WriteFile(src, data, 0644))

			var out bytes.Buffer
			convert(src, dst, &out)
			r.Equal("Successfully converted "+src+" to "+dst+"\n", out.String())

			f, err := os.Open(dst)
			r.NoError(err)
			defer f.Close()

			cfg, err := png.DecodeConfig(f)
			r.NoError(err)
			a.Equal(1, cfg.Width)
			a.Equal(1, cfg.Height)
			a.Equal(color.RGBAModel, cfg.ColorModel)
		})
	}
}

func TestConvert_KeepsStoredColour(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "out.png")

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 10})
	img.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	encodeFile(t, src, func(b *bytes.Buffer) error { return png.Encode(b, img) })

	var out bytes.Buffer
	convert(src, dst, &out)
	r.Contains(out.String(), "Successfully converted")

	f, err := os.Open(dst)
	r.NoError(err)
	defer f.Close()
	decoded, err := png.Decode(f)
	r.NoError(err)

	a.Equal(color.RGBA{R: 200, G: 100, B: 50, A: 255}, decoded.At(0, 0))
	a.Equal(color.RGBA{R: 1, G: 2, B: 3, A: 255}, decoded.At(1, 0))
}

func TestConvert_JPEGSource(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.webp")
	dst := filepath.Join(dir, "photo.png")
	encodeFile(t, src, func(b *bytes.Buffer) error { return jpeg.Encode(b, translucent(31, 17), nil) })

	var out bytes.Buffer
	convert(src, dst, &out)
	r.Contains(out.String(), "Successfully converted")

	f, err := os.Open(dst)
	r.NoError(err)
	defer f.Close()
	decoded, err := png.Decode(f)
	r.NoError(err)
	assert.Equal(t, image.Rect(0, 0, 31, 17), decoded.Bounds())
}

func TestConvert_OverwritesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "out.png")
	encodeFile(t, src, func(b *bytes.Buffer) error { return png.Encode(b, translucent(3, 3)) })
	require.NoError(t, os.WriteFile(dst, []byte("stale"), 0644))

	var out bytes.Buffer
	convert(src, dst, &out)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestConvert_MissingSource(t *testing.T) {
	a := assert.New(t)
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.png")

	var out bytes.Buffer
	convert(filepath.Join(dir, "missing.webp"), dst, &out)

	a.Contains(out.String(), "Error converting image: ")
	a.Contains(out.String(), "missing.webp")
	a.NoFileExists(dst)
}

func TestConvert_CorruptSource(t *testing.T) {
	a := assert.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "in.webp")
	dst := filepath.Join(dir, "out.png")
	require.NoError(t, os.WriteFile(src, []byte("RIFF\x00\x00\x00\x00WEBPjunk"), 0644))

	var out bytes.Buffer
	convert(src, dst, &out)

	a.Contains(out.String(), "Error converting image: ")
	a.Equal(1, bytes.Count(out.Bytes(), []byte("\n")))
	a.NoFileExists(dst)
}

func TestConvert_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	encodeFile(t, src, func(b *bytes.Buffer) error { return png.Encode(b, translucent(3, 3)) })

	var out bytes.Buffer
	convert(src, filepath.Join(dir, "missing", "out.png"), &out)

	assert.Contains(t, out.String(), "Error converting image: ")
}

func TestDropAlpha(t *testing.T) {
	src := translucent(5, 4).SubImage(image.Rect(1, 1, 5, 4))

	rgb := dropAlpha(src)
	assert.Equal(t, image.Rect(0, 0, 4, 3), rgb.Bounds())
	for i := 3; i < len(rgb.Pix); i += 4 {
		assert.Equal(t, uint8(255), rgb.Pix[i])
	}
}

func TestFixedPaths(t *testing.T) {
	assert.Equal(t, "client/public/pw-banner.webp", inputPath)
	assert.Equal(t, "client/public/pw-banner.png", outputPath)
}
