// Package imagefile reads images by content and writes PNGs without ever
// leaving a half-written target behind.
package imagefile

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/atchuuu/pw-studios/software/internal/logger"
)

// Formats lists the decoders compiled into the tools.
var Formats = []string{"png", "jpeg", "gif", "bmp", "tiff", "webp"}

// ErrUnsupportedFormat means the content matched none of Formats.
var ErrUnsupportedFormat = errors.New("unrecognized image format")

// Decode sniffs the format from the stream content, never from a file name.
// The returned format name is empty when the header did not fit the sniffing window.
func Decode(r io.Reader) (image.Image, string, error) {
	br := bufio.NewReader(r)

	// DecodeConfig only needs the header, so peek it and replay for the full decode.
	header, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", errors.Wrap(err, "reading image header")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(header))
	if err != nil {
		if stderrors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		// Some headers are longer than the peek window; let the full decode decide.
		logger.Debug.Printf("header sniff failed: %v", err)
	} else {
		logger.Debug.Printf("detected %s image %dx%d", format, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(br)
	if err != nil {
		if stderrors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, "", errors.Wrap(err, "decoding image")
	}
	return img, format, nil
}

func Open(path string) (image.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	img, format, err := Decode(file)
	if err != nil {
		if stderrors.Is(err, ErrUnsupportedFormat) {
			return nil, "", err
		}
		return nil, "", errors.Wrapf(err, "could not read image '%s'", path)
	}
	return img, format, nil
}

// Exists reports false only when the path is definitely absent.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if stderrors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// WritePNG encodes img into a temporary sibling of path and renames it over
// path once the data is on disk. It returns the number of bytes written.
// On failure path is left exactly as it was.
//
// A symlinked path is written through: the link stays and its target is replaced.
func WritePNG(path string, img image.Image, level png.CompressionLevel) (int64, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	mode := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return 0, errors.Wrapf(err, "could not create temporary file for '%s'", path)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
		return 0, errors.Wrapf(err, "could not encode PNG '%s'", path)
	}
	if err := w.Flush(); err != nil {
		return 0, errors.Wrapf(err, "could not flush PNG data for '%s'", path)
	}
	if err := tmp.Sync(); err != nil {
		return 0, errors.Wrapf(err, "could not sync '%s'", tmpPath)
	}
	info, err := tmp.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "could not stat '%s'", tmpPath)
	}
	if err := tmp.Chmod(mode); err != nil {
		return 0, errors.Wrapf(err, "could not set mode on '%s'", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Wrapf(err, "could not close '%s'", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, errors.Wrapf(err, "could not replace '%s'", path)
	}
	committed = true

	logger.Debug.Printf("wrote %s (%d bytes)", path, info.Size())
	return info.Size(), nil
}
