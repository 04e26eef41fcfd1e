// Package palette reduces images to a small indexed palette.
//
// The quantizer is a fast approximation of an octree: colours are bucketed
// by their top bits on a fine and a coarse tree level. The most populated
// fine nodes become palette entries and each coarse node stands in for the
// rest of its subtree. Images that already fit in the palette keep their
// exact colours.
package palette

import (
	"image"
	"image/color"
	"image/draw"
	"math/bits"
	"sort"

	"github.com/disintegration/imaging"
)

// MaxColors is the largest palette a PNG can carry.
const MaxColors = 256

// Tree levels used for the palette: fine nodes keep 4 bits per channel,
// coarse nodes keep 2.
const (
	fineShift   = 4
	coarseShift = 6
)

// FastOctree implements draw.Quantizer.
type FastOctree struct{}

var _ draw.Quantizer = FastOctree{}

// Quantize appends up to cap(p)-len(p) colours chosen from m to p.
func (q FastOctree) Quantize(p color.Palette, m image.Image) color.Palette {
	wanted := cap(p) - len(p)
	if wanted <= 0 {
		return p
	}
	for _, c := range build(imaging.Clone(m), wanted) {
		p = append(p, c)
	}
	return p
}

type leaf struct {
	key        uint32
	count      uint64
	r, g, b, a uint64
}

func (l *leaf) add(key uint32, n int) {
	w := uint64(n)
	l.count += w
	l.r += uint64(key>>24) * w
	l.g += uint64(key>>16&0xff) * w
	l.b += uint64(key>>8&0xff) * w
	l.a += uint64(key&0xff) * w
}

func (l *leaf) remove(child *leaf) {
	l.count -= child.count
	l.r -= child.r
	l.g -= child.g
	l.b -= child.b
	l.a -= child.a
}

func (l *leaf) mean() color.NRGBA {
	half := l.count / 2
	return color.NRGBA{
		R: uint8((l.r + half) / l.count),
		G: uint8((l.g + half) / l.count),
		B: uint8((l.b + half) / l.count),
		A: uint8((l.a + half) / l.count),
	}
}

func pack(c color.NRGBA) uint32 {
	if c.A == 0 {
		return 0
	}
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

func unpack(k uint32) color.NRGBA {
	return color.NRGBA{R: uint8(k >> 24), G: uint8(k >> 16), B: uint8(k >> 8), A: uint8(k)}
}

func histogram(img *image.NRGBA) map[uint32]int {
	hist := make(map[uint32]int)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x, i = x+1, i+4 {
			s := img.Pix[i : i+4 : i+4]
			hist[pack(color.NRGBA{R: s[0], G: s[1], B: s[2], A: s[3]})]++
		}
	}
	return hist
}

func levelMask(shift uint) uint32 {
	m := uint32(uint8(0xff << shift))
	return m<<24 | m<<16 | m<<8 | m
}

// fold merges histogram entries into the tree level that keeps the top
// 8-shift bits of every channel.
func fold(hist map[uint32]int, shift uint) map[uint32]*leaf {
	mask := levelMask(shift)
	nodes := make(map[uint32]*leaf)
	for key, n := range hist {
		parent := key & mask
		l, ok := nodes[parent]
		if !ok {
			l = &leaf{key: parent}
			nodes[parent] = l
		}
		l.add(key, n)
	}
	return nodes
}

// popular returns the n most populated nodes. Equal populations are ordered
// by the bit-reversed key so ties spread across the colour space instead of
// piling up at low red values.
func popular(nodes map[uint32]*leaf, n int) []*leaf {
	leaves := make([]*leaf, 0, len(nodes))
	for _, l := range nodes {
		if l.count > 0 {
			leaves = append(leaves, l)
		}
	}
	sort.Slice(leaves, func(i, j int) bool {
		if leaves[i].count != leaves[j].count {
			return leaves[i].count > leaves[j].count
		}
		return bits.Reverse32(leaves[i].key) < bits.Reverse32(leaves[j].key)
	})
	if len(leaves) > n {
		leaves = leaves[:n]
	}
	return leaves
}

func means(leaves []*leaf) []color.NRGBA {
	colors := make([]color.NRGBA, len(leaves))
	for i, l := range leaves {
		colors[i] = l.mean()
	}
	return colors
}

// build picks the palette. Small images keep their exact colours. Otherwise
// the most populated fine nodes are kept as they are, and every coarse node
// contributes the mean of the pixels its chosen fine children did not
// cover, so no region of the colour space is left without an entry.
func build(img *image.NRGBA, wanted int) []color.NRGBA {
	hist := histogram(img)
	if len(hist) == 0 {
		return []color.NRGBA{{}}
	}
	if len(hist) <= wanted {
		return means(popular(fold(hist, 0), wanted))
	}

	shift := uint(coarseShift)
	coarse := fold(hist, shift)
	if len(coarse) > wanted/2 {
		shift = 7
		coarse = fold(hist, shift)
	}
	if len(coarse) >= wanted {
		return means(popular(coarse, wanted))
	}

	fine := popular(fold(hist, fineShift), wanted-len(coarse))
	mask := levelMask(shift)
	for _, l := range fine {
		coarse[l.key&mask].remove(l)
	}
	return append(means(fine), means(popular(coarse, len(coarse)))...)
}
