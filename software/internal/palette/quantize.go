package palette

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// Quantize returns m as an indexed image with at most colors palette
// entries. colors is clamped to [1, MaxColors]. The result starts at (0,0).
// Unused entries are dropped and the rest are ordered by how many pixels
// use them, so quantizing the result again reproduces it exactly.
func Quantize(m image.Image, colors int) *image.Paletted {
	if colors < 1 {
		colors = 1
	}
	if colors > MaxColors {
		colors = MaxColors
	}

	src := imaging.Clone(m)
	chosen := build(src, colors)

	pal := make(color.Palette, len(chosen))
	for i, c := range chosen {
		pal[i] = c
	}

	dst := image.NewPaletted(src.Bounds(), pal)
	cache := make(map[uint32]uint8, len(chosen))
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		si := src.PixOffset(b.Min.X, y)
		di := dst.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			s := src.Pix[si : si+4 : si+4]
			key := pack(color.NRGBA{R: s[0], G: s[1], B: s[2], A: s[3]})
			idx, ok := cache[key]
			if !ok {
				idx = uint8(nearest(chosen, unpack(key)))
				cache[key] = idx
			}
			dst.Pix[di] = idx
			si += 4
			di++
		}
	}

	compact(dst, chosen)
	return dst
}

func compact(dst *image.Paletted, chosen []color.NRGBA) {
	used := make([]int, len(chosen))
	for _, idx := range dst.Pix {
		used[idx]++
	}

	order := make([]int, 0, len(chosen))
	for i, n := range used {
		if n > 0 {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if used[a] != used[b] {
			return used[a] > used[b]
		}
		return pack(chosen[a]) < pack(chosen[b])
	})

	remap := make([]uint8, len(chosen))
	pal := make(color.Palette, len(order))
	for i, old := range order {
		remap[old] = uint8(i)
		pal[i] = chosen[old]
	}
	for i, idx := range dst.Pix {
		dst.Pix[i] = remap[idx]
	}
	dst.Palette = pal
}

// Index returns the entry of p closest to c.
func Index(p color.Palette, c color.NRGBA) int {
	colors := make([]color.NRGBA, len(p))
	for i, pc := range p {
		colors[i] = color.NRGBAModel.Convert(pc).(color.NRGBA)
	}
	return nearest(colors, c)
}

func nearest(p []color.NRGBA, c color.NRGBA) int {
	best := 0
	bestDist := uint32(math.MaxUint32)
	for i, pc := range p {
		dr := int32(c.R) - int32(pc.R)
		dg := int32(c.G) - int32(pc.G)
		db := int32(c.B) - int32(pc.B)
		da := int32(c.A) - int32(pc.A)
		dist := uint32(dr*dr + dg*dg + db*db + da*da)
		if dist < bestDist {
			bestDist = dist
			best = i
		}
		if dist == 0 {
			break
		}
	}
	return best
}
