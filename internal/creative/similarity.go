package creative

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"
)

// hashSide is the edge of the downsampled grid used for average hashing.
const hashSide = 8

// averageHash computes a 64-bit average hash of an image: the image is
// reduced to an 8x8 grayscale grid by block averaging and each bit records
// whether a cell is brighter than the grid mean.
func averageHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0, fmt.Errorf("empty image %s", path)
	}

	var cells [hashSide * hashSide]float64
	var counts [hashSide * hashSide]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		cy := (y - b.Min.Y) * hashSide / b.Dy()
		for x := b.Min.X; x < b.Max.X; x++ {
			cx := (x - b.Min.X) * hashSide / b.Dx()
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
			cells[cy*hashSide+cx] += lum
			counts[cy*hashSide+cx]++
		}
	}

	var mean float64
	for i := range cells {
		if counts[i] > 0 {
			cells[i] /= float64(counts[i])
		}
		mean += cells[i]
	}
	mean /= float64(len(cells))

	var hash uint64
	for i, v := range cells {
		if v > mean {
			hash |= 1 << uint(i)
		}
	}
	return hash, nil
}

// hashSimilarity is the share of matching bits between two hashes, 0-100.
func hashSimilarity(a, b uint64) float64 {
	return 100 * float64(64-bits.OnesCount64(a^b)) / 64
}

// Similarity scores how close the slides are to the reference set (0-100).
// For every slide the closest reference is taken and the results are
// averaged. It returns neutral when there are no references or nothing
// could be hashed.
func Similarity(images, references []string, neutral float64) float64 {
	if len(images) == 0 || len(references) == 0 {
		return neutral
	}

	var refHashes []uint64
	for _, ref := range references {
		h, err := averageHash(ref)
		if err != nil {
			continue
		}
		refHashes = append(refHashes, h)
	}
	if len(refHashes) == 0 {
		return neutral
	}

	var sum float64
	var n int
	for _, img := range images {
		h, err := averageHash(img)
		if err != nil {
			continue
		}
		best := 0.0
		for _, rh := range refHashes {
			if s := hashSimilarity(h, rh); s > best {
				best = s
			}
		}
		sum += best
		n++
	}
	if n == 0 {
		return neutral
	}
	return sum / float64(n)
}
