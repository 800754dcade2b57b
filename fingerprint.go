package ecoscan

import (
	"image"

	"github.com/corona10/goimagehash"
)

// duplicateThreshold is the maximum Hamming distance between two dHash
// values below which images are considered perceptually identical.
const duplicateThreshold = 10

// PerceptualHash returns the difference hash of img.
func PerceptualHash(img image.Image) (*goimagehash.ImageHash, error) {
	return goimagehash.DifferenceHash(img)
}

// markDuplicates compares hashes pairwise in input order and returns, for
// each index, the earliest earlier index it duplicates (or -1). Nil hashes
// never match.
func markDuplicates(hashes []*goimagehash.ImageHash) []int {
	dups := make([]int, len(hashes))
	for i := range dups {
		dups[i] = -1
	}
	for i, h := range hashes {
		if h == nil {
			continue
		}
		for j := range i {
			if hashes[j] == nil || dups[j] >= 0 {
				continue
			}
			if dist, err := h.Distance(hashes[j]); err == nil && dist < duplicateThreshold {
				dups[i] = j
				break
			}
		}
	}
	return dups
}
