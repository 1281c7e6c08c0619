// Package dedupe flags perceptual duplicates among the source images of one
// import job. Fingerprints never outlive the job and are never persisted.
package dedupe

import (
	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
)

// DefaultDistanceThreshold is the maximum Hamming distance between two
// average-hash fingerprints (64 bits) at which images are considered
// duplicates. Tunable; 5 catches re-encoded and re-oriented copies of the
// same photo without flagging distinct garments.
const DefaultDistanceThreshold = 5

// Detector tracks the fingerprints accepted so far in one job. Not safe for
// concurrent use; the import worker processes items sequentially.
type Detector struct {
	threshold int
	accepted  []*goimagehash.ImageHash
}

// NewDetector creates a detector with the default distance threshold
func NewDetector() *Detector {
	return NewDetectorWithThreshold(DefaultDistanceThreshold)
}

// NewDetectorWithThreshold creates a detector with a custom distance threshold
func NewDetectorWithThreshold(threshold int) *Detector {
	return &Detector{threshold: threshold}
}

// IsDuplicate reports whether the image at path is perceptually identical to
// one already accepted. When it is not, its fingerprint is recorded for
// future comparisons; duplicates are never recorded.
//
// If the image cannot be decoded or hashed the entry is accepted (graceful
// degradation) - a broken file will fail later in the pipeline with a more
// useful error than a hashing diagnostic.
func (d *Detector) IsDuplicate(path string) bool {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return false
	}

	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return false
	}

	for _, h := range d.accepted {
		dist, err := hash.Distance(h)
		if err == nil && dist <= d.threshold {
			return true
		}
	}

	d.accepted = append(d.accepted, hash)
	return false
}
