package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"

	"fieldops-service/models"
)

var (
	macRe     = regexp.MustCompile(`(?i)\b([0-9A-F]{12})\b`)
	rsnRe     = regexp.MustCompile(`(?i)\b(?:RSN|SR|SN)[:\s-]*([A-Z0-9-]{4,})\b`)
	azimuthRe = regexp.MustCompile(`(?i)(?:^|[^0-9.])([0-3]?[0-9]{1,2})(?:\s*(?:°|deg|degrees))?\b`)
)

// ExtractCaptionFields pulls the structured fields workers type into
// photo captions: a 12-hex-digit MAC, an RSN/SR/SN serial, and a
// compass bearing in degrees (0-360).
func ExtractCaptionFields(caption string) (macID, rsn string, azimuthDeg *float64) {
	if m := macRe.FindStringSubmatch(caption); m != nil {
		macID = strings.ToUpper(m[1])
	}
	if m := rsnRe.FindStringSubmatch(caption); m != nil {
		rsn = strings.ToUpper(m[1])
	}
	// Strip the MAC and serial before looking for a bearing so their
	// digit runs are not mistaken for one.
	scrubbed := caption
	if macID != "" {
		scrubbed = macRe.ReplaceAllString(scrubbed, " ")
	}
	if rsn != "" {
		scrubbed = rsnRe.ReplaceAllString(scrubbed, " ")
	}
	for _, m := range azimuthRe.FindAllStringSubmatch(scrubbed, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v < 0 || v > 360 {
			continue
		}
		azimuthDeg = &v
		break
	}
	return macID, rsn, azimuthDeg
}

// Validator runs the photo acceptance checks.
type Validator struct {
	MinWidth           int
	MinHeight          int
	SharpnessThreshold float64
	DuplicateDistance  int
}

// Validate decodes the image and applies, in order: decodability,
// minimum resolution, sharpness, duplicate detection against the
// job's earlier accepted photos, and caption field extraction for
// the types that require it. The first failing check decides the
// result; a photo never fails for more than one reason.
func (v *Validator) Validate(data []byte, caption, ptype string, priorHashes []uint64) models.ValidationResult {
	res := models.ValidationResult{Status: models.PhotoPass}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		res.Status = models.PhotoFail
		res.Reason = "image could not be decoded"
		return res
	}
	// Phone JPEGs routinely store rotated pixels with an EXIF tag
	// instead of rotating the image; the hash must see them upright.
	if o := exifOrientation(data); o != 1 {
		img = reorient(img, o)
	}

	b := img.Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()
	if res.Width < v.MinWidth || res.Height < v.MinHeight {
		res.Status = models.PhotoFail
		res.Reason = fmt.Sprintf("resolution %dx%d below minimum %dx%d", res.Width, res.Height, v.MinWidth, v.MinHeight)
		return res
	}

	gray := toGray(img)
	res.Sharpness = laplacianVariance(gray)
	if res.Sharpness < v.SharpnessThreshold {
		res.Status = models.PhotoFail
		res.Reason = fmt.Sprintf("image too blurry (sharpness %.1f below %.1f)", res.Sharpness, v.SharpnessThreshold)
		return res
	}

	res.Hash = DHash(gray)
	for _, h := range priorHashes {
		if HammingDistance(res.Hash, h) <= v.DuplicateDistance {
			res.Status = models.PhotoFail
			res.Reason = "duplicate of an earlier photo for this job"
			return res
		}
	}

	if IsCaptionValidatedType(ptype) {
		mac, rsn, az := ExtractCaptionFields(caption)
		if c := CanonicalType(ptype); c == "AZIMUTH" {
			res.AzimuthDeg = az
			if az == nil {
				res.Status = models.PhotoFail
				res.Reason = "no compass bearing found in caption"
				return res
			}
		} else {
			// Label photos carry identifiers; a stray number in the
			// serial must not be read as a bearing.
			res.MacID, res.RSN = mac, rsn
			if mac == "" && rsn == "" {
				res.Status = models.PhotoFail
				res.Reason = "no MAC or RSN found in caption"
				return res
			}
		}
	}

	return res
}

// exifOrientation reads the EXIF orientation tag, defaulting to 1 when
// the data carries none.
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// reorient rewrites the pixels so the image reads upright regardless of
// the EXIF orientation tag.
func reorient(img image.Image, orientation int) image.Image {
	if orientation < 2 || orientation > 8 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// dest maps a source pixel to its upright position.
	var dest func(x, y int) (int, int)
	switch orientation {
	case 2: // mirrored
		dest = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // upside down
		dest = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // flipped vertically
		dest = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transposed
		dest = func(x, y int) (int, int) { return y, x }
	case 6: // rotated 90 CW
		dest = func(x, y int) (int, int) { return h - 1 - y, x }
	case 7: // transversed
		dest = func(x, y int) (int, int) { return h - 1 - y, w - 1 - x }
	case 8: // rotated 90 CCW
		dest = func(x, y int) (int, int) { return y, w - 1 - x }
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if orientation >= 5 {
		out = image.NewRGBA(image.Rect(0, 0, h, w))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := dest(x, y)
			out.Set(dx, dy, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// toGray converts the decoded image to 8-bit luminance.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// laplacianVariance estimates focus as the variance of a 4-neighbor
// Laplacian over the luminance plane. Blurry images score low.
func laplacianVariance(g *image.Gray) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w < 3 || h < 3 {
		return 0
	}
	at := func(x, y int) float64 { return float64(g.GrayAt(x, y).Y) }
	n := 0
	sum, sumSq := 0.0, 0.0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// DHash computes a 64-bit difference hash: the luminance plane is
// scaled down to 9x8 with a bilinear kernel and each bit records
// whether a pixel is brighter than its right neighbor.
func DHash(g *image.Gray) uint64 {
	small := image.NewGray(image.Rect(0, 0, 9, 8))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), g, g.Bounds(), draw.Src, nil)
	var hash uint64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			hash <<= 1
			if small.GrayAt(x, y).Y > small.GrayAt(x+1, y).Y {
				hash |= 1
			}
		}
	}
	return hash
}

// HammingDistance counts differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
