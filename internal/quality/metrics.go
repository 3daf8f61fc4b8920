package quality

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Metrics is the set of scalar quality scores computed per image.
// Sharpness is the Laplacian variance over the grayscale image; DynamicRange
// is the occupied share of the luminance histogram (0..1); ColorRichness is
// normalized hue-histogram entropy (0..1); Brightness and Contrast are the
// luminance mean and standard deviation (0..255); Saturation is the mean
// HSV saturation (0..1).
type Metrics struct {
	Sharpness     float64 `json:"sharpness"`
	DynamicRange  float64 `json:"dynamic_range"`
	ColorRichness float64 `json:"color_richness"`
	Brightness    float64 `json:"brightness"`
	Contrast      float64 `json:"contrast"`
	Saturation    float64 `json:"saturation"`
}

// Report compares an original against an edited revision. Delta fields are
// after minus before.
type Report struct {
	Before Metrics `json:"before"`
	After  Metrics `json:"after"`
	Delta  Metrics `json:"delta"`
}

// maxMeasureDim bounds the work per image; anything larger is fit into this
// box before scoring so metrics stay comparable across resolutions.
const maxMeasureDim = 1024

const hueBins = 36

// minSaturationForHue excludes near-gray pixels from the hue histogram,
// where hue is numerically meaningless.
const minSaturationForHue = 0.05

// Measure computes all quality scores for one image.
func Measure(img image.Image) Metrics {
	bounds := img.Bounds()
	if bounds.Dx() > maxMeasureDim || bounds.Dy() > maxMeasureDim {
		img = imaging.Fit(img, maxMeasureDim, maxMeasureDim, imaging.Lanczos)
	}

	gray := imaging.Grayscale(img)

	m := Metrics{
		Sharpness:    laplacianVariance(gray),
		DynamicRange: dynamicRange(gray),
	}
	m.Brightness, m.Contrast = luminanceStats(gray)
	m.Saturation, m.ColorRichness = colorStats(img)
	return m
}

// Compare measures both images and reports per-metric deltas.
func Compare(before, after image.Image) Report {
	b := Measure(before)
	a := Measure(after)
	return Report{
		Before: b,
		After:  a,
		Delta: Metrics{
			Sharpness:     a.Sharpness - b.Sharpness,
			DynamicRange:  a.DynamicRange - b.DynamicRange,
			ColorRichness: a.ColorRichness - b.ColorRichness,
			Brightness:    a.Brightness - b.Brightness,
			Contrast:      a.Contrast - b.Contrast,
			Saturation:    a.Saturation - b.Saturation,
		},
	}
}

// laplacianVariance applies the 4-neighbor Laplacian to the grayscale image
// and returns the variance of the responses. Blurry images score low.
func laplacianVariance(gray *image.NRGBA) float64 {
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	if w < 3 || h < 3 {
		return 0
	}

	at := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := 4*at(x, y) - at(x-1, y) - at(x+1, y) - at(x, y-1) - at(x, y+1)
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// dynamicRange reports how much of the 0..255 luminance scale the image
// actually occupies. Bins holding less than 0.01% of pixels are treated as
// noise and ignored.
func dynamicRange(gray *image.NRGBA) float64 {
	hist := histogram.NewRGBAHistogram(gray)
	bins := hist.R.Bins

	total := 0
	for _, count := range bins {
		total += count
	}
	if total == 0 {
		return 0
	}
	noiseFloor := total / 10000

	lo, hi := -1, -1
	for i, count := range bins {
		if count > noiseFloor {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	if lo < 0 || hi <= lo {
		return 0
	}
	return float64(hi-lo) / 255.0
}

func luminanceStats(gray *image.NRGBA) (mean, stddev float64) {
	w := gray.Bounds().Dx()
	h := gray.Bounds().Dy()
	n := w * h
	if n == 0 {
		return 0, 0
	}

	var sum, sumSq float64
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w*4]
		for x := 0; x < w; x++ {
			v := float64(row[x*4])
			sum += v
			sumSq += v * v
		}
	}
	mean = sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// colorStats walks the image once for mean saturation and the hue histogram
// used for color richness (Shannon entropy over hue bins, normalized to 0..1).
func colorStats(img image.Image) (saturation, richness float64) {
	bounds := img.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return 0, 0
	}

	var satSum float64
	hueHist := make([]int, hueBins)
	hueTotal := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			hue, sat, _ := c.Hsv()
			satSum += sat
			if sat < minSaturationForHue {
				continue
			}
			bin := int(hue/360.0*hueBins) % hueBins
			if bin < 0 {
				bin += hueBins
			}
			hueHist[bin]++
			hueTotal++
		}
	}

	saturation = satSum / float64(n)
	if hueTotal == 0 {
		return saturation, 0
	}

	var entropy float64
	for _, count := range hueHist {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(hueTotal)
		entropy -= p * math.Log2(p)
	}
	return saturation, entropy / math.Log2(hueBins)
}
