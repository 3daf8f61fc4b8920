package quality

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
)

func flatGray(size int) *image.NRGBA {
	return imaging.New(size, size, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
}

func checkerboard(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.NRGBA{A: 255}
			if (x+y)%2 == 0 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func hueSweep(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	colors := []color.NRGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, A: 255},
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, colors[x*len(colors)/size])
		}
	}
	return img
}

func TestMeasureFlatImage(t *testing.T) {
	m := Measure(flatGray(64))

	assert.InDelta(t, 0, m.Sharpness, 1e-9)
	assert.InDelta(t, 0, m.DynamicRange, 1e-9)
	assert.InDelta(t, 0, m.Contrast, 1.0)
	assert.InDelta(t, 128, m.Brightness, 3.0)
	assert.InDelta(t, 0, m.Saturation, 0.01)
	assert.InDelta(t, 0, m.ColorRichness, 1e-9)
}

func TestMeasureCheckerboard(t *testing.T) {
	m := Measure(checkerboard(64))

	assert.Greater(t, m.Sharpness, 1000.0)
	assert.InDelta(t, 1.0, m.DynamicRange, 0.01)
	assert.Greater(t, m.Contrast, 100.0)
}

func TestMeasureColorRichness(t *testing.T) {
	single := Measure(imaging.New(64, 64, color.NRGBA{R: 255, A: 255}))
	sweep := Measure(hueSweep(64))

	assert.InDelta(t, 1.0, single.Saturation, 0.01)
	assert.InDelta(t, 0, single.ColorRichness, 1e-9)
	assert.Greater(t, sweep.ColorRichness, single.ColorRichness)
}

func TestMeasureDownsamplesLargeImages(t *testing.T) {
	// Just has to terminate quickly and produce sane numbers.
	m := Measure(flatGray(2048))
	assert.InDelta(t, 128, m.Brightness, 3.0)
}

func TestCompareDeltas(t *testing.T) {
	before := flatGray(64)
	after := imaging.AdjustBrightness(before, 20)

	report := Compare(before, after)

	assert.Equal(t, report.After.Brightness-report.Before.Brightness, report.Delta.Brightness)
	assert.Greater(t, report.Delta.Brightness, 0.0)
	assert.Equal(t, report.After.Sharpness-report.Before.Sharpness, report.Delta.Sharpness)
}

func TestMeasureTinyImage(t *testing.T) {
	m := Measure(imaging.New(1, 1, color.NRGBA{R: 10, G: 10, B: 10, A: 255}))
	assert.Zero(t, m.Sharpness)
}
