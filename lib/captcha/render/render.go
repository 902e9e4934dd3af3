// Package render rasterizes a challenge answer into a distorted PNG.
//
// The pipeline aims at breaking fixed-template OCR while staying readable to
// humans: grainy background, per-glyph rotation/font/color/position jitter,
// bezier noise lines, shot noise, then a global sinusoidal warp that bends
// the whole baseline, and a final faint grain pass. Every parameter is drawn
// fresh per call, so two renders of the same text almost never match.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"math/rand/v2"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	DefaultWidth  = 240
	DefaultHeight = 80

	maxGlyphRotation = 0.30 // radians, about 17 degrees either way
	noiseLineCount   = 4
	shotNoiseCount   = 90
)

// Options tunes the canvas. The zero value renders at the default size.
type Options struct {
	Width  int
	Height int
}

// fonts holds the faces glyphs are drawn with, one picked at random per
// glyph. Parsed once at package load; the TTFs are compiled in, so a parse
// failure is a build defect, not a runtime condition.
var fonts []*truetype.Font

func init() {
	for _, ttf := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF} {
		f, err := truetype.Parse(ttf)
		if err != nil {
			panic(fmt.Sprintf("render: can't parse embedded font: %v", err))
		}
		fonts = append(fonts, f)
	}
}

// Render draws text into a warped raster and returns it PNG-encoded. Pure
// aside from consuming randomness: no state outlives the call and the input
// text is not retained.
func Render(text string, opts Options) ([]byte, error) {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	dc := gg.NewContext(width, height)

	drawBackground(dc, width, height)
	drawGlyphs(dc, text, width, height)
	drawNoiseLines(dc, width, height)
	drawShotNoise(dc, width, height)

	warped := sineWarp(dc.Image(), width, height)
	grain(warped, width, height)

	var buf bytes.Buffer
	if err := png.Encode(&buf, warped); err != nil {
		return nil, fmt.Errorf("render: can't encode png: %w", err)
	}

	return buf.Bytes(), nil
}

func drawBackground(dc *gg.Context, width, height int) {
	shade := 0.88 + rand.Float64()*0.08
	dc.SetRGB(shade, shade, shade)
	dc.Clear()

	// Low-amplitude pixel grain so the background is never a flat fill.
	for range width * height / 16 {
		g := 0.70 + rand.Float64()*0.25
		dc.SetRGBA(g, g, g, 0.5)
		dc.SetPixel(rand.IntN(width), rand.IntN(height))
	}
}

func drawGlyphs(dc *gg.Context, text string, width, height int) {
	glyphs := []rune(text)
	if len(glyphs) == 0 {
		return
	}

	slotWidth := float64(width) / float64(len(glyphs))

	for i, glyph := range glyphs {
		fontSize := float64(height) * (0.55 + rand.Float64()*0.15)
		face := truetype.NewFace(fonts[rand.IntN(len(fonts))], &truetype.Options{Size: fontSize})
		dc.SetFontFace(face)

		// Near-black ink with slight alpha jitter.
		dc.SetRGBA(rand.Float64()*0.25, rand.Float64()*0.25, rand.Float64()*0.25, 0.82+rand.Float64()*0.18)

		cx := slotWidth*float64(i) + slotWidth/2 + (rand.Float64()-0.5)*slotWidth*0.25
		cy := float64(height)/2 + (rand.Float64()-0.5)*float64(height)*0.18

		dc.Push()
		dc.RotateAbout((rand.Float64()*2-1)*maxGlyphRotation, cx, cy)
		dc.DrawStringAnchored(string(glyph), cx, cy, 0.5, 0.5)
		dc.Pop()
	}
}

func drawNoiseLines(dc *gg.Context, width, height int) {
	w := float64(width)
	h := float64(height)

	for range noiseLineCount {
		dc.MoveTo(0, rand.Float64()*h)
		dc.CubicTo(
			w*0.33, rand.Float64()*h,
			w*0.66, rand.Float64()*h,
			w, rand.Float64()*h,
		)
		dc.SetRGBA(rand.Float64()*0.5, rand.Float64()*0.5, rand.Float64()*0.5, 0.35+rand.Float64()*0.3)
		dc.SetLineWidth(1 + rand.Float64()*1.5)
		dc.Stroke()
	}
}

func drawShotNoise(dc *gg.Context, width, height int) {
	for range shotNoiseCount {
		dc.SetRGBA(rand.Float64(), rand.Float64(), rand.Float64(), 0.25+rand.Float64()*0.35)
		dc.DrawCircle(rand.Float64()*float64(width), rand.Float64()*float64(height), 0.5+rand.Float64()*1.5)
		dc.Fill()
	}
}

// sineWarp remaps every pixel by a horizontal and a vertical sine offset with
// independently random amplitude, wavelength and phase. Bending the whole
// baseline is what defeats per-character template matching.
func sineWarp(src image.Image, width, height int) *image.RGBA {
	ampX := 2.5 + rand.Float64()*3.0
	wavelengthX := float64(height) * (0.8 + rand.Float64()*0.8)
	phaseX := rand.Float64() * 2 * math.Pi

	ampY := 1.5 + rand.Float64()*2.0
	wavelengthY := float64(width) * (0.4 + rand.Float64()*0.6)
	phaseY := rand.Float64() * 2 * math.Pi

	out := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := range height {
		dx := ampX * math.Sin(2*math.Pi*float64(y)/wavelengthX+phaseX)
		for x := range width {
			dy := ampY * math.Sin(2*math.Pi*float64(x)/wavelengthY+phaseY)

			sx := clamp(x+int(math.Round(dx)), 0, width-1)
			sy := clamp(y+int(math.Round(dy)), 0, height-1)

			out.Set(x, y, src.At(sx, sy))
		}
	}

	return out
}

// grain is the final low-alpha speckle pass over the warped image.
func grain(img *image.RGBA, width, height int) {
	for range width * height / 24 {
		x := rand.IntN(width)
		y := rand.IntN(height)

		c := img.RGBAAt(x, y)
		delta := int16(rand.IntN(61) - 30)
		c.R = clampByte(int16(c.R) + delta)
		c.G = clampByte(int16(c.G) + delta)
		c.B = clampByte(int16(c.B) + delta)
		img.SetRGBA(x, y, c)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v int16) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
