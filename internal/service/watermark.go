// watermark.go — наложение текстового watermark на изображение.
package service

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// watermarkMargin — отступ watermark от правого и нижнего краёв в пикселях.
const watermarkMargin = 20

// watermarkFontSize вычисляет размер шрифта по габаритам изображения:
// max(20, min(w, h)/20).
func watermarkFontSize(width, height int) int {
	size := min(width, height) / 20
	if size < 20 {
		size = 20
	}
	return size
}

// applyWatermark рисует полупрозрачный белый текст в правом нижнем
// углу изображения.
func (p *Processor) applyWatermark(img *image.RGBA) error {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	fontSize := watermarkFontSize(width, height)

	face, err := opentype.NewFace(p.font, &opentype.FaceOptions{
		Size:    float64(fontSize),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("ошибка создания шрифта размера %d: %w", fontSize, err)
	}
	defer face.Close()

	alpha := uint8(math.Round(p.watermarkOpacity * 255))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: alpha}),
		Face: face,
	}

	textWidth := drawer.MeasureString(p.watermarkText).Ceil()
	x := width - textWidth - watermarkMargin
	y := height - watermarkMargin

	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(p.watermarkText)

	return nil
}
