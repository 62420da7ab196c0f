// process.go — обработка изображений перед загрузкой в хранилище.
// Изображение декодируется, приводится к RGB на белом фоне
// (палитровые и полупрозрачные форматы), опционально получает watermark
// и всегда перекодируется в JPEG. Видео обработку не проходят.
package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"log/slog"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// jpegQuality — качество итогового JPEG.
const jpegQuality = 85

// ProcessedImage — результат обработки изображения.
// Width и Height — габариты исходного изображения до watermark.
type ProcessedImage struct {
	Data   []byte
	Width  int
	Height int
}

// Processor — конвейер обработки изображений.
type Processor struct {
	watermarkEnabled bool
	watermarkText    string
	watermarkOpacity float64
	font             *opentype.Font
	logger           *slog.Logger
}

// NewProcessor создаёт процессор изображений. Шрифт watermark
// загружается один раз при создании.
func NewProcessor(watermarkEnabled bool, watermarkText string, watermarkOpacity float64, logger *slog.Logger) (*Processor, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки шрифта watermark: %w", err)
	}

	return &Processor{
		watermarkEnabled: watermarkEnabled,
		watermarkText:    watermarkText,
		watermarkOpacity: watermarkOpacity,
		font:             fnt,
		logger:           logger.With(slog.String("component", "processor")),
	}, nil
}

// ProcessImage декодирует изображение, приводит к RGB на белом фоне,
// накладывает watermark (при включённом) и кодирует в JPEG.
// Ошибка watermark не фатальна: используется изображение без него.
func (p *Processor) ProcessImage(r io.Reader) (*ProcessedImage, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования изображения: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Композиция на белом фоне: палитровые и альфа-форматы
	// сводятся к непрозрачному RGB
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Over)

	if p.watermarkEnabled {
		if err := p.applyWatermark(canvas); err != nil {
			p.logger.Warn("ошибка наложения watermark, изображение сохранено без него",
				slog.String("error", err.Error()),
			)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("ошибка кодирования JPEG: %w", err)
	}

	return &ProcessedImage{
		Data:   buf.Bytes(),
		Width:  width,
		Height: height,
	}, nil
}
