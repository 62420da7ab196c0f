package service

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

func newTestProcessor(t *testing.T, watermark bool) *Processor {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := NewProcessor(watermark, "Eddits by Meet Dudhwala", 0.3, logger)
	if err != nil {
		t.Fatalf("NewProcessor() ошибка: %v", err)
	}
	return p
}

// decodeJPEG декодирует результат обработки для проверок.
func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Результат не является валидным JPEG: %v", err)
	}
	return img
}

func TestProcessImage_PNGToJPEG(t *testing.T) {
	p := newTestProcessor(t, false)
	src := encodePNG(t, 640, 480)

	processed, err := p.ProcessImage(src)
	if err != nil {
		t.Fatalf("ProcessImage() ошибка: %v", err)
	}

	if processed.Width != 640 || processed.Height != 480 {
		t.Errorf("Габариты = %dx%d, хотели 640x480", processed.Width, processed.Height)
	}

	out := decodeJPEG(t, processed.Data)
	if out.Bounds().Dx() != 640 || out.Bounds().Dy() != 480 {
		t.Errorf("JPEG габариты = %dx%d, хотели 640x480", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestProcessImage_TransparentComposite(t *testing.T) {
	p := newTestProcessor(t, false)

	// Полностью прозрачное изображение: после композиции должен
	// получиться белый фон
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Ошибка кодирования PNG: %v", err)
	}

	processed, err := p.ProcessImage(&buf)
	if err != nil {
		t.Fatalf("ProcessImage() ошибка: %v", err)
	}

	out := decodeJPEG(t, processed.Data)
	r, g, b, _ := out.At(5, 5).RGBA()
	// JPEG с потерями: допуск на артефакты кодирования
	const minWhite = 0xf000
	if r < minWhite || g < minWhite || b < minWhite {
		t.Errorf("Цвет прозрачной области = (%d, %d, %d), хотели белый", r>>8, g>>8, b>>8)
	}
}

func TestProcessImage_PalettedImage(t *testing.T) {
	p := newTestProcessor(t, false)

	// Палитровое изображение (как GIF-кадр)
	palette := color.Palette{color.White, color.Black, color.RGBA{R: 255, A: 255}}
	img := image.NewPaletted(image.Rect(0, 0, 30, 30), palette)
	for x := 0; x < 30; x++ {
		for y := 0; y < 30; y++ {
			img.SetColorIndex(x, y, 2)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Ошибка кодирования PNG: %v", err)
	}

	processed, err := p.ProcessImage(&buf)
	if err != nil {
		t.Fatalf("ProcessImage() ошибка: %v", err)
	}

	out := decodeJPEG(t, processed.Data)
	r, _, _, a := out.At(15, 15).RGBA()
	if a != 0xffff {
		t.Errorf("Альфа = %d, хотели непрозрачный результат", a)
	}
	if r < 0xe000 {
		t.Errorf("Красный канал = %d, хотели близкий к 255", r>>8)
	}
}

func TestProcessImage_InvalidData(t *testing.T) {
	p := newTestProcessor(t, false)

	_, err := p.ProcessImage(bytes.NewReader([]byte("не изображение")))
	if err == nil {
		t.Fatal("ProcessImage() не вернул ошибку для битых данных")
	}
}

func TestProcessImage_WatermarkChangesPixels(t *testing.T) {
	// Одинаковый источник, обработка с watermark и без:
	// правый нижний угол должен отличаться
	src1 := encodePNG(t, 400, 300)
	src2 := encodePNG(t, 400, 300)

	plain, err := newTestProcessor(t, false).ProcessImage(src1)
	if err != nil {
		t.Fatalf("ProcessImage() без watermark: %v", err)
	}
	marked, err := newTestProcessor(t, true).ProcessImage(src2)
	if err != nil {
		t.Fatalf("ProcessImage() с watermark: %v", err)
	}

	if bytes.Equal(plain.Data, marked.Data) {
		t.Error("Watermark не изменил изображение")
	}

	// Габариты результата не меняются
	if marked.Width != 400 || marked.Height != 300 {
		t.Errorf("Габариты с watermark = %dx%d, хотели 400x300", marked.Width, marked.Height)
	}
}

func TestProcessImage_WatermarkDisabled(t *testing.T) {
	src1 := encodePNG(t, 100, 100)
	src2 := encodePNG(t, 100, 100)

	p := newTestProcessor(t, false)
	out1, err := p.ProcessImage(src1)
	if err != nil {
		t.Fatalf("ProcessImage() ошибка: %v", err)
	}
	out2, err := p.ProcessImage(src2)
	if err != nil {
		t.Fatalf("ProcessImage() ошибка: %v", err)
	}

	// Без watermark обработка детерминирована
	if !bytes.Equal(out1.Data, out2.Data) {
		t.Error("Результаты обработки одинакового источника различаются")
	}
}

func TestApplyWatermark_Position(t *testing.T) {
	// Позиция текста фиксирована: x = width - textWidth - 20 (baseline
	// в 20 пикселях от нижнего края). Непрозрачный белый текст на чёрном
	// фоне, поиск границ закрашенных пикселей напрямую, без JPEG.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := NewProcessor(true, "Eddits by Meet Dudhwala", 1.0, logger)
	if err != nil {
		t.Fatalf("NewProcessor() ошибка: %v", err)
	}

	const width, height = 2000, 1000
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := p.applyWatermark(img); err != nil {
		t.Fatalf("applyWatermark() ошибка: %v", err)
	}

	minX, maxX, minY := width, -1, height
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r == 0 && g == 0 && b == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
		}
	}
	if maxX < 0 {
		t.Fatal("Watermark не оставил ни одного пикселя")
	}

	// Ожидаемая начальная позиция: измеряем текст тем же шрифтом
	face, err := opentype.NewFace(p.font, &opentype.FaceOptions{
		Size:    float64(watermarkFontSize(width, height)),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		t.Fatalf("NewFace() ошибка: %v", err)
	}
	defer face.Close()

	textWidth := (&font.Drawer{Face: face}).MeasureString(p.watermarkText).Ceil()
	wantX := width - textWidth - watermarkMargin

	// Левый край первого глифа может отстоять от начальной точки
	// на side bearing, поэтому небольшой допуск вправо
	if minX < wantX || minX > wantX+12 {
		t.Errorf("Левая граница текста = %d, хотели %d..%d (textWidth=%d)",
			minX, wantX, wantX+12, textWidth)
	}
	if maxX >= width-watermarkMargin {
		t.Errorf("Правая граница текста = %d, текст залез в отступ %d", maxX, watermarkMargin)
	}
	if minY < height/2 {
		t.Errorf("Верхняя граница текста = %d, текст не в нижней части изображения", minY)
	}
}

func TestWatermarkFontSize(t *testing.T) {
	tests := []struct {
		width, height int
		want          int
	}{
		{2000, 1000, 50},  // min(2000,1000)/20 = 50
		{4000, 3000, 150}, // min/20 = 150
		{100, 100, 20},    // 100/20 = 5 → нижняя граница 20
		{400, 400, 20},    // ровно на границе
		{800, 600, 30},    // 600/20 = 30
	}

	for _, tt := range tests {
		got := watermarkFontSize(tt.width, tt.height)
		if got != tt.want {
			t.Errorf("watermarkFontSize(%d, %d) = %d, хотели %d", tt.width, tt.height, got, tt.want)
		}
	}
}
