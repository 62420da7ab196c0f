// validate.go — валидация загружаемых медиафайлов перед обработкой.
// Проверки: размер, формат (по расширению), габариты изображений.
// Валидация никогда не возвращает error: все нарушения накапливаются
// в ValidationResult.Errors. Тексты нарушений — машиночитаемая часть
// API-контракта, поэтому фиксированы на английском.
package service

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	// Регистрация декодеров для image.DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Допустимые расширения по типу медиа.
var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true,
	}
	videoExtensions = map[string]bool{
		".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
	}
)

// mimeByExtension — фиксированная таблица MIME-типов по расширению.
// Таблица шире списков допустимых расширений: известный, но
// неподдерживаемый формат должен давать ошибку "Unsupported ... format",
// а не "File must be an image or video".
var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".svg":  "image/svg+xml",
	".heic": "image/heic",
	".ico":  "image/x-icon",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".flv":  "video/x-flv",
	".wmv":  "video/x-ms-wmv",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
}

// FileInfo — сведения о файле, собранные при валидации.
type FileInfo struct {
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	IsImage     bool   `json:"is_image"`
	IsVideo     bool   `json:"is_video"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// ValidationResult — результат валидации файла.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	FileInfo FileInfo `json:"file_info"`
}

// Validator — проверка загружаемых файлов по лимитам из конфигурации.
type Validator struct {
	maxFileSize       int64
	maxImageDimension int
}

// NewValidator создаёт валидатор с заданными лимитами.
func NewValidator(maxFileSize int64, maxImageDimension int) *Validator {
	return &Validator{
		maxFileSize:       maxFileSize,
		maxImageDimension: maxImageDimension,
	}
}

// Validate проверяет файл: размер, формат по расширению, габариты
// изображений. Курсор reader возвращается в начало на любом пути.
func (v *Validator) Validate(r io.ReadSeeker, filename string, size int64) ValidationResult {
	// Курсор всегда возвращается в начало: дальше файл читает процессор
	defer r.Seek(0, io.SeekStart) //nolint:errcheck

	result := ValidationResult{
		FileInfo: FileInfo{Size: size},
	}

	if size > v.maxFileSize {
		result.Errors = append(result.Errors,
			fmt.Sprintf("File size exceeds maximum limit of %.1fMB", float64(v.maxFileSize)/(1024*1024)))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType := mimeByExtension[ext]
	result.FileInfo.ContentType = contentType

	switch {
	case strings.HasPrefix(contentType, "image/"):
		result.FileInfo.IsImage = true
		if !imageExtensions[ext] {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Unsupported image format: %s", strings.TrimPrefix(ext, ".")))
		}
	case strings.HasPrefix(contentType, "video/"):
		result.FileInfo.IsVideo = true
		if !videoExtensions[ext] {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Unsupported video format: %s", strings.TrimPrefix(ext, ".")))
		}
	default:
		result.Errors = append(result.Errors, "File must be an image or video")
	}

	// Габариты проверяем только для изображений, прошедших остальные проверки
	if result.FileInfo.IsImage && len(result.Errors) == 0 {
		if _, err := r.Seek(0, io.SeekStart); err == nil {
			cfg, _, err := image.DecodeConfig(r)
			if err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("Invalid image file: %s", err.Error()))
			} else {
				result.FileInfo.Width = cfg.Width
				result.FileInfo.Height = cfg.Height
				if cfg.Width > v.maxImageDimension || cfg.Height > v.maxImageDimension {
					result.Errors = append(result.Errors,
						fmt.Sprintf("Image dimensions exceed maximum size of %dx%d",
							v.maxImageDimension, v.maxImageDimension))
				}
			}
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
