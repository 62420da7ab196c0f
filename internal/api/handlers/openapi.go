// openapi.go — встроенный OpenAPI-контракт Media Module.
// Документ валидируется при старте (kin-openapi) и отдаётся
// на GET /api/v1/openapi.json.
package handlers

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.json
var openapiSpec []byte

// ServeOpenAPI обрабатывает GET /api/v1/openapi.json.
func ServeOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiSpec)
}

// ValidateOpenAPI проверяет корректность встроенного контракта.
// Вызывается при старте приложения: битый контракт — ошибка запуска.
func ValidateOpenAPI(ctx context.Context) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return fmt.Errorf("ошибка разбора OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("OpenAPI контракт не прошёл валидацию: %w", err)
	}
	return nil
}
