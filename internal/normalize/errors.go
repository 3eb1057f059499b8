package normalize

import "errors"

// Ошибки нормализации.
var (
	// ErrMalformedPayload — payload не прошёл структурную валидацию.
	// Оборачивает исходную ошибку парсинга; наружу уходит как HTTP 400.
	ErrMalformedPayload = errors.New("malformed vendor payload")

	// ErrUnsupportedSource — для источника нет нормализатора.
	// Ошибка конфигурации, не подлежит retry.
	ErrUnsupportedSource = errors.New("unsupported source")
)
