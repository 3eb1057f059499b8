package normalize

import (
	"fmt"

	"github.com/shaiso/Anton/internal/domain"
)

// Normalizer преобразует сырой payload вендора в AgentTask.
//
// Нормализаторы stateless — один экземпляр безопасно разделяется
// всеми горутинами процесса.
type Normalizer interface {
	Normalize(raw []byte) (*domain.AgentTask, error)
}

// Registry — явное соответствие источник → нормализатор.
//
// Строится один раз при старте процесса и передаётся по ссылке;
// никакого ambient-глобального состояния.
type Registry struct {
	normalizers map[domain.Source]Normalizer
}

// NewRegistry создаёт Registry со всеми поддерживаемыми источниками.
func NewRegistry() *Registry {
	return &Registry{
		normalizers: map[domain.Source]Normalizer{
			domain.SourceJira:    &JiraNormalizer{},
			domain.SourceDatadog: &DatadogNormalizer{},
			domain.SourceSonar:   &SonarNormalizer{},
		},
	}
}

// Get возвращает нормализатор для источника.
func (r *Registry) Get(source domain.Source) (Normalizer, error) {
	n, ok := r.normalizers[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
	return n, nil
}

// Normalize — шорткат: выбрать нормализатор и применить.
func (r *Registry) Normalize(source domain.Source, raw []byte) (*domain.AgentTask, error) {
	n, err := r.Get(source)
	if err != nil {
		return nil, err
	}
	return n.Normalize(raw)
}
