package dispatch

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	batchv1 "k8s.io/api/batch/v1"
	"sigs.k8s.io/yaml"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// jobTemplate — шаблон Job-манифеста, парсится один раз при старте.
var jobTemplate = template.Must(
	template.ParseFS(templatesFS, "templates/base_job.yaml.tmpl"),
)

// jobParams — подстановки для шаблона Job-манифеста.
type jobParams struct {
	JobName       string
	Namespace     string
	TaskID        string
	TemplateID    string
	Complexity    string
	ConfigMapName string
	Image         string
}

// renderJob рендерит манифест и декодирует его в batchv1.Job.
func renderJob(params jobParams) (*batchv1.Job, error) {
	var buf bytes.Buffer
	if err := jobTemplate.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("render job manifest: %w", err)
	}

	var job batchv1.Job
	if err := yaml.Unmarshal(buf.Bytes(), &job); err != nil {
		return nil, fmt.Errorf("decode job manifest: %w", err)
	}

	return &job, nil
}
