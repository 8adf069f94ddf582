// Package template renders step configuration values against the execution
// context, so step configs can reference contact attributes, trigger data and
// prior step output.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/bloomcart/marketing-core/pkg/models"
)

// RenderWithContext renders the input template against the execution context.
// Available roots: .contact, .context, .trigger_data, .execution.
func RenderWithContext(input string, ectx models.ExecutionContext) (string, error) {
	data := map[string]any{
		"context":      ectx.Data,
		"trigger_data": ectx.TriggerData,
		"execution": map[string]any{
			"id":          ectx.ExecutionID,
			"workflow_id": ectx.WorkflowID,
		},
	}

	if ectx.Contact != nil {
		data["contact"] = map[string]any{
			"id":         ectx.Contact.ID,
			"email":      ectx.Contact.Email,
			"phone":      ectx.Contact.Phone,
			"tags":       ectx.Contact.Tags,
			"attributes": ectx.Contact.Attributes,
		}
	}

	return Render(input, data)
}

// Render parses and executes a single template string.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// Parse compiles a template string with the shared helper functions. Used by
// executors to validate configuration up front.
func Parse(templateStr string) (*template.Template, error) {
	tmpl, err := template.
		New("step_config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	return tmpl, nil
}

// RenderMap renders every string value of the map against the execution
// context, leaving non-string values untouched.
func RenderMap(input map[string]any, ectx models.ExecutionContext) (map[string]any, error) {
	result := make(map[string]any, len(input))

	for key, value := range input {
		str, ok := value.(string)
		if !ok {
			result[key] = value

			continue
		}

		rendered, err := RenderWithContext(str, ectx)
		if err != nil {
			return nil, fmt.Errorf("failed to render key %q: %w", key, err)
		}

		result[key] = rendered
	}

	return result, nil
}
