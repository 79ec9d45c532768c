package services

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"telugulearn/internal/models"
	contextutils "telugulearn/internal/utils"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed templates/ai/*.tmpl
var aiTemplatesFS embed.FS

//go:embed templates/ai/schemas/*.json
var aiSchemasFS embed.FS

// Template names
const (
	ActivityPromptTemplate = "activity_prompt.tmpl"
	ChatPromptTemplate     = "chat_prompt.tmpl"
)

// AITemplateData holds data for rendering AI prompt templates
type AITemplateData struct {
	Kind           models.ActivityKind
	Topic          string
	Level          string
	Count          int
	FocusWords     []string
	Schema         string
	NativeLanguage string
}

// AITemplateManager renders prompts and validates responses against the
// embedded schemas.
type AITemplateManager struct {
	templates *template.Template
	schemas   map[models.ActivityKind]*gojsonschema.Schema
	raw       map[models.ActivityKind]string
}

// NewAITemplateManager parses the embedded prompt templates and schemas
func NewAITemplateManager() (result0 *AITemplateManager, err error) {
	templates, err := template.New("").Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(aiTemplatesFS, "templates/ai/*.tmpl")
	if err != nil {
		return nil, err
	}

	tm := &AITemplateManager{
		templates: templates,
		schemas:   map[models.ActivityKind]*gojsonschema.Schema{},
		raw:       map[models.ActivityKind]string{},
	}
	for _, kind := range []models.ActivityKind{models.KindQuiz, models.KindFlashcard} {
		content, err := aiSchemasFS.ReadFile(fmt.Sprintf("templates/ai/schemas/%s.json", kind))
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to load %s schema", kind)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(content))
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "invalid %s schema", kind)
		}
		tm.schemas[kind] = schema
		tm.raw[kind] = string(content)
	}
	return tm, nil
}

// RenderTemplate renders a template with the given data
func (tm *AITemplateManager) RenderTemplate(templateName string, data AITemplateData) (result0 string, err error) {
	var buf strings.Builder
	if err := tm.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Schema returns the JSON Schema text for an activity kind
func (tm *AITemplateManager) Schema(kind models.ActivityKind) string {
	return tm.raw[kind]
}

// Validate checks content against the schema of kind
func (tm *AITemplateManager) Validate(kind models.ActivityKind, content []byte) error {
	schema, ok := tm.schemas[kind]
	if !ok {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown activity kind %q", kind)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(content))
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "response is not JSON: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "response failed schema validation: %s", strings.Join(msgs, "; "))
	}
	return nil
}
