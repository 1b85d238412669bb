// internal/workers/sales/followup/template.go
package followup

import (
	"strings"

	"crm-decision-engine/internal/common/errors"
)

const (
	TemplateSiteVisit     = "site_visit"
	TemplateQuotationSent = "quotation_sent"
	TemplateGeneral       = "general"
)

// SelectTemplate maps a free-text description of the last interaction onto a template key.
func SelectTemplate(lastInteraction string) string {
	text := strings.ToLower(lastInteraction)
	switch {
	case strings.Contains(text, "site") && strings.Contains(text, "visit"):
		return TemplateSiteVisit
	case strings.Contains(text, "quot"):
		return TemplateQuotationSent
	default:
		return TemplateGeneral
	}
}

// Render substitutes {placeholder} tokens in tpl. "{{" and "}}" produce literal braces.
// A placeholder without a value, or an unterminated one, fails the render.
func Render(templateKey, tpl string, values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tpl))

	for i := 0; i < len(tpl); i++ {
		c := tpl[i]
		switch {
		case c == '{' && i+1 < len(tpl) && tpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tpl) && tpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tpl[i+1:], '}')
			if end < 0 {
				return "", errors.NewTemplateRenderFailedError(templateKey, tpl[i+1:])
			}
			name := tpl[i+1 : i+1+end]
			value, ok := values[name]
			if !ok {
				return "", errors.NewTemplateRenderFailedError(templateKey, name)
			}
			b.WriteString(value)
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
