package web

import (
	"fmt"
	"html/template"
	"strings"

	"voice-console/internal/domain"
)

// FuncMap - функции, доступные в шаблонах.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"promptLabel": domain.PromptLabel,
		"knownPrompt": domain.IsKnownPromptKey,
		"join":        strings.Join,
		"formatTime":  formatTime,
		"regions":     func() []string { return domain.KnownRegions },
		"proficiency": proficiencyLabel,
	}
}

func formatTime(ts *domain.Timestamp) string {
	if s := ts.String(); s != "" {
		return s
	}
	return "-"
}

func proficiencyLabel(level int) string {
	switch level {
	case 1:
		return "basic"
	case 2:
		return "intermediate"
	case 3:
		return "expert"
	}
	return fmt.Sprintf("level %d", level)
}
