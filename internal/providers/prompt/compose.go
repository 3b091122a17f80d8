package prompt

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

const (
	extensionPrefix = "Continue the scene naturally: "
	untitled        = "Untitled Project"
	titleWords      = 6
	titleMaxRunes   = 48
)

// Compose builds the text sent to the video model: the raw prompt, the style
// suffix, an optional camera direction and the exclusion clause.
func Compose(req domain.GenerationRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.RawPrompt))
	b.WriteString(req.StyleSuffix)
	if camera := strings.TrimSpace(req.CameraFragment); camera != "" {
		b.WriteString(". ")
		b.WriteString(camera)
	}
	if neg := strings.TrimRight(strings.TrimSpace(req.NegativePrompt), "."); neg != "" {
		b.WriteString(" Avoid the following elements: ")
		b.WriteString(neg)
		b.WriteString(".")
	}
	return b.String()
}

// Extension builds the prompt for a continuation clip.
func Extension(p string) string {
	return extensionPrefix + strings.TrimSpace(p)
}

// Title derives a short display title from a prompt.
func Title(p string) string {
	words := strings.Fields(p)
	if len(words) == 0 {
		return untitled
	}
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	title := cases.Title(language.English).String(strings.Join(words, " "))
	title = strings.TrimRight(title, ".,;:!?")
	if utf8.RuneCountInString(title) > titleMaxRunes {
		title = string([]rune(title)[:titleMaxRunes])
	}
	return title
}

// cleanRewrite strips code fences and wrapping quotes models sometimes add.
func cleanRewrite(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
