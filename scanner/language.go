package scanner

import (
	"path/filepath"
	"strings"
)

var languages = map[string]string{
	"rs":     "Rust",
	"py":     "Python",
	"js":     "JavaScript",
	"jsx":    "JavaScript",
	"ts":     "TypeScript",
	"tsx":    "TypeScript",
	"go":     "Go",
	"java":   "Java",
	"c":      "C",
	"h":      "C",
	"cpp":    "C++",
	"hpp":    "C++",
	"cs":     "C#",
	"rb":     "Ruby",
	"php":    "PHP",
	"swift":  "Swift",
	"kt":     "Kotlin",
	"scala":  "Scala",
	"vue":    "Vue",
	"svelte": "Svelte",
}

// Language names the language of a file from its extension. Unknown
// extensions are returned as is, and files without one are "Unknown".
func Language(p string) string {
	ext := strings.TrimPrefix(filepath.Ext(p), ".")
	if ext == "" {
		return "Unknown"
	}
	if lang, ok := languages[strings.ToLower(ext)]; ok {
		return lang
	}
	return ext
}
