package assist

import (
	"path/filepath"
	"strings"
)

// GenericLanguage is reported for files with an unknown extension.
const GenericLanguage = "code"

var languages = map[string]string{
	".php":   "PHP",
	".html":  "HTML",
	".htm":   "HTML",
	".js":    "JavaScript",
	".mjs":   "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".css":   "CSS",
	".scss":  "SCSS",
	".java":  "Java",
	".kt":    "Kotlin",
	".go":    "Go",
	".py":    "Python",
	".rb":    "Ruby",
	".rs":    "Rust",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cc":    "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".swift": "Swift",
	".sh":    "Shell",
	".bash":  "Shell",
	".sql":   "SQL",
	".json":  "JSON",
	".yaml":  "YAML",
	".yml":   "YAML",
	".xml":   "XML",
	".md":    "Markdown",
}

// fenceTags maps display names to markdown info strings where they differ
// from the lowercased name.
var fenceTags = map[string]string{
	"C++":   "cpp",
	"C#":    "csharp",
	"Shell": "sh",
}

// DetectLanguage names the language of fileName from its extension.
func DetectLanguage(fileName string) string {
	if lang, ok := languages[strings.ToLower(filepath.Ext(fileName))]; ok {
		return lang
	}
	return GenericLanguage
}

// FenceTag returns the info string used to open a code fence for language.
func FenceTag(language string) string {
	if language == "" || language == GenericLanguage {
		return ""
	}
	if tag, ok := fenceTags[language]; ok {
		return tag
	}
	return strings.ToLower(language)
}
