package views

import (
	"embed"
	"html/template"
	"strings"

	"github.com/phenrril/buildmart/internal/domain"
	"github.com/phenrril/buildmart/internal/usecase"
)

//go:embed *.html
var FS embed.FS

// Funcs are the helpers every page template may call.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"add":   func(a, b int) int { return a + b },
		"sub":   func(a, b int) int { return a - b },
		"price": usecase.FormatPrice,
		"img":   imageURL,
	}
}

func imageURL(u string) string {
	s := strings.TrimSpace(u)
	if s == "" {
		return domain.PlaceholderImage
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return strings.ReplaceAll(s, " ", "%20")
}

// Parse loads the embedded templates.
func Parse() (*template.Template, error) {
	return template.New("layout").Funcs(Funcs()).ParseFS(FS, "*.html")
}

// ParseDir loads templates from disk so edits show up without a rebuild.
func ParseDir(dir string) (*template.Template, error) {
	return template.New("layout").Funcs(Funcs()).ParseGlob(strings.TrimRight(dir, "/") + "/*.html")
}
