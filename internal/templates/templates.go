package templates

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed *.html
var templateFS embed.FS

var templates *template.Template

func init() {
	var err error
	templates, err = template.ParseFS(templateFS, "*.html")
	if err != nil {
		panic("Failed to parse templates: " + err.Error())
	}
}

type LoginData struct {
	GoogleURL string
	GitHubURL string
}

type PortfolioData struct {
	DisplayName string
	ChatActive  bool
	ChatLocked  bool
	ShowAdmin   bool
}

type ErrorData struct {
	Message string
}

func RenderLogin(c *gin.Context, data LoginData) {
	render(c, "login.html", data)
}

func RenderPortfolio(c *gin.Context, data PortfolioData) {
	render(c, "portfolio.html", data)
}

func RenderError(c *gin.Context, data ErrorData) {
	render(c, "error.html", data)
}

func render(c *gin.Context, name string, data any) {
	c.Header("Content-Type", "text/html")
	c.Status(http.StatusOK)
	if err := templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.String(http.StatusInternalServerError, "Template error")
	}
}
