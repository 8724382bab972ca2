package http

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"currency-converter/docs"
	"currency-converter/internal/domain/model"
	"currency-converter/internal/i18n"
)

//go:embed web/*.html
var webFS embed.FS

var pageTemplates = template.Must(template.ParseFS(webFS, "web/*.html"))

type pageData struct {
	Languages       []string
	DefaultLanguage string
	CacheBackend    string
	CacheTTL        time.Duration
	ExampleEN       string
	ExampleES       string
}

// Pages serves the dashboard, the API guide and the Swagger UI.
type Pages struct {
	data pageData
}

func NewPages(translator *i18n.Translator, cacheBackend string, cacheTTL time.Duration) *Pages {
	example := func(lang string) string {
		b, _ := json.MarshalIndent(model.ConversionResult{
			Result:    translator.Translate(i18n.KeyConversionSuccess, lang),
			From:      "USD",
			To:        "EUR",
			Amount:    100,
			Converted: 91.23,
			Rate:      0.9123,
		}, "", "  ")
		return string(b)
	}

	return &Pages{data: pageData{
		Languages:       translator.Languages(),
		DefaultLanguage: translator.DefaultLanguage(),
		CacheBackend:    cacheBackend,
		CacheTTL:        cacheTTL,
		ExampleEN:       example("en"),
		ExampleES:       example("es"),
	}}
}

func (p *Pages) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(pageTemplates)

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})
	r.GET("/dashboard", func(c *gin.Context) {
		c.HTML(http.StatusOK, "dashboard.html", p.data)
	})
	r.GET("/docs", func(c *gin.Context) {
		c.HTML(http.StatusOK, "docs.html", p.data)
	})

	r.GET("/static/swagger.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(docs.SwaggerInfo.ReadDoc()))
	})
	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/static/swagger.json")))
}
