package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/i18n"
	"currency-converter/internal/metrics"
	"currency-converter/internal/service"
	"currency-converter/pkg/logger"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type convertQuery struct {
	From   string  `form:"from" binding:"required"`
	To     string  `form:"to" binding:"required"`
	Amount float64 `form:"amount" binding:"required"`
}

type rateQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

type Handler struct {
	service     ports.ConversionService
	translator  ports.Translator
	defaultLang string
	log         *logger.Logger
	metrics     *metrics.Metrics
}

func NewHandler(service ports.ConversionService, translator ports.Translator, defaultLang string, log *logger.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:     service,
		translator:  translator,
		defaultLang: defaultLang,
		log:         log,
		metrics:     metrics,
	}
}

// ConvertCurrencyHandler godoc
// @Summary      Convert an amount between currencies
// @Description  Converts amount from one currency to another using the live rate. Messages follow lang.
// @Tags         conversion
// @Produce      json
// @Param        from    query  string  true   "Source currency code (e.g. USD)"
// @Param        to      query  string  true   "Target currency code (e.g. EUR)"
// @Param        amount  query  number  true   "Amount to convert"
// @Param        lang    query  string  false  "Response language (en, es)"
// @Success      200  {object}  model.ConversionResult
// @Failure      400  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /convert [get]
func (h *Handler) ConvertCurrencyHandler(c *gin.Context) {
	h.metrics.ConversionRequestsTotal.Inc()

	lang := h.lang(c)

	var q convertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		requestLogger(c, h.log).Debug("Invalid conversion request", "error", err)
		h.sendErrorResponse(c, http.StatusBadRequest, h.translator.Translate(i18n.KeyInvalidCurrency, lang))
		return
	}

	result, err := h.service.Convert(c.Request.Context(), model.ConversionRequest{
		From:   model.Currency(q.From),
		To:     model.Currency(q.To),
		Amount: q.Amount,
		Lang:   lang,
	})
	if err != nil {
		h.handleServiceError(c, err, lang)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRateHandler godoc
// @Summary      Current rate for a currency pair
// @Tags         conversion
// @Produce      json
// @Param        from  query  string  true   "Source currency code"
// @Param        to    query  string  true   "Target currency code"
// @Param        lang  query  string  false  "Error message language (en, es)"
// @Success      200  {object}  model.RateQuote
// @Failure      400  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /rate [get]
func (h *Handler) GetRateHandler(c *gin.Context) {
	lang := h.lang(c)

	var q rateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, h.translator.Translate(i18n.KeyInvalidCurrency, lang))
		return
	}

	quote, err := h.service.GetRate(c.Request.Context(), model.CurrencyPair{
		From: model.Currency(q.From),
		To:   model.Currency(q.To),
	})
	if err != nil {
		h.handleServiceError(c, err, lang)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func (h *Handler) lang(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	return h.defaultLang
}

func (h *Handler) sendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{Error: message})
}

func (h *Handler) handleServiceError(c *gin.Context, err error, lang string) {
	statusCode := http.StatusInternalServerError
	errorMessage := "internal server error"

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errorMessage = h.translator.Translate(i18n.KeyInvalidCurrency, lang)
	case errors.Is(err, service.ErrExternalAPI):
		statusCode = http.StatusBadGateway
		errorMessage = h.translator.Translate(i18n.KeyExternalAPIError, lang)
	}

	requestLogger(c, h.log).Error("Service error", "error", err, "status_code", statusCode)
	h.sendErrorResponse(c, statusCode, errorMessage)
}
