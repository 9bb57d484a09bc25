package billing

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/medledger/internal/platform/apperr"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/quote", h.GetQuote)
	api.POST("/patients/:id/payments", h.CreatePayment)
	api.GET("/payments", h.ListPayments)
	api.GET("/services", h.ListServices)
}

func (h *Handler) GetQuote(c echo.Context) error {
	q, err := h.engine.QuotePatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, q)
}

type paymentBody struct {
	Method string `json:"method"`
}

// CreatePayment quotes the patient afresh and records the payment for that
// quote.
func (h *Handler) CreatePayment(c echo.Context) error {
	var body paymentBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	q, err := h.engine.QuotePatient(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	records, err := h.engine.RecordPayment(ctx, RequestFor(q, body.Method))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, records)
}

func (h *Handler) ListPayments(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		records []PaymentRecord
		err     error
	)
	if id := c.QueryParam("patient_id"); id != "" {
		records, err = h.engine.HistoryFor(ctx, id)
	} else {
		records, err = h.engine.PaymentHistory(ctx)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) ListServices(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Catalog().Entries())
}

// httpError keeps err as the internal cause so middleware can still see a
// context deadline through the response error.
func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error()).SetInternal(err)
}
