package handlers

import (
	"github.com/amirphl/counter-app/app/views"
	businessflow "github.com/amirphl/counter-app/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// Route paths
const (
	HomePath    = "/"
	CounterPath = "/counter"
)

type PageHandlerInterface interface {
	Home(c fiber.Ctx) error
	OpenCounter(c fiber.Ctx) error
	ShowCounter(c fiber.Ctx) error
	Increment(c fiber.Ctx) error
	Decrement(c fiber.Ctx) error
}

type PageHandler struct {
	flow        businessflow.CounterFlow
	renderer    *views.Renderer
	counterName string
	logger      zerolog.Logger
}

func NewPageHandler(flow businessflow.CounterFlow, renderer *views.Renderer, counterName string, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		flow:        flow,
		renderer:    renderer,
		counterName: counterName,
		logger:      logger.With().Str("component", "page_handler").Logger(),
	}
}

// RenderPage writes a rendered page with the given status
func (h *PageHandler) RenderPage(c fiber.Ctx, statusCode int, name string, page views.Page) error {
	html, err := h.renderer.Render(name, page)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(statusCode).Send(html)
}

// Home renders the landing page
func (h *PageHandler) Home(c fiber.Ctx) error {
	return h.RenderPage(c, fiber.StatusOK, views.PageHome, views.Page{Title: "Counter App"})
}

// OpenCounter binds a fresh page to the counter and redirects to it
func (h *PageHandler) OpenCounter(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, CounterPath)
	defer cancel()

	page, err := h.flow.OpenCounter(ctx, h.counterName, clientMetadata(c))
	if err != nil {
		if businessflow.IsInvalidCounterName(err) {
			return h.RenderPage(c, fiber.StatusBadRequest, views.PageError, views.Page{
				Title: "Invalid counter",
				Data: views.ErrorPage{
					Heading:   "Invalid counter",
					Message:   validationMessages(err),
					RequestID: requestID(c),
				},
			})
		}
		return err
	}

	return c.Redirect().Status(fiber.StatusSeeOther).To(counterViewPath(page.ViewID))
}

// ShowCounter renders the counter page of an existing view
func (h *PageHandler) ShowCounter(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, CounterPath+"/:viewID")
	defer cancel()

	page, err := h.flow.CurrentView(ctx, c.Params("viewID"))
	if err != nil {
		return h.handleFlowError(c, err)
	}

	return h.RenderPage(c, fiber.StatusOK, views.PageCounter, views.Page{Title: "Counter App", Data: page})
}

// Increment adds one to the displayed value and writes it through
func (h *PageHandler) Increment(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, CounterPath+"/:viewID/increment")
	defer cancel()

	page, err := h.flow.Increment(ctx, c.Params("viewID"), clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err)
	}

	return c.Redirect().Status(fiber.StatusSeeOther).To(counterViewPath(page.ViewID))
}

// Decrement subtracts one from the displayed value and writes it through
func (h *PageHandler) Decrement(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, CounterPath+"/:viewID/decrement")
	defer cancel()

	page, err := h.flow.Decrement(ctx, c.Params("viewID"), clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err)
	}

	return c.Redirect().Status(fiber.StatusSeeOther).To(counterViewPath(page.ViewID))
}

// handleFlowError sends pages with a missing or expired view back to a fresh one
func (h *PageHandler) handleFlowError(c fiber.Ctx, err error) error {
	if businessflow.IsCounterViewNotFound(err) {
		h.logger.Debug().
			Str("request_id", requestID(c)).
			Str("path", c.Path()).
			Msg("Counter view not found, opening a new one")
		return c.Redirect().Status(fiber.StatusSeeOther).To(CounterPath)
	}
	return err
}

func counterViewPath(viewID string) string {
	return CounterPath + "/" + viewID
}
