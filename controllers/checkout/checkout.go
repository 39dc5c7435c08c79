package checkoutControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/junaidrashid-git/floreria-api/cart"
	"github.com/junaidrashid-git/floreria-api/checkout"
	"github.com/junaidrashid-git/floreria-api/middleware"
	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/upstream"
)

// CheckoutController exposes the checkout wizard over HTTP. Every request loads
// the wizard from its session, applies one transition and saves it back.
type CheckoutController struct {
	sessions  *checkout.Sessions
	carts     *cart.Store
	submitter checkout.OrderSubmitter
	shipping  *checkout.Calculator
	logger    *zap.Logger

	confirms singleflight.Group
}

func NewCheckoutController(sessions *checkout.Sessions, carts *cart.Store, submitter checkout.OrderSubmitter, shipping *checkout.Calculator, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{
		sessions:  sessions,
		carts:     carts,
		submitter: submitter,
		shipping:  shipping,
		logger:    logger,
	}
}

// RegisterRoutes mounts the wizard under group. mutate wraps state changing routes
// (rate limiting).
func (h *CheckoutController) RegisterRoutes(group *gin.RouterGroup, mutate ...gin.HandlerFunc) {
	with := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, mutate...), handler)
	}

	group.POST("/sesiones", with(h.CreateSession)...)
	group.GET("/sesiones/:id", h.GetSession)
	group.PATCH("/sesiones/:id/formulario", with(h.UpdateForm)...)
	group.POST("/sesiones/:id/siguiente", with(h.Next)...)
	group.POST("/sesiones/:id/anterior", with(h.Prev)...)
	group.POST("/sesiones/:id/confirmar", with(h.Confirm)...)

	group.GET("/envio/opciones", h.ShippingOptions)
	group.POST("/envio/cotizar", h.QuoteShipping)
}

type sessionResponse struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	PedidoID   int64             `json:"pedido_id,omitempty"`
	Paso       checkout.StepView `json:"paso"`
	Estado     checkout.State    `json:"estado"`
	Cotizacion *checkout.Quote   `json:"cotizacion,omitempty"`
	EnvioError string            `json:"envio_error,omitempty"`
}

func (h *CheckoutController) respond(c *gin.Context, status int, session *models.CheckoutSession, w *checkout.Wizard) {
	resp := sessionResponse{
		ID:       session.ID,
		Status:   session.Status,
		PedidoID: session.PedidoID,
		Paso:     w.View(),
		Estado:   w.State(),
	}
	form := w.Form()
	if quote, err := h.shipping.Quote(form.Shipping.Method, form.Recipient); err == nil {
		resp.Cotizacion = &quote
	} else {
		resp.EnvioError = shippingMessage(err)
	}
	c.JSON(status, resp)
}

func shippingMessage(err error) string {
	switch {
	case errors.Is(err, checkout.ErrOutsideDeliveryArea):
		return "La dirección está fuera de nuestra zona de entrega"
	case errors.Is(err, checkout.ErrUnknownShipping):
		return "Método de envío no disponible"
	default:
		return "No se pudo calcular el envío"
	}
}

// load fetches the session of the path; open reports whether it must still accept
// changes.
func (h *CheckoutController) load(c *gin.Context, open bool) (*models.CheckoutSession, *checkout.Wizard, bool) {
	session, w, err := h.sessions.Load(c.Request.Context(), middleware.GuestID(c), c.Param("id"))
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Sesión de checkout no encontrada"})
		return nil, nil, false
	case err != nil:
		h.logger.Error("loading checkout session failed", zap.String("session_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo cargar el checkout"})
		return nil, nil, false
	}
	if open && session.Status != models.SessionStatusOpen {
		c.JSON(http.StatusConflict, gin.H{"error": "El pedido ya fue confirmado", "pedido_id": session.PedidoID})
		return nil, nil, false
	}
	return session, w, true
}

func (h *CheckoutController) save(c *gin.Context, session *models.CheckoutSession, w *checkout.Wizard) bool {
	if err := h.sessions.Save(c.Request.Context(), session, w); err != nil {
		h.logger.Error("saving checkout session failed", zap.String("session_id", session.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo guardar el checkout"})
		return false
	}
	return true
}

// POST /checkout/sesiones
func (h *CheckoutController) CreateSession(c *gin.Context) {
	w := checkout.NewWizard(checkout.DefaultForm())
	session, err := h.sessions.Create(c.Request.Context(), middleware.GuestID(c), w)
	if err != nil {
		h.logger.Error("creating checkout session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo iniciar el checkout"})
		return
	}
	h.respond(c, http.StatusCreated, session, w)
}

// GET /checkout/sesiones/:id
func (h *CheckoutController) GetSession(c *gin.Context) {
	session, w, ok := h.load(c, false)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, session, w)
}

// PATCH /checkout/sesiones/:id/formulario merges the JSON body into the form.
func (h *CheckoutController) UpdateForm(c *gin.Context) {
	session, w, ok := h.load(c, true)
	if !ok {
		return
	}
	form := w.Form()
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	w.UpdateForm(form)
	if !h.save(c, session, w) {
		return
	}
	h.respond(c, http.StatusOK, session, w)
}

// POST /checkout/sesiones/:id/siguiente
func (h *CheckoutController) Next(c *gin.Context) {
	session, w, ok := h.load(c, true)
	if !ok {
		return
	}
	w.Next()
	if !h.save(c, session, w) {
		return
	}
	status := http.StatusOK
	if w.HasErrors() {
		status = http.StatusBadRequest
	}
	h.respond(c, status, session, w)
}

// POST /checkout/sesiones/:id/anterior
func (h *CheckoutController) Prev(c *gin.Context) {
	session, w, ok := h.load(c, true)
	if !ok {
		return
	}
	w.Prev()
	if !h.save(c, session, w) {
		return
	}
	h.respond(c, http.StatusOK, session, w)
}

type confirmOutcome struct {
	status int
	body   interface{}
}

// POST /checkout/sesiones/:id/confirmar. Concurrent confirmations of the same
// session share a single submission.
func (h *CheckoutController) Confirm(c *gin.Context) {
	key := middleware.GuestID(c) + "/" + c.Param("id")
	v, _, _ := h.confirms.Do(key, func() (interface{}, error) {
		return h.confirm(c), nil
	})
	outcome := v.(confirmOutcome)
	c.JSON(outcome.status, outcome.body)
}

func (h *CheckoutController) confirm(c *gin.Context) confirmOutcome {
	ctx := c.Request.Context()
	guestID := middleware.GuestID(c)

	session, w, err := h.sessions.Load(ctx, guestID, c.Param("id"))
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		return confirmOutcome{http.StatusNotFound, gin.H{"error": "Sesión de checkout no encontrada"}}
	case err != nil:
		h.logger.Error("loading checkout session failed", zap.Error(err))
		return confirmOutcome{http.StatusInternalServerError, gin.H{"error": "No se pudo cargar el checkout"}}
	case session.Status != models.SessionStatusOpen:
		return confirmOutcome{http.StatusConflict, gin.H{"error": "El pedido ya fue confirmado", "pedido_id": session.PedidoID}}
	}

	current, err := h.carts.Load(ctx, guestID)
	if err != nil {
		h.logger.Error("loading cart for checkout failed", zap.Error(err))
		return confirmOutcome{http.StatusInternalServerError, gin.H{"error": "No se pudo leer el carrito"}}
	}

	result, err := w.Submit(ctx, guestID, current, h.submitter)
	if err != nil {
		return h.submitError(c, session, w, err)
	}

	if err := h.sessions.MarkSubmitted(ctx, session, result.PedidoID); err != nil {
		h.logger.Error("closing checkout session failed", zap.String("session_id", session.ID), zap.Error(err))
	}
	return confirmOutcome{http.StatusCreated, result}
}

func (h *CheckoutController) submitError(c *gin.Context, session *models.CheckoutSession, w *checkout.Wizard, err error) confirmOutcome {
	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return confirmOutcome{http.StatusUnprocessableEntity, gin.H{"error": "Tu carrito está vacío"}}
	case errors.Is(err, checkout.ErrNotOnFinalStep):
		return confirmOutcome{http.StatusConflict, gin.H{"error": "Completá todos los pasos antes de confirmar", "paso": w.View()}}
	case errors.Is(err, checkout.ErrValidation):
		if saveErr := h.sessions.Save(c.Request.Context(), session, w); saveErr != nil {
			h.logger.Error("saving checkout session failed", zap.Error(saveErr))
		}
		return confirmOutcome{http.StatusBadRequest, gin.H{"error": "Revisá los datos del formulario", "errors": w.Errors(), "paso": w.View()}}
	case errors.Is(err, checkout.ErrOutsideDeliveryArea), errors.Is(err, checkout.ErrUnknownShipping):
		return confirmOutcome{http.StatusBadRequest, gin.H{"error": shippingMessage(err)}}
	case errors.As(err, &apiErr):
		return confirmOutcome{apiErr.Status, apiErr}
	case errors.Is(err, upstream.ErrUnavailable):
		return confirmOutcome{http.StatusBadGateway, gin.H{"error": "servicio no disponible"}}
	default:
		h.logger.Error("order submission failed", zap.String("session_id", session.ID), zap.Error(err))
		return confirmOutcome{http.StatusBadGateway, gin.H{"error": "servicio no disponible"}}
	}
}

// GET /checkout/envio/opciones
func (h *CheckoutController) ShippingOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.shipping.Options())
}

type quoteInput struct {
	Metodo       checkout.ShippingMethod `json:"metodo" binding:"required"`
	Destinatario checkout.Recipient      `json:"destinatario"`
}

// POST /checkout/envio/cotizar
func (h *CheckoutController) QuoteShipping(c *gin.Context) {
	var input quoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	quote, err := h.shipping.Quote(input.Metodo, input.Destinatario)
	switch {
	case errors.Is(err, checkout.ErrOutsideDeliveryArea):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": shippingMessage(err)})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": shippingMessage(err)})
	default:
		c.JSON(http.StatusOK, quote)
	}
}
