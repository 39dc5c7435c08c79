package checkout

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/junaidrashid-git/floreria-api/cart"
	"github.com/junaidrashid-git/floreria-api/metrics"
	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/upstream"
)

// OrderAPI is the part of the shop API the submitter needs.
type OrderAPI interface {
	CreateOrder(ctx context.Context, order upstream.OrderRequest) (*upstream.OrderResponse, error)
	RequestPayment(ctx context.Context, pedidoID int64) (*upstream.PaymentResponse, error)
}

// OrderRecorder keeps the local order history.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, order *models.Order) error
}

// Result tells the storefront where to send the shopper after an order.
type Result struct {
	PedidoID       int64           `json:"pedido_id"`
	NumeroPedido   string          `json:"numero_pedido"`
	Total          decimal.Decimal `json:"total"`
	ShippingCost   decimal.Decimal `json:"costo_envio"`
	DeliveryDate   string          `json:"fecha_entrega"`
	RedirectURL    string          `json:"redirect_url"`
	PaymentPending bool            `json:"pago_pendiente"`
}

// Submitter sends orders to the shop API and performs the local bookkeeping of a
// successful order: last order record, order history, cart clearing.
type Submitter struct {
	api        OrderAPI
	carts      *cart.Store
	orders     OrderRecorder
	shipping   *Calculator
	successURL string
	logger     *zap.Logger
	now        func() time.Time
	location   *time.Location

	onOrder []func(*models.Order)
}

func NewSubmitter(api OrderAPI, carts *cart.Store, orders OrderRecorder, shipping *Calculator, successURL string, logger *zap.Logger) *Submitter {
	return &Submitter{
		api:        api,
		carts:      carts,
		orders:     orders,
		shipping:   shipping,
		successURL: successURL,
		logger:     logger,
		now:        time.Now,
		location:   time.Local,
	}
}

// SetLocation sets the shop's time zone. Default delivery dates are computed on
// the shop's calendar, not the host's.
func (s *Submitter) SetLocation(loc *time.Location) {
	if loc != nil {
		s.location = loc
	}
}

// OnOrder registers a callback run after each created order.
func (s *Submitter) OnOrder(fn func(*models.Order)) {
	s.onOrder = append(s.onOrder, fn)
}

// BuildRequest assembles the order payload for form and c.
func BuildRequest(form FormData, c *cart.Cart, shippingCost decimal.Decimal, now time.Time) upstream.OrderRequest {
	req := upstream.OrderRequest{
		CompradorNombre:   form.Sender.Name,
		CompradorEmail:    form.Sender.Email,
		CompradorTelefono: form.Sender.Phone,
		Anonimo:           form.Sender.Anonymous,
		FechaEntrega:      DeliveryDate(form, now),
		MetodoEnvio:       string(form.Shipping.Method),
		CostoEnvio:        shippingCost,
		Dedicatoria:       form.Dedication.Message,
		Firma:             form.Dedication.Signature,
		IncluirTarjeta:    form.Dedication.IncludeCard,
		MetodoPago:        string(form.Payment.Method),
		Items:             make([]upstream.OrderItem, 0, len(c.Items)),
	}
	if form.Shipping.Method == MethodScheduled {
		req.FranjaHoraria = form.Shipping.TimeSlot
	}
	if !form.Shipping.Method.IsPickup() {
		r := form.Recipient
		req.DestinatarioNombre = r.Name
		req.DestinatarioTelefono = r.Phone
		req.Direccion = r.Address
		req.Ciudad = r.City
		req.CodigoPostal = r.PostalCode
		req.Latitud = r.Lat
		req.Longitud = r.Lng
	}
	for _, it := range c.Items {
		req.Items = append(req.Items, upstream.OrderItem{ProductoID: it.ProductID, Cantidad: it.Quantity})
	}
	return req
}

// SubmitOrder creates the order. A failed creation returns the shop API error and
// leaves the cart untouched. Once the order exists, a failed payment
// initialisation only marks the result as pending.
func (s *Submitter) SubmitOrder(ctx context.Context, owner string, form FormData, c *cart.Cart) (*Result, error) {
	if c == nil || c.IsEmpty {
		metrics.CheckoutSubmissions.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	quote, err := s.shipping.Quote(form.Shipping.Method, form.Recipient)
	if err != nil {
		metrics.CheckoutSubmissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	now := s.now().In(s.location)
	req := BuildRequest(form, c, quote.Cost, now)
	req.IdempotencyKey = uuid.NewString()
	created, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			metrics.CheckoutSubmissions.WithLabelValues("rejected").Inc()
		} else {
			metrics.CheckoutSubmissions.WithLabelValues("unavailable").Inc()
		}
		s.logger.Warn("order creation failed", zap.String("guest_id", owner), zap.Error(err))
		return nil, err
	}

	total := created.Total
	if total.IsZero() {
		total = c.TotalPrice.Add(quote.Cost)
	}
	res := &Result{
		PedidoID:     created.PedidoID,
		NumeroPedido: created.NumeroPedido,
		Total:        total,
		ShippingCost: quote.Cost,
		DeliveryDate: req.FechaEntrega,
		RedirectURL:  s.successRedirect(created, false),
	}

	if form.Payment.Method.Electronic() {
		pay, err := s.api.RequestPayment(ctx, created.PedidoID)
		switch {
		case err != nil:
			s.logger.Error("payment initialisation failed", zap.Int64("pedido_id", created.PedidoID), zap.Error(err))
			res.PaymentPending = true
		case !pay.Success || pay.InitPoint == "":
			s.logger.Error("payment initialisation refused", zap.Int64("pedido_id", created.PedidoID))
			res.PaymentPending = true
		default:
			res.RedirectURL = pay.InitPoint
		}
		if res.PaymentPending {
			res.RedirectURL = s.successRedirect(created, true)
		}
	}

	s.bookkeep(ctx, owner, form, c, req, res, now)

	if res.PaymentPending {
		metrics.CheckoutSubmissions.WithLabelValues("payment_pending").Inc()
	} else {
		metrics.CheckoutSubmissions.WithLabelValues("created").Inc()
	}
	s.logger.Info("order created",
		zap.String("guest_id", owner),
		zap.Int64("pedido_id", res.PedidoID),
		zap.String("numero_pedido", res.NumeroPedido),
		zap.String("payment_method", string(form.Payment.Method)),
		zap.Bool("payment_pending", res.PaymentPending))
	return res, nil
}

// bookkeep runs after the order exists upstream, so its failures are logged only.
func (s *Submitter) bookkeep(ctx context.Context, owner string, form FormData, c *cart.Cart, req upstream.OrderRequest, res *Result, now time.Time) {
	last := cart.LastOrder{
		PedidoID:      res.PedidoID,
		NumeroPedido:  res.NumeroPedido,
		Total:         res.Total,
		PaymentMethod: string(form.Payment.Method),
		DeliveryDate:  res.DeliveryDate,
		RedirectURL:   res.RedirectURL,
		CreatedAt:     now,
	}
	if err := s.carts.SaveLastOrder(ctx, owner, last); err != nil {
		s.logger.Error("saving last order failed", zap.String("guest_id", owner), zap.Error(err))
	}

	order := &models.Order{
		GuestID:        owner,
		PedidoID:       res.PedidoID,
		NumeroPedido:   res.NumeroPedido,
		ShippingMethod: string(form.Shipping.Method),
		ShippingCost:   res.ShippingCost,
		Total:          res.Total,
		DeliveryDate:   res.DeliveryDate,
		TimeSlot:       req.FranjaHoraria,
		RecipientName:  req.DestinatarioNombre,
		Status:         models.OrderStatusCreated,
		PaymentStatus:  models.PaymentStatusPending,
		PaymentMethod:  string(form.Payment.Method),
		CreatedAt:      now,
	}
	for _, it := range c.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	if err := s.orders.RecordOrder(ctx, order); err != nil {
		s.logger.Error("recording order history failed", zap.Int64("pedido_id", res.PedidoID), zap.Error(err))
	}

	if _, err := s.carts.Clear(ctx, owner); err != nil {
		s.logger.Error("clearing cart after order failed", zap.String("guest_id", owner), zap.Error(err))
	}

	for _, fn := range s.onOrder {
		fn(order)
	}
}

func (s *Submitter) successRedirect(created *upstream.OrderResponse, paymentPending bool) string {
	u, err := url.Parse(s.successURL)
	if err != nil {
		return s.successURL
	}
	q := u.Query()
	q.Set("pedido", created.NumeroPedido)
	if paymentPending {
		q.Set("pago", "pendiente")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

var _ OrderSubmitter = (*Submitter)(nil)

