package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderItem is a line of the order payload.
type OrderItem struct {
	ProductoID uint `json:"producto_id"`
	Cantidad   int  `json:"cantidad"`
}

// OrderRequest is the body of POST /pedidos/checkout-with-items/.
type OrderRequest struct {
	CompradorNombre   string `json:"comprador_nombre"`
	CompradorEmail    string `json:"comprador_email"`
	CompradorTelefono string `json:"comprador_telefono"`
	Anonimo           bool   `json:"anonimo"`

	DestinatarioNombre   string   `json:"destinatario_nombre,omitempty"`
	DestinatarioTelefono string   `json:"destinatario_telefono,omitempty"`
	Direccion            string   `json:"direccion,omitempty"`
	Ciudad               string   `json:"ciudad,omitempty"`
	CodigoPostal         string   `json:"codigo_postal,omitempty"`
	Latitud              *float64 `json:"latitud,omitempty"`
	Longitud             *float64 `json:"longitud,omitempty"`

	FechaEntrega  string          `json:"fecha_entrega"`
	FranjaHoraria string          `json:"franja_horaria,omitempty"`
	MetodoEnvio   string          `json:"metodo_envio"`
	CostoEnvio    decimal.Decimal `json:"costo_envio"`

	Dedicatoria    string `json:"dedicatoria,omitempty"`
	Firma          string `json:"firma,omitempty"`
	IncluirTarjeta bool   `json:"incluir_tarjeta"`

	MetodoPago string      `json:"metodo_pago"`
	Items      []OrderItem `json:"items"`

	// IdempotencyKey is sent as the Idempotency-Key header so that retried
	// attempts of one submission create a single order.
	IdempotencyKey string `json:"-"`
}

type OrderResponse struct {
	PedidoID     int64           `json:"pedido_id"`
	NumeroPedido string          `json:"numero_pedido"`
	Total        decimal.Decimal `json:"total"`
}

type PaymentResponse struct {
	Success   bool   `json:"success"`
	InitPoint string `json:"init_point"`
}

// orderCreateResult is either an order or an {error, details} rejection; the
// shop API may send the latter with a 2xx status.
type orderCreateResult struct {
	OrderResponse
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

// CreateOrder creates the order on the shop API. A response without a pedido_id
// is a rejection.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest) (*OrderResponse, error) {
	var resp orderCreateResult
	err := c.do(ctx, request{
		endpoint:       "order_create",
		method:         http.MethodPost,
		path:           "/pedidos/checkout-with-items/",
		idempotencyKey: order.IdempotencyKey,
		body:           order,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" || resp.PedidoID == 0 {
		apiErr := &APIError{Status: http.StatusUnprocessableEntity, Message: resp.Error, Details: resp.Details}
		if apiErr.Message == "" {
			apiErr.Message = "el pedido no fue creado"
		}
		c.logger.Warn("order creation answered without an order", zap.String("error", apiErr.Message))
		return nil, apiErr
	}
	return &resp.OrderResponse, nil
}

// RequestPayment asks the shop API for the payment provider redirect of an order.
func (c *Client) RequestPayment(ctx context.Context, pedidoID int64) (*PaymentResponse, error) {
	var resp PaymentResponse
	path := fmt.Sprintf("/pedidos/simple/%d/payment/", pedidoID)
	if err := c.do(ctx, request{endpoint: "order_payment", method: http.MethodPost, path: path, body: struct{}{}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
