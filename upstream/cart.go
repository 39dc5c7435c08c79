package upstream

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/junaidrashid-git/floreria-api/cart"
)

type serverCartItem struct {
	ProductoID     uint            `json:"producto_id"`
	Nombre         string          `json:"nombre"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Cantidad       int             `json:"cantidad"`
	Imagen         string          `json:"imagen,omitempty"`
}

type serverCart struct {
	Items []serverCartItem `json:"items"`
}

type cartLine struct {
	ProductoID uint `json:"producto_id"`
	Cantidad   int  `json:"cantidad,omitempty"`
}

// Snapshot fetches the server cart of owner.
func (c *Client) Snapshot(ctx context.Context, owner string) (*cart.Cart, error) {
	var sc serverCart
	err := c.do(ctx, request{endpoint: "cart_get", method: http.MethodGet, path: "/carrito/simple/", cartID: owner}, &sc)
	if err != nil {
		return nil, err
	}
	items := make([]cart.Item, 0, len(sc.Items))
	for _, it := range sc.Items {
		items = append(items, cart.Item{
			ProductID: it.ProductoID,
			Name:      it.Nombre,
			UnitPrice: it.PrecioUnitario,
			Quantity:  it.Cantidad,
			Image:     it.Imagen,
		})
	}
	return cart.FromItems(items), nil
}

func (c *Client) AddItem(ctx context.Context, owner string, productID uint, qty int) error {
	return c.do(ctx, request{endpoint: "cart_add", method: http.MethodPost, path: "/carrito/simple/add/", cartID: owner,
		body: cartLine{ProductoID: productID, Cantidad: qty}}, nil)
}

func (c *Client) UpdateItem(ctx context.Context, owner string, productID uint, qty int) error {
	return c.do(ctx, request{endpoint: "cart_update", method: http.MethodPost, path: "/carrito/simple/update/", cartID: owner,
		body: cartLine{ProductoID: productID, Cantidad: qty}}, nil)
}

func (c *Client) RemoveItem(ctx context.Context, owner string, productID uint) error {
	return c.do(ctx, request{endpoint: "cart_remove", method: http.MethodPost, path: "/carrito/simple/remove/", cartID: owner,
		body: cartLine{ProductoID: productID}}, nil)
}

func (c *Client) ClearCart(ctx context.Context, owner string) error {
	return c.do(ctx, request{endpoint: "cart_clear", method: http.MethodPost, path: "/carrito/simple/clear/", cartID: owner,
		body: struct{}{}}, nil)
}

var _ cart.Mirror = (*Client)(nil)
