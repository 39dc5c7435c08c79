// Package cart holds the shopper's cart: line items, derived totals, persistence to the
// shopper's client-state storage and the optional mirror on the shop API.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/junaidrashid-git/floreria-api/models"
)

// SyncState tells whether the server-side mirror agrees with the local cart.
type SyncState string

const (
	SyncLocalOnly SyncState = "local-only"
	SyncSyncing   SyncState = "syncing"
	SyncSynced    SyncState = "synced"
)

// Item is a line of the cart. Stock is the product stock when the line was added;
// zero means the stock is unknown (lines adopted from the server snapshot).
type Item struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Stock     int             `json:"stock,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// Cart is the serialized cart object. Totals are always derived from Items.
type Cart struct {
	Items      []Item          `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalItems int             `json:"total_items"`
	IsEmpty    bool            `json:"is_empty"`
	SyncState  SyncState       `json:"sync_state"`
}

// Product is what the cart needs to know about a catalog product.
type Product struct {
	ID    uint
	Name  string
	Price decimal.Decimal
	Stock int
	Image string
}

func ProductFromModel(p models.Product) Product {
	return Product{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock, Image: p.Image}
}

// New returns an empty local-only cart.
func New() *Cart {
	c := &Cart{Items: []Item{}, SyncState: SyncLocalOnly}
	c.recompute()
	return c
}

// FromItems builds a cart from raw lines, recomputing line totals and totals.
func FromItems(items []Item) *Cart {
	c := New()
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		if i := c.find(it.ProductID); i >= 0 {
			c.Items[i].Quantity += it.Quantity
			continue
		}
		c.Items = append(c.Items, it)
	}
	c.recompute()
	return c
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make([]Item, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

// Item returns the line for productID.
func (c *Cart) Item(productID uint) (Item, bool) {
	if i := c.find(productID); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

func (c *Cart) find(productID uint) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) recompute() {
	if c.Items == nil {
		c.Items = []Item{}
	}
	total := decimal.Zero
	count := 0
	for i := range c.Items {
		it := &c.Items[i]
		it.LineTotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(it.LineTotal)
		count += it.Quantity
	}
	c.TotalPrice = total
	c.TotalItems = count
	c.IsEmpty = len(c.Items) == 0
}

func (c *Cart) add(p Product, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	i := c.find(p.ID)
	newQty := qty
	if i >= 0 {
		newQty += c.Items[i].Quantity
	}
	if newQty > p.Stock {
		return ErrInsufficientStock
	}
	if i >= 0 {
		c.Items[i].Quantity = newQty
		c.Items[i].UnitPrice = p.Price
		c.Items[i].Stock = p.Stock
	} else {
		c.Items = append(c.Items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  qty,
			Stock:     p.Stock,
			Image:     p.Image,
		})
	}
	c.recompute()
	return nil
}

// setQuantity sets a line quantity. Below 1 the line is dropped so that every
// remaining line keeps quantity >= 1.
func (c *Cart) setQuantity(productID uint, qty int) error {
	i := c.find(productID)
	if i < 0 {
		return ErrItemNotInCart
	}
	if qty < 1 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		c.recompute()
		return nil
	}
	if stock := c.Items[i].Stock; stock > 0 && qty > stock {
		return ErrInsufficientStock
	}
	c.Items[i].Quantity = qty
	c.recompute()
	return nil
}

func (c *Cart) remove(productID uint) error {
	i := c.find(productID)
	if i < 0 {
		return ErrItemNotInCart
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.recompute()
	return nil
}

func (c *Cart) clear() {
	c.Items = []Item{}
	c.recompute()
}
