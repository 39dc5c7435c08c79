package checkout

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/junaidrashid-git/floreria-api/config"
)

const earthRadiusKm = 6371.0

// Quote is the price of one shipping option for a recipient.
type Quote struct {
	Method     ShippingMethod  `json:"metodo"`
	Label      string          `json:"etiqueta"`
	Cost       decimal.Decimal `json:"costo"`
	Zone       string          `json:"zona,omitempty"`
	DistanceKm float64         `json:"distancia_km,omitempty"`
}

// Calculator prices the shipping options. Its configuration can be swapped at
// runtime.
type Calculator struct {
	mu  sync.RWMutex
	cfg config.ShippingConfig
}

func NewCalculator(cfg config.ShippingConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

func (c *Calculator) Replace(cfg config.ShippingConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

// Options lists every option at its base cost.
func (c *Calculator) Options() []Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Quote, 0, len(c.cfg.Options))
	for _, o := range c.cfg.Options {
		out = append(out, Quote{Method: ShippingMethod(o.Method), Label: o.Label, Cost: money(o.Cost)})
	}
	return out
}

// Quote prices method for r. Distance based options use the postal code table
// first, then the distance from the shop when the address has coordinates, and
// fall back to the option's base cost otherwise.
func (c *Calculator) Quote(method ShippingMethod, r Recipient) (Quote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var opt *config.ShippingOption
	for i := range c.cfg.Options {
		if c.cfg.Options[i].Method == string(method) {
			opt = &c.cfg.Options[i]
			break
		}
	}
	if opt == nil {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownShipping, method)
	}

	q := Quote{Method: method, Label: opt.Label, Cost: money(opt.Cost)}
	if method.IsPickup() || !opt.DistanceBased {
		return q, nil
	}

	if zone, ok := c.zoneByPostalCode(r.PostalCode); ok {
		q.Zone = zone.Name
		q.Cost = money(zone.Cost)
		return q, nil
	}
	if !r.HasCoordinates() {
		return q, nil
	}

	dist := Haversine(c.cfg.Origin, config.Coordinates{Lat: *r.Lat, Lng: *r.Lng})
	q.DistanceKm = math.Round(dist*100) / 100
	for _, z := range c.cfg.Zones {
		if dist <= z.MaxKm {
			q.Zone = z.Name
			q.Cost = money(z.Cost)
			return q, nil
		}
	}
	return Quote{}, ErrOutsideDeliveryArea
}

func (c *Calculator) zoneByPostalCode(code string) (config.ShippingZone, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return config.ShippingZone{}, false
	}
	for _, z := range c.cfg.Zones {
		for _, pc := range z.PostalCodes {
			if strings.EqualFold(pc, code) {
				return z, true
			}
		}
	}
	return config.ShippingZone{}, false
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b config.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
