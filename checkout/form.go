// Package checkout implements the multi-step checkout: the form the shopper fills in,
// the step list of each flow, per-step validation, shipping quotes and order submission.
package checkout

type ShippingMethod string

const (
	MethodPickup    ShippingMethod = "pickup"
	MethodExpress   ShippingMethod = "express"
	MethodScheduled ShippingMethod = "scheduled"
)

// IsPickup reports whether the method skips the recipient address. Any other value,
// including an unknown one, selects the delivery flow.
func (m ShippingMethod) IsPickup() bool { return m == MethodPickup }

func (m ShippingMethod) Known() bool {
	switch m {
	case MethodPickup, MethodExpress, MethodScheduled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMercadoPago PaymentMethod = "mercadopago"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentCash        PaymentMethod = "cash"
)

// Electronic payments redirect the shopper to the payment provider.
func (m PaymentMethod) Electronic() bool { return m == PaymentMercadoPago }

func (m PaymentMethod) Known() bool {
	switch m {
	case PaymentMercadoPago, PaymentTransfer, PaymentCash:
		return true
	}
	return false
}

type Sender struct {
	Name      string `json:"nombre"`
	Email     string `json:"email"`
	Phone     string `json:"telefono"`
	Anonymous bool   `json:"anonimo"`
}

type Recipient struct {
	Name       string   `json:"nombre"`
	Phone      string   `json:"telefono"`
	Address    string   `json:"direccion"`
	City       string   `json:"ciudad"`
	PostalCode string   `json:"codigo_postal"`
	Lat        *float64 `json:"latitud,omitempty"`
	Lng        *float64 `json:"longitud,omitempty"`
}

// HasCoordinates reports whether the address was geolocated.
func (r Recipient) HasCoordinates() bool { return r.Lat != nil && r.Lng != nil }

type Dedication struct {
	Message     string `json:"mensaje"`
	Signature   string `json:"firma"`
	IncludeCard bool   `json:"incluir_tarjeta"`
}

type Shipping struct {
	Method   ShippingMethod `json:"metodo"`
	Date     string         `json:"fecha"`
	TimeSlot string         `json:"franja_horaria"`
}

type Payment struct {
	Method        PaymentMethod `json:"metodo"`
	TermsAccepted bool          `json:"terminos_aceptados"`
}

// FormData is everything the shopper enters during checkout.
type FormData struct {
	Sender     Sender     `json:"remitente"`
	Recipient  Recipient  `json:"destinatario"`
	Dedication Dedication `json:"dedicatoria"`
	Shipping   Shipping   `json:"envio"`
	Payment    Payment    `json:"pago"`
}

// DefaultForm is the form a new checkout starts from.
func DefaultForm() FormData {
	return FormData{
		Shipping: Shipping{Method: MethodPickup},
		Payment:  Payment{Method: PaymentMercadoPago},
	}
}
