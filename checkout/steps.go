package checkout

// StepKind tags a wizard step. Steps are always looked up by tag, never by position.
type StepKind string

const (
	StepShipping   StepKind = "metodo_envio"
	StepRecipient  StepKind = "destinatario"
	StepSender     StepKind = "remitente"
	StepDedication StepKind = "dedicatoria"
	StepPayment    StepKind = "pago"
)

var (
	pickupFlow   = []StepKind{StepShipping, StepSender, StepDedication, StepPayment}
	deliveryFlow = []StepKind{StepShipping, StepRecipient, StepSender, StepDedication, StepPayment}
)

// StepsFor returns the step list of the flow selected by method.
func StepsFor(m ShippingMethod) []StepKind {
	flow := deliveryFlow
	if m.IsPickup() {
		flow = pickupFlow
	}
	return append([]StepKind(nil), flow...)
}

// StepView describes what the storefront renders for a step.
type StepView struct {
	Step   StepKind `json:"paso"`
	Title  string   `json:"titulo"`
	Fields []string `json:"campos"`
}

var stepViews = map[StepKind]StepView{
	StepShipping: {
		Step:   StepShipping,
		Title:  "Método de envío",
		Fields: []string{"envio.metodo", "envio.fecha", "envio.franja_horaria"},
	},
	StepRecipient: {
		Step:   StepRecipient,
		Title:  "¿Quién recibe?",
		Fields: []string{"destinatario.nombre", "destinatario.telefono", "destinatario.direccion", "destinatario.ciudad", "destinatario.codigo_postal"},
	},
	StepSender: {
		Step:   StepSender,
		Title:  "Tus datos",
		Fields: []string{"remitente.nombre", "remitente.email", "remitente.telefono", "remitente.anonimo"},
	},
	StepDedication: {
		Step:   StepDedication,
		Title:  "Dedicatoria",
		Fields: []string{"dedicatoria.mensaje", "dedicatoria.firma", "dedicatoria.incluir_tarjeta"},
	},
	StepPayment: {
		Step:   StepPayment,
		Title:  "Pago",
		Fields: []string{"pago.metodo", "pago.terminos_aceptados"},
	},
}

// ViewFor returns the rendering descriptor of step.
func ViewFor(step StepKind) StepView {
	v := stepViews[step]
	v.Fields = append([]string(nil), v.Fields...)
	return v
}

func indexOf(steps []StepKind, step StepKind) int {
	for i, s := range steps {
		if s == step {
			return i
		}
	}
	return -1
}
