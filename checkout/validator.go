package checkout

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrorMap maps a field key to its message. An empty map means the step is valid.
type ErrorMap map[string]string

const (
	msgRequired        = "Este campo es obligatorio"
	maxMessageRunes    = 500
	deliveryDateFormat = "2006-01-02"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{7,15}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "")
)

type rule func(f FormData, errs ErrorMap)

var rules = map[StepKind][]rule{
	StepShipping: {
		func(f FormData, errs ErrorMap) {
			if !f.Shipping.Method.Known() {
				errs["metodo_envio"] = "Elegí un método de envío"
			}
		},
		func(f FormData, errs ErrorMap) {
			if f.Shipping.Method != MethodScheduled {
				return
			}
			date := strings.TrimSpace(f.Shipping.Date)
			switch {
			case date == "":
				errs["fecha"] = "Elegí la fecha de entrega"
			case !validDate(date):
				errs["fecha"] = "Fecha inválida"
			}
			if strings.TrimSpace(f.Shipping.TimeSlot) == "" {
				errs["franja_horaria"] = "Elegí una franja horaria"
			}
		},
	},
	StepRecipient: {
		required("nombre_destinatario", func(f FormData) string { return f.Recipient.Name }),
		required("telefono_destinatario", func(f FormData) string { return f.Recipient.Phone }),
		required("direccion", func(f FormData) string { return f.Recipient.Address }),
		required("ciudad", func(f FormData) string { return f.Recipient.City }),
	},
	StepSender: {
		func(f FormData, errs ErrorMap) {
			if f.Sender.Anonymous {
				return
			}
			if strings.TrimSpace(f.Sender.Name) == "" {
				errs["nombre"] = msgRequired
			}
			email := strings.TrimSpace(f.Sender.Email)
			switch {
			case email == "":
				errs["email"] = msgRequired
			case !emailPattern.MatchString(email):
				errs["email"] = "Email inválido"
			}
			phone := strings.TrimSpace(f.Sender.Phone)
			switch {
			case phone == "":
				errs["telefono"] = msgRequired
			case !phonePattern.MatchString(phoneStrip.Replace(phone)):
				errs["telefono"] = "El teléfono debe tener entre 7 y 15 dígitos"
			}
		},
	},
	StepDedication: {
		func(f FormData, errs ErrorMap) {
			if utf8.RuneCountInString(f.Dedication.Message) > maxMessageRunes {
				errs["mensaje"] = "La dedicatoria no puede superar los 500 caracteres"
			}
		},
	},
	StepPayment: {
		func(f FormData, errs ErrorMap) {
			if !f.Payment.TermsAccepted {
				errs["terminos"] = "Tenés que aceptar los términos y condiciones"
			}
			if !f.Payment.Method.Known() {
				errs["metodo_pago"] = "Elegí un medio de pago"
			}
		},
	},
}

func required(field string, get func(FormData) string) rule {
	return func(f FormData, errs ErrorMap) {
		if strings.TrimSpace(get(f)) == "" {
			errs[field] = msgRequired
		}
	}
}

func validDate(s string) bool {
	_, err := time.Parse(deliveryDateFormat, s)
	return err == nil
}

// ValidateStep runs the rules of step against f. Steps without rules are valid.
func ValidateStep(step StepKind, f FormData) ErrorMap {
	errs := ErrorMap{}
	for _, r := range rules[step] {
		r(f, errs)
	}
	return errs
}

// ValidateStepAt validates the step at index of the flow selected by f. An index
// outside the flow has no rules.
func ValidateStepAt(index int, f FormData) ErrorMap {
	steps := StepsFor(f.Shipping.Method)
	if index < 0 || index >= len(steps) {
		return ErrorMap{}
	}
	return ValidateStep(steps[index], f)
}
