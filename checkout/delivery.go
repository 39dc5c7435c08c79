package checkout

import "time"

// DefaultDeliveryDate is the day after now, moved to Monday when it falls on a Sunday.
func DefaultDeliveryDate(now time.Time) string {
	d := now.AddDate(0, 0, 1)
	if d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(deliveryDateFormat)
}

// DeliveryDate is the date sent with the order: the chosen date for scheduled
// deliveries, the default date otherwise.
func DeliveryDate(f FormData, now time.Time) string {
	if f.Shipping.Method == MethodScheduled && f.Shipping.Date != "" {
		return f.Shipping.Date
	}
	return DefaultDeliveryDate(now)
}
