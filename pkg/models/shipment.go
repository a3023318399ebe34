package models

// Shipment is one entry of the logistics seed data loaded into the graph.
type Shipment struct {
	TrackingNumber       string `json:"tracking_number"`
	Status               string `json:"status"`
	DispatchDate         string `json:"dispatch_date"`
	ExpectedDeliveryDate string `json:"expected_delivery_date"`
	DeliveryDate         string `json:"delivery_date,omitempty"`
	DispatchLocation     string `json:"dispatch_location"`
	DeliveryLocation     string `json:"delivery_location"`
	Customer             string `json:"customer"`
	Courier              string `json:"courier"`
}

// Params returns the query parameters used to merge the shipment into the graph.
func (s Shipment) Params() map[string]any {
	return map[string]any{
		"tracking_number":        s.TrackingNumber,
		"status":                 s.Status,
		"dispatch_date":          s.DispatchDate,
		"expected_delivery_date": s.ExpectedDeliveryDate,
		"delivery_date":          s.DeliveryDate,
		"dispatch_location":      s.DispatchLocation,
		"delivery_location":      s.DeliveryLocation,
		"customer":               s.Customer,
		"courier":                s.Courier,
	}
}
