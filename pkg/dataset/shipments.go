package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// shipmentRecord tolerates numeric ids and dates in the seed file.
type shipmentRecord struct {
	TrackingNumber       jsonutil.FlexibleString `json:"tracking_number"`
	Status               jsonutil.FlexibleString `json:"status"`
	DispatchDate         jsonutil.FlexibleString `json:"dispatch_date"`
	ExpectedDeliveryDate jsonutil.FlexibleString `json:"expected_delivery_date"`
	DeliveryDate         jsonutil.FlexibleString `json:"delivery_date"`
	DispatchLocation     jsonutil.FlexibleString `json:"dispatch_location"`
	DeliveryLocation     jsonutil.FlexibleString `json:"delivery_location"`
	Customer             jsonutil.FlexibleString `json:"customer"`
	Courier              jsonutil.FlexibleString `json:"courier"`
}

func (r shipmentRecord) shipment() models.Shipment {
	return models.Shipment{
		TrackingNumber:       string(r.TrackingNumber),
		Status:               string(r.Status),
		DispatchDate:         string(r.DispatchDate),
		ExpectedDeliveryDate: string(r.ExpectedDeliveryDate),
		DeliveryDate:         string(r.DeliveryDate),
		DispatchLocation:     string(r.DispatchLocation),
		DeliveryLocation:     string(r.DeliveryLocation),
		Customer:             string(r.Customer),
		Courier:              string(r.Courier),
	}
}

// LoadShipments reads the shipments seed file, a JSON array of shipments.
func LoadShipments(path string) ([]models.Shipment, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- seed path comes from config or CLI flag
	if err != nil {
		return nil, fmt.Errorf("failed to read shipments %s: %w", path, err)
	}
	var records []shipmentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse shipments %s: %w", path, err)
	}

	shipments := make([]models.Shipment, 0, len(records))
	for i, r := range records {
		if r.TrackingNumber == "" {
			return nil, fmt.Errorf("shipment %d has no tracking_number", i+1)
		}
		shipments = append(shipments, r.shipment())
	}
	return shipments, nil
}
