package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

const clearDatabaseQuery = "MATCH (n) DETACH DELETE n"

// mergeShipmentQuery upserts a shipment with its locations, customer and courier.
// delivery_date is only set once the shipment is delivered.
const mergeShipmentQuery = `
MERGE (s:Shipment {tracking_number: $tracking_number})
SET s.status = $status,
    s.dispatch_date = $dispatch_date,
    s.expected_delivery_date = $expected_delivery_date
FOREACH (_ IN CASE WHEN $status = "Delivered" THEN [1] ELSE [] END |
    SET s.delivery_date = $delivery_date
)
MERGE (d_loc:Location {name: $dispatch_location})
MERGE (del_loc:Location {name: $delivery_location})
MERGE (cust:Customer {name: $customer})
MERGE (courier:Courier {name: $courier})
MERGE (s)-[:DISPATCHED_FROM]->(d_loc)
MERGE (s)-[:DELIVERED_TO]->(del_loc)
MERGE (s)-[:ASSIGNED_TO]->(courier)
MERGE (s)-[:BELONGS_TO]->(cust)
`

// ClearDatabase deletes every node and relationship.
func (s *Neo4jService) ClearDatabase(ctx context.Context) error {
	err := s.write(ctx, func(tx neo4j.ManagedTransaction) error {
		result, err := tx.Run(ctx, clearDatabaseQuery, nil)
		if err != nil {
			return err
		}
		_, err = result.Consume(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	s.logger.Info("Cleared graph database")
	return nil
}

// LoadShipments merges the shipments into the graph in a single transaction
// and returns how many were written.
func (s *Neo4jService) LoadShipments(ctx context.Context, shipments []models.Shipment) (int, error) {
	err := s.write(ctx, func(tx neo4j.ManagedTransaction) error {
		for _, sh := range shipments {
			result, err := tx.Run(ctx, mergeShipmentQuery, sh.Params())
			if err != nil {
				return fmt.Errorf("shipment %s: %w", sh.TrackingNumber, err)
			}
			if _, err := result.Consume(ctx); err != nil {
				return fmt.Errorf("shipment %s: %w", sh.TrackingNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load shipments: %w", err)
	}

	s.logger.Info("Loaded shipments into graph", zap.Int("count", len(shipments)))
	return len(shipments), nil
}
