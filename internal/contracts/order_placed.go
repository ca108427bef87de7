package contracts

import (
	"time"

	"github.com/cwesi-djin/storefront-go/internal/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderPlacedEventName    = "OrderPlaced"
	OrderPlacedEventVersion = 1
	OrderPlacedSchema       = "storefront/order/OrderPlaced.v1"
	StorefrontProducer      = "storefront"
)

type EventEnvelope struct {
	EventName     string             `json:"eventName"`
	EventVersion  int                `json:"eventVersion"`
	EventID       string             `json:"eventId"`
	CorrelationID string             `json:"correlationId,omitempty"`
	CausationID   string             `json:"causationId,omitempty"`
	Producer      string             `json:"producer"`
	PartitionKey  string             `json:"partitionKey"`
	Sequence      int64              `json:"sequence"`
	OccurredAt    time.Time          `json:"occurredAt"`
	Schema        string             `json:"schema"`
	Payload       OrderPlacedPayload `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    string            `json:"orderId"`
	UserID     string            `json:"userId"`
	Status     string            `json:"status"`
	Items      []OrderPlacedItem `json:"items"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
	PlacedAt   time.Time         `json:"placedAt"`
}

type OrderPlacedItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type EnvelopeOptions struct {
	PartitionKey  string
	Sequence      int64
	Producer      string
	CorrelationID string
	CausationID   string
	EventID       string
	OccurredAt    time.Time
}

func BuildOrderPlacedEvent(o *order.Order, opts EnvelopeOptions) EventEnvelope {
	eventID := opts.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	occurredAt := opts.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	producer := opts.Producer
	if producer == "" {
		producer = StorefrontProducer
	}

	partitionKey := opts.PartitionKey
	if partitionKey == "" {
		partitionKey = o.ID
	}

	payload := OrderPlacedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     string(o.Status),
		Items:      make([]OrderPlacedItem, 0, len(o.Items)),
		TotalPrice: order.SumItems(o.Items),
		PlacedAt:   o.CreatedAt,
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, OrderPlacedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	return EventEnvelope{
		EventName:     OrderPlacedEventName,
		EventVersion:  OrderPlacedEventVersion,
		EventID:       eventID,
		CorrelationID: opts.CorrelationID,
		CausationID:   opts.CausationID,
		Producer:      producer,
		PartitionKey:  partitionKey,
		Sequence:      opts.Sequence,
		OccurredAt:    occurredAt,
		Schema:        OrderPlacedSchema,
		Payload:       payload,
	}
}
