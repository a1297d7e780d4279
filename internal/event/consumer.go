package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelbridge/searchsync/internal/service"
	pkgkafka "github.com/modelbridge/searchsync/pkg/kafka"
)

// Kafka topic constants for catalog domain events consumed by this service.
const (
	TopicProductCreated = "catalog.product.created"
	TopicProductUpdated = "catalog.product.updated"
	TopicProductDeleted = "catalog.product.deleted"
)

// ProductEventData represents the payload from product domain events.
type ProductEventData struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	BrandID     *string `json:"brand_id,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
	Status      string  `json:"status"`
	BasePrice   int64   `json:"base_price"`
	Currency    string  `json:"currency"`
}

// ProductDeletedData represents the payload from a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// Consumer handles Kafka events that mutate the search index.
type Consumer struct {
	syncService *service.SyncService
	logger      *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(syncService *service.SyncService, logger *slog.Logger) *Consumer {
	return &Consumer{
		syncService: syncService,
		logger:      logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductUpserted(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductUpserted indexes a created or updated product.
func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	input := &service.IndexProductInput{
		ID:          data.ID,
		Name:        data.Name,
		Slug:        data.Slug,
		Description: data.Description,
		BasePrice:   data.BasePrice,
		Currency:    data.Currency,
		Status:      data.Status,
	}

	if data.CategoryID != nil {
		input.CategoryID = *data.CategoryID
	}
	if data.BrandID != nil {
		input.BrandID = *data.BrandID
	}

	if err := c.syncService.IndexProduct(ctx, input); err != nil {
		return fmt.Errorf("index product from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "indexed product from event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", data.ID),
	)

	return nil
}

// handleProductDeleted removes a deleted product from the index.
func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}

	if err := c.syncService.DeleteProduct(ctx, data.ID); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "deleted product from event",
		slog.String("product_id", data.ID),
	)

	return nil
}
