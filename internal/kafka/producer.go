package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/config"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
)

// Producer streams reservation lifecycle events. Consumers (dashboards,
// CRM sync) live in other services; nothing in this process reads them back.
type Producer struct {
	Writer *kafka.Writer
	Topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

type reservationEvent struct {
	Type        string             `json:"type"`
	OldStatus   string             `json:"old_status,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Reservation models.Reservation `json:"reservation"`
}

func (p *Producer) publish(topic, key string, event reservationEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) PublishReservationCreated(r models.Reservation) error {
	return p.publish(p.Topics.ReservationCreated, r.ID, reservationEvent{
		Type:        "reservation.created",
		OccurredAt:  time.Now(),
		Reservation: r,
	})
}

func (p *Producer) PublishReservationUpdated(r models.Reservation) error {
	return p.publish(p.Topics.ReservationUpdated, r.ID, reservationEvent{
		Type:        "reservation.updated",
		OccurredAt:  time.Now(),
		Reservation: r,
	})
}

func (p *Producer) PublishStatusChanged(r models.Reservation, oldStatus string) error {
	return p.publish(p.Topics.ReservationStatusChanged, r.ID, reservationEvent{
		Type:        "reservation.status_changed",
		OldStatus:   oldStatus,
		OccurredAt:  time.Now(),
		Reservation: r,
	})
}
