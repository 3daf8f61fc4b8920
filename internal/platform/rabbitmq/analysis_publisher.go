package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"framecoach/internal/model"
)

// AnalysisEnvelope is the queue wire format for a completed analysis. The
// model's JSON tags hide ownership and storage fields from API responses, so
// the queue carries them explicitly.
type AnalysisEnvelope struct {
	RequesterKey   string    `json:"requester_key"`
	Filename       string    `json:"filename"`
	ContentHash    string    `json:"content_hash"`
	PerceptualHash string    `json:"perceptual_hash"`
	Critique       string    `json:"critique"`
	ExifJSON       string    `json:"exif_json"`
	ImagePath      string    `json:"image_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewAnalysisEnvelope copies a model record into the wire format.
func NewAnalysisEnvelope(a model.Analysis) AnalysisEnvelope {
	return AnalysisEnvelope{
		RequesterKey:   a.RequesterKey,
		Filename:       a.Filename,
		ContentHash:    a.ContentHash,
		PerceptualHash: a.PerceptualHash,
		Critique:       a.Critique,
		ExifJSON:       a.ExifJSON,
		ImagePath:      a.ImagePath,
		CreatedAt:      a.CreatedAt,
	}
}

// Model rebuilds the persistable record.
func (e AnalysisEnvelope) Model() model.Analysis {
	return model.Analysis{
		RequesterKey:   e.RequesterKey,
		Filename:       e.Filename,
		ContentHash:    e.ContentHash,
		PerceptualHash: e.PerceptualHash,
		Critique:       e.Critique,
		ExifJSON:       e.ExifJSON,
		ImagePath:      e.ImagePath,
		CreatedAt:      e.CreatedAt,
	}
}

// AnalysisPublisher enqueues completed analyses for the persist worker.
type AnalysisPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewAnalysisPublisher(conn *amqp.Connection, queueName string) *AnalysisPublisher {
	return &AnalysisPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *AnalysisPublisher) Publish(ctx context.Context, analysis model.Analysis) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(NewAnalysisEnvelope(analysis))
	if err != nil {
		return fmt.Errorf("marshal analysis payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish analysis failed: %w", err)
	}
	return nil
}
