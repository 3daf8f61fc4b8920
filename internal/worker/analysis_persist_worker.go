package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/apex/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"framecoach/internal/platform/rabbitmq"
	"framecoach/internal/repository"
)

// AnalysisPersistWorker drains the analysis queue into SQLite so the request
// path never blocks on the database write.
type AnalysisPersistWorker struct {
	conn      *amqp.Connection
	repo      *repository.AnalysisRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAnalysisPersistWorker(conn *amqp.Connection, repo *repository.AnalysisRepository, queueName string) *AnalysisPersistWorker {
	return &AnalysisPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

func (w *AnalysisPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.process(d)
			}
		}
	}()

	return nil
}

// process persists one delivery. A delivery that cannot be decoded or
// written is nacked without requeue so a poison message cannot wedge the
// queue; only persisted analyses are acked.
func (w *AnalysisPersistWorker) process(d amqp.Delivery) {
	var envelope rabbitmq.AnalysisEnvelope
	if err := json.Unmarshal(d.Body, &envelope); err != nil {
		log.WithError(err).Error("worker decode analysis failed")
		_ = d.Nack(false, false)
		return
	}

	analysis := envelope.Model()
	if err := w.repo.Upsert(&analysis); err != nil {
		log.WithField("content_hash", envelope.ContentHash).
			WithError(err).Error("worker persist analysis failed")
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *AnalysisPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
