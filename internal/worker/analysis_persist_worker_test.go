package worker

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"framecoach/internal/model"
	"framecoach/internal/platform/rabbitmq"
	"framecoach/internal/repository"
)

type fakeAcknowledger struct {
	acked    []uint64
	nacked   []uint64
	requeues []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeues = append(f.requeues, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func workerTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "worker.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	if migrate {
		require.NoError(t, db.AutoMigrate(&model.Analysis{}))
	}
	return db
}

func delivery(ack *fakeAcknowledger, tag uint64, body []byte) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func TestProcessAcksPersistedAnalysis(t *testing.T) {
	db := workerTestDB(t, true)
	repo := repository.NewAnalysisRepository(db)
	w := NewAnalysisPersistWorker(nil, repo, "q")

	envelope := rabbitmq.AnalysisEnvelope{
		RequesterKey: "user:1",
		Filename:     "sunset.jpg",
		ContentHash:  "hash-1",
		Critique:     "critique text",
		CreatedAt:    time.Now(),
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	ack := &fakeAcknowledger{}
	w.process(delivery(ack, 7, body))

	assert.Equal(t, []uint64{7}, ack.acked)
	assert.Empty(t, ack.nacked)

	stored, err := repo.GetByHash("hash-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "critique text", stored.Critique)
	assert.Equal(t, "user:1", stored.RequesterKey)
}

func TestProcessNacksUndecodableBody(t *testing.T) {
	repo := repository.NewAnalysisRepository(workerTestDB(t, true))
	w := NewAnalysisPersistWorker(nil, repo, "q")

	ack := &fakeAcknowledger{}
	w.process(delivery(ack, 3, []byte("{not json")))

	assert.Empty(t, ack.acked)
	assert.Equal(t, []uint64{3}, ack.nacked)
	// Poison messages must not be requeued.
	assert.Equal(t, []bool{false}, ack.requeues)
}

func TestProcessNacksOnPersistFailure(t *testing.T) {
	// No migration: the analyses table is missing, so Upsert fails.
	repo := repository.NewAnalysisRepository(workerTestDB(t, false))
	w := NewAnalysisPersistWorker(nil, repo, "q")

	body, err := json.Marshal(rabbitmq.AnalysisEnvelope{ContentHash: "hash-2", Critique: "c"})
	require.NoError(t, err)

	ack := &fakeAcknowledger{}
	w.process(delivery(ack, 5, body))

	assert.Empty(t, ack.acked)
	assert.Equal(t, []uint64{5}, ack.nacked)
	assert.Equal(t, []bool{false}, ack.requeues)
}
