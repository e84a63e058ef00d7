package worker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"legaldesk/internal/ocr"
	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/platform/rabbitmq"
)

// JobRunner processes one OCR job to completion.
type JobRunner interface {
	Run(ctx context.Context, job ocr.Job)
}

// OCRWorker consumes the OCR job queue and runs each job in turn.
type OCRWorker struct {
	conn      *amqp.Connection
	runner    JobRunner
	queueName string
	prefetch  int
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOCRWorker(conn *amqp.Connection, runner JobRunner, queueName string) *OCRWorker {
	return &OCRWorker{
		conn:      conn,
		runner:    runner,
		queueName: queueName,
		prefetch:  1,
		logger:    logger.Named("ocr_worker"),
	}
}

func (w *OCRWorker) Start(ctx context.Context) error {
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

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
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
				w.handle(workerCtx, d)
			}
		}
	}()

	w.logger.Info("ocr worker started", zap.String("queue", w.queueName))
	return nil
}

// handle acks every decodable job once the runner has recorded its outcome;
// undecodable payloads are dropped without requeue.
func (w *OCRWorker) handle(ctx context.Context, d amqp.Delivery) {
	job, err := rabbitmq.DecodeJob(d.Body)
	if err != nil {
		w.logger.Error("worker decode job failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	w.runner.Run(context.WithoutCancel(ctx), job)
	_ = d.Ack(false)
}

func (w *OCRWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
