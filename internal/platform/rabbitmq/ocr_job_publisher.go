package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"legaldesk/internal/ocr"
)

// OCRJobPublisher enqueues OCR jobs; it satisfies ocr.Dispatcher.
type OCRJobPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewOCRJobPublisher(conn *amqp.Connection, queueName string) *OCRJobPublisher {
	return &OCRJobPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *OCRJobPublisher) Dispatch(ctx context.Context, job ocr.Job) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := EncodeJob(job)
	if err != nil {
		return err
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
			MessageId:    job.PhotoID,
		},
	); err != nil {
		return fmt.Errorf("publish ocr job failed: %w", err)
	}
	return nil
}

// EncodeJob renders the queue payload; file bytes are never included.
func EncodeJob(job ocr.Job) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal ocr job failed: %w", err)
	}
	return payload, nil
}

// DecodeJob parses a queue payload and checks the identifying fields.
func DecodeJob(body []byte) (ocr.Job, error) {
	var job ocr.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("unmarshal ocr job failed: %w", err)
	}
	if job.PhotoID == "" || job.CaseID == "" || job.StoredName == "" {
		return job, fmt.Errorf("ocr job is missing photo, case or file name")
	}
	return job, nil
}
