package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"events_api/internal/observability"
	"events_api/internal/queue"
	"events_api/internal/task"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AMQPDispatcher publishes jobs to a durable RabbitMQ queue consumed by
// StartWorker, usually in a separate worker process.
type AMQPDispatcher struct {
	conn      *amqp.Connection
	queueName string
	metrics   *observability.Metrics
}

func NewAMQPDispatcher(conn *amqp.Connection, queueName string, metrics *observability.Metrics) (*AMQPDispatcher, error) {
	ch, err := queue.CreateChannel(conn)
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if _, err := queue.DeclareQueue(ch, queueName); err != nil {
		return nil, err
	}

	return &AMQPDispatcher{conn: conn, queueName: queueName, metrics: metrics}, nil
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, job task.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ch, err := queue.CreateChannel(d.conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		"",          // exchange
		d.queueName, // routing key (queue name)
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.TaskID,
			Type:         job.Kind,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish task %s: %w", job.TaskID, err)
	}

	if d.metrics != nil {
		d.metrics.QueueMessagesPublished.WithLabelValues(d.queueName).Inc()
	}
	return nil
}

// StartWorker consumes jobs from queueName and runs them on executor until
// the connection closes. A delivery is acked once its outcome is recorded in
// the registry. Registry failures requeue the message and malformed messages
// are dropped.
func StartWorker(conn *amqp.Connection, executor *Executor, queueName string, metrics *observability.Metrics, id int) error {
	ch, err := queue.CreateChannel(conn)
	if err != nil {
		return fmt.Errorf("worker %d: %w", id, err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("worker %d failed to set QoS: %w", id, err)
	}

	msgs, err := ch.Consume(
		queueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("worker %d failed to start consuming messages: %w", id, err)
	}

	logrus.Infof("Worker %d started", id)

	for msg := range msgs {
		if metrics != nil {
			metrics.QueueMessagesConsumed.WithLabelValues(queueName).Inc()
		}

		job, err := decodeJob(msg.Body)
		if err != nil {
			logrus.WithError(err).Errorf("Worker %d received invalid payload", id)
			_ = msg.Nack(false, false)
			continue
		}

		if err := executor.Execute(context.Background(), job, id); err != nil {
			logrus.WithError(err).WithField("task_id", job.TaskID).Errorf("Worker %d requeueing job", id)
			if err := msg.Nack(false, true); err != nil {
				logrus.WithError(err).WithField("task_id", job.TaskID).Error("Failed to nack message")
			}
			continue
		}

		if err := msg.Ack(false); err != nil {
			logrus.WithError(err).WithField("task_id", job.TaskID).Error("Failed to ack message")
		}
	}

	logrus.Infof("Worker %d stopped", id)
	return nil
}

func decodeJob(body []byte) (task.Job, error) {
	var job task.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return task.Job{}, err
	}
	if job.TaskID == "" || job.Kind == "" {
		return task.Job{}, fmt.Errorf("job is missing task_id or kind")
	}
	return job, nil
}
