package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"protofuzz/pkg/mq"
)

const SummaryQueueName = "analysis_summary_queue"

// MQPublisher sends a types.SummaryMessage per analysis to the summary queue.
type MQPublisher struct {
	rabbitMQ mq.RabbitMQ
}

func NewMQPublisher(rabbitMQ mq.RabbitMQ) *MQPublisher {
	return &MQPublisher{rabbitMQ: rabbitMQ}
}

func (m *MQPublisher) Name() string { return "rabbitmq" }

func (m *MQPublisher) Publish(ctx context.Context, summary Summary) error {
	body, err := json.Marshal(summary.Message())
	if err != nil {
		return fmt.Errorf("failed to marshal summary message: %w", err)
	}
	return m.rabbitMQ.Publish(ctx, SummaryQueueName, body)
}
