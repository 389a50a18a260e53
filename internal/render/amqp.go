package render

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/HenryOlvera28/landing/internal/domain"
	"github.com/HenryOlvera28/landing/internal/tally"
)

// Publisher is the subset of *amqp.Channel used to publish tallies.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type TallyMessage struct {
	Tally      []domain.TallyEntry `json:"tally"`
	Total      int                 `json:"total"`
	RenderedAt time.Time           `json:"renderedAt"`
}

// AMQPPublisher sends every rendered tally to a queue on the default exchange.
type AMQPPublisher struct {
	ch    Publisher
	queue string
	now   func() time.Time

	channelMutex sync.Mutex
}

func NewAMQPPublisher(ch Publisher, queue string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, queue: queue, now: time.Now}
}

func (p *AMQPPublisher) Render(ctx context.Context, entries []domain.TallyEntry) error {
	body, err := json.Marshal(TallyMessage{
		Tally:      append([]domain.TallyEntry{}, entries...),
		Total:      tally.Total(entries),
		RenderedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode tally: %w", err)
	}

	p.channelMutex.Lock()
	defer p.channelMutex.Unlock()

	err = p.ch.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish tally to %s: %w", p.queue, err)
	}
	return nil
}
