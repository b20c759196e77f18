package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Publisher publishes profile-detail change events to RabbitMQ.  Errors are
// logged and returned so the caller can choose to ignore them without
// failing a write that has already committed.
type Publisher struct {
    url         string
    dialTimeout time.Duration
    logger      *zap.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *zap.Logger) *Publisher {
    return &Publisher{url: url, dialTimeout: 3 * time.Second, logger: logger.Named("publisher")}
}

// PublishProfileDetailChanged publishes ev to ProfileDetailsQueue as a
// persistent JSON message.  A connection is dialled per call; change volume
// is a handful of messages per booking, not a stream.  The dial is bounded
// so an unreachable broker delays a write by seconds at most.
func (p *Publisher) PublishProfileDetailChanged(ctx context.Context, ev ProfileDetailChangedEvent) error {
    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
    if err != nil {
        p.logger.Warn("rabbitmq dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.logger.Warn("rabbitmq channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        ProfileDetailsQueue, // name
        true,                // durable
        false,               // autoDelete
        false,               // exclusive
        false,               // noWait
        nil,                 // args
    ); err != nil {
        p.logger.Warn("rabbitmq queue declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    ev.EventID,
        Type:         ev.EventType,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",                  // default exchange
        ProfileDetailsQueue, // routing key = queue name
        false,               // mandatory
        false,               // immediate
        pub,
    ); err != nil {
        p.logger.Warn("rabbitmq publish failed", zap.Error(err), zap.String("event_id", ev.EventID))
        return err
    }
    return nil
}
