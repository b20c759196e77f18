package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// AuditConsumer listens to ProfileDetailsQueue and appends one line per
// change event to an audit log file.
type AuditConsumer struct {
    url    string
    path   string
    logger *zap.Logger
    mu     sync.Mutex
}

// NewAuditConsumer returns a consumer that writes to the file at path.
func NewAuditConsumer(url, path string, logger *zap.Logger) *AuditConsumer {
    return &AuditConsumer{url: url, path: path, logger: logger.Named("audit-consumer")}
}

// Run connects to the broker, declares the queue (durable) and consumes
// until ctx is cancelled.  Connection failures are retried with exponential
// backoff capped at 30s; a malformed message is rejected without requeue so
// it cannot wedge the queue.
func (c *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.logger.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.logger.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.logger.Warn("set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(ProfileDetailsQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(ProfileDetailsQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.appendToFile(d.Body); err != nil {
                c.logger.Error("handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *AuditConsumer) appendToFile(body []byte) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
        return fmt.Errorf("mkdir audit dir: %w", err)
    }
    f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open audit log: %w", err)
    }
    defer f.Close()
    return HandleMessage(body, f)
}

// HandleMessage decodes a change event and writes its audit line to w.
func HandleMessage(body []byte, w io.Writer) error {
    var ev ProfileDetailChangedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.OffenderNo == "" || ev.ProfileType == "" {
        return errors.New("event missing offender_no or profile_type")
    }
    action := "changed"
    switch ev.EventType {
    case EventProfileDetailCreated:
        action = "created"
    case EventProfileDetailUpdated:
        action = "updated"
    }
    line := fmt.Sprintf("[%s] Profile detail %s | offender_no=%s | booking_id=%d | profile_type=%s | changed_by=%s | event_id=%s\n",
        ev.OccurredAt, action, ev.OffenderNo, ev.BookingID, ev.ProfileType, ev.ChangedBy, ev.EventID)
    if _, err := io.WriteString(w, line); err != nil {
        return fmt.Errorf("write audit line: %w", err)
    }
    return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
