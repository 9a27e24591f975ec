package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/sirupsen/logrus"
)

const defaultStatisticsTopic = "villagestats-statistics-updated"

// StatisticsUpdated is published after a bulk upsert commits.
type StatisticsUpdated struct {
	TenantId      string    `json:"tenantId"`
	Table         string    `json:"table"`
	Years         []int     `json:"years"`
	VillageIds    []string  `json:"villageIds"`
	Records       int       `json:"records"`
	CorrelationId string    `json:"correlationId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// PublishFunc delivers one message and returns its server id.
type PublishFunc func(ctx context.Context, topic string, obj interface{}, attrs map[string]string) (string, error)

var (
	publisherMu sync.RWMutex
	publisher   PublishFunc = config.PublishJSON
	inFlight    sync.WaitGroup

	maxPublishAttempts uint64 = 3
	publishTimeout            = 30 * time.Second
)

// SetPublisher swaps the delivery function and returns a func restoring the previous one.
func SetPublisher(p PublishFunc) func() {
	publisherMu.Lock()
	prev := publisher
	publisher = p
	publisherMu.Unlock()
	return func() {
		publisherMu.Lock()
		publisher = prev
		publisherMu.Unlock()
	}
}

func currentPublisher() PublishFunc {
	publisherMu.RLock()
	defer publisherMu.RUnlock()
	return publisher
}

func statisticsTopic() string {
	if t := config.StatisticsEventsTopic(); t != "" {
		return t
	}
	return defaultStatisticsTopic
}

// NotifyStatisticsUpdated publishes evt in the background when
// ENABLE_STATISTICS_EVENTS is on. Delivery failures are logged only; the
// write that triggered the event has already succeeded.
func NotifyStatisticsUpdated(ctx context.Context, evt StatisticsUpdated) {
	if !config.StatisticsEventsEnabled() {
		return
	}
	if evt.CorrelationId == "" {
		evt.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	publish := currentPublisher()
	topic := statisticsTopic()

	inFlight.Add(1)
	go func() {
		defer inFlight.Done()
		deliver(publish, topic, evt)
	}()
}

func deliver(publish PublishFunc, topic string, evt StatisticsUpdated) {
	logger := config.GetLogger()
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	attrs := map[string]string{
		"tenantId": evt.TenantId,
		"table":    evt.Table,
	}
	if evt.CorrelationId != "" {
		attrs["correlationId"] = evt.CorrelationId
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	var msgId string
	err := backoff.Retry(
		func() error {
			id, err := publish(ctx, topic, evt, attrs)
			if err != nil {
				return err
			}
			msgId = id
			return nil
		},
		backoff.WithContext(backoff.WithMaxRetries(policy, maxPublishAttempts-1), ctx),
	)
	if err != nil {
		config.LogError(logger, "StatisticsEvents", "deliver", "publish statistics event", evt, err)
		return
	}
	logger.WithFields(logrus.Fields{
		"tenantId":  evt.TenantId,
		"table":     evt.Table,
		"messageId": msgId,
	}).Debug("statistics event published")
}

// WaitForEvents blocks until in-flight deliveries finish or ctx is done.
func WaitForEvents(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
