package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingRepo "courtside/database/repository/booking"
	"courtside/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// eventsChannel is the Redis pub/sub channel carrying booking snapshots
// between processes.
const eventsChannel = "courtside.booking.events"

// subscriberBuffer bounds how far a slow subscriber may lag before
// transitions are dropped for it. Droppped snapshots are safe to lose: the
// next transition carries the full current state.
const subscriberBuffer = 16

type subscriber struct {
	id        uint64
	bookingID string
	ch        chan models.Booking
}

// Broker fans booking transitions out to status subscribers. With a Redis
// client attached, events travel through pub/sub so watchers on other
// processes see them too; without one, dispatch stays in-process.
type Broker struct {
	logger *zap.Logger
	rdb    *redis.Client

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*subscriber // bookingID -> subscribers
}

func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{
		logger: logger,
		subs:   make(map[string]map[uint64]*subscriber),
	}
}

// WithRedis switches the broker to pub/sub fan-out. Run must be started for
// local subscribers to receive anything after this.
func (br *Broker) WithRedis(client *redis.Client) *Broker {
	br.rdb = client
	return br
}

// Publish dispatches a transition. With Redis attached the snapshot only goes
// to the channel; Run delivers it back locally, which keeps one delivery path
// for single- and multi-process deployments alike.
func (br *Broker) Publish(b models.Booking) {
	if br.rdb == nil {
		br.dispatch(b)
		return
	}

	payload, err := json.Marshal(b)
	if err != nil {
		br.logger.Error("failed to marshal booking event", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := br.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		br.logger.Warn("failed to publish booking event, dispatching locally",
			zap.String("bookingId", b.ID),
			zap.Error(err))
		br.dispatch(b)
	}
}

// Run consumes the Redis channel and dispatches remote events to local
// subscribers until the context is cancelled. It is a no-op without Redis.
func (br *Broker) Run(ctx context.Context) error {
	if br.rdb == nil {
		return nil
	}

	sub := br.rdb.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("booking events subscription closed")
			}
			var b models.Booking
			if err := json.Unmarshal([]byte(msg.Payload), &b); err != nil {
				br.logger.Warn("dropping malformed booking event", zap.Error(err))
				continue
			}
			br.dispatch(b)
		}
	}
}

func (br *Broker) dispatch(b models.Booking) {
	br.mu.Lock()
	defer br.mu.Unlock()

	for _, s := range br.subs[b.ID] {
		select {
		case s.ch <- b:
		default:
			// Subscriber is not keeping up; the next event supersedes this one.
			br.logger.Debug("dropping booking event for slow subscriber",
				zap.String("bookingId", b.ID))
		}
	}
}

func (br *Broker) subscribe(bookingID string) *subscriber {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.nextID++
	s := &subscriber{
		id:        br.nextID,
		bookingID: bookingID,
		ch:        make(chan models.Booking, subscriberBuffer),
	}
	if br.subs[bookingID] == nil {
		br.subs[bookingID] = make(map[uint64]*subscriber)
	}
	br.subs[bookingID][s.id] = s
	return s
}

func (br *Broker) unsubscribe(s *subscriber) {
	br.mu.Lock()
	defer br.mu.Unlock()

	if m, ok := br.subs[s.bookingID]; ok {
		delete(m, s.id)
		if len(m) == 0 {
			delete(br.subs, s.bookingID)
		}
	}
}

// StatusWatcher lets clients observe a booking without hand-rolling a polling
// loop. It reads snapshots from the store and rides the broker for pushes; it
// never participates in the engine's compare-and-swap.
type StatusWatcher struct {
	store  bookingRepo.BookingStore
	broker *Broker
}

func NewStatusWatcher(store bookingRepo.BookingStore, broker *Broker) *StatusWatcher {
	return &StatusWatcher{store: store, broker: broker}
}

// Subscribe yields the booking's current state immediately, then every
// subsequent transition, until the context is cancelled. Terminal states do
// not close the stream; when to stop watching is the caller's decision.
func (w *StatusWatcher) Subscribe(ctx context.Context, bookingID string) (<-chan models.Booking, error) {
	// Register with the broker before the snapshot read so no transition in
	// between can be missed; stale duplicates are filtered by version below.
	sub := w.broker.subscribe(bookingID)

	snapshot, err := w.store.Get(ctx, bookingID)
	if err != nil {
		w.broker.unsubscribe(sub)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
		}
		return nil, fmt.Errorf("read booking %s: %w", bookingID, err)
	}

	out := make(chan models.Booking, subscriberBuffer)
	go func() {
		defer close(out)
		defer w.broker.unsubscribe(sub)

		lastVersion := snapshot.Version
		select {
		case out <- *snapshot:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case b := <-sub.ch:
				if b.Version <= lastVersion {
					continue
				}
				lastVersion = b.Version
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
