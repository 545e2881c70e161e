package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"emergency-triage/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	defaultRefreshInterval = 30 * time.Second
	publishTimeout         = time.Second
	loadTimeout            = 5 * time.Second
)

// Change kinds carried on the fanout channel
const (
	ChangePatientRegistered = "patient.registered"
	ChangePatientDischarged = "patient.discharged"
	ChangeRoomCreated       = "room.created"
	ChangeRoomAssigned      = "room.assigned"
	ChangeRoomReleased      = "room.released"
)

// ChangeEvent announces a committed mutation. Receivers never apply it
// directly; it only tells them to reload the board.
type ChangeEvent struct {
	Kind     string    `json:"kind"`
	EntityID string    `json:"entity_id"`
	Origin   string    `json:"origin"`
	At       time.Time `json:"at"`
}

// BoardLoader reads the full waiting set and room set from the store
type BoardLoader func(ctx context.Context) (*entity.BoardSnapshot, error)

// Publisher is the write side of the hub used by the usecases
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent)
}

// Subscription receives board snapshots. Only the newest undelivered
// snapshot is kept, so a slow reader skips revisions instead of blocking.
type Subscription struct {
	id uint64
	ch chan *entity.BoardSnapshot
}

// Updates is closed when the subscription is cancelled or the hub stops
func (s *Subscription) Updates() <-chan *entity.BoardSnapshot {
	return s.ch
}

// SyncHub fans committed changes out to every connected station.
//
// Every instance publishes change events on a redis channel and listens on
// it; any event, local or remote, marks the board dirty. A single refresh
// loop coalesces dirty marks, reloads the board and hands it to the
// subscribers. The periodic refresh repairs anything a lost message missed.
type SyncHub struct {
	redisClient *redis.Client
	channel     string
	interval    time.Duration
	log         *logrus.Logger
	origin      string

	loader BoardLoader
	dirty  chan struct{}

	mu       sync.RWMutex
	subs     map[uint64]*Subscription
	nextID   uint64
	latest   *entity.BoardSnapshot
	revision int64

	pubsub   *redis.PubSub
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopped  atomic.Bool
}

// NewSyncHub creates a hub. With a nil redisClient the hub runs local-only.
func NewSyncHub(redisClient *redis.Client, channel string, interval time.Duration, log *logrus.Logger) *SyncHub {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &SyncHub{
		redisClient: redisClient,
		channel:     channel,
		interval:    interval,
		log:         log,
		origin:      uuid.NewString(),
		dirty:       make(chan struct{}, 1),
		subs:        make(map[uint64]*Subscription),
		stopChan:    make(chan struct{}),
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start subscribes to the fanout channel and launches the refresh loop.
// The first board load happens immediately.
func (h *SyncHub) Start(ctx context.Context, loader BoardLoader) error {
	if !h.started.CompareAndSwap(false, true) {
		return nil
	}
	h.loader = loader

	runCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	if h.redisClient != nil {
		pubsub := h.redisClient.Subscribe(ctx, h.channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			h.log.Warnf("Fanout subscribe failed, running local-only: %+v", err)
			_ = pubsub.Close()
		} else {
			h.pubsub = pubsub
			h.wg.Add(1)
			go h.listen(pubsub.Channel())
		}
	}

	h.markDirty()
	h.wg.Add(1)
	go h.refreshLoop(runCtx)

	h.log.Infof("SyncHub started (channel=%s, refresh=%v, redis=%t)", h.channel, h.interval, h.pubsub != nil)
	return nil
}

// Stop shuts the hub down and closes every subscription.
// Safe to call multiple times.
func (h *SyncHub) Stop() {
	if !h.stopped.CompareAndSwap(false, true) {
		return
	}
	close(h.stopChan)
	if h.cancel != nil {
		h.cancel()
	}
	if h.pubsub != nil {
		_ = h.pubsub.Close()
	}
	h.wg.Wait()

	h.mu.Lock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
	h.mu.Unlock()

	h.log.Info("SyncHub stopped")
}

// =============================================================================
// Publish / Subscribe
// =============================================================================

// Publish announces a committed change. It never blocks the writer on a
// slow subscriber and never fails it: a redis error degrades to a local
// refresh, the periodic refresh covers the other instances.
func (h *SyncHub) Publish(ctx context.Context, event ChangeEvent) {
	event.Origin = h.origin
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	h.markDirty()

	if h.redisClient == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Warnf("Failed to encode change event: %+v", err)
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := h.redisClient.Publish(pctx, h.channel, payload).Err(); err != nil {
		h.log.Warnf("Failed to publish %s for %s: %+v", event.Kind, event.EntityID, err)
	}
}

// Subscribe registers a station. The current board, when known, is
// delivered right away. The returned cancel func is idempotent.
func (h *SyncHub) Subscribe() (*Subscription, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{id: h.nextID, ch: make(chan *entity.BoardSnapshot, 1)}

	if h.stopped.Load() {
		close(sub.ch)
		return sub, func() {}
	}

	h.subs[sub.id] = sub
	if h.latest != nil {
		sub.ch <- h.latest
	}

	var once sync.Once
	return sub, func() {
		once.Do(func() { h.unsubscribe(sub.id) })
	}
}

// Latest returns the most recent board, or nil before the first load
func (h *SyncHub) Latest() *entity.BoardSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Refresh forces a reload on the next loop iteration
func (h *SyncHub) Refresh() {
	h.markDirty()
}

func (h *SyncHub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// =============================================================================
// Background loops
// =============================================================================

func (h *SyncHub) markDirty() {
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

func (h *SyncHub) listen(messages <-chan *redis.Message) {
	defer h.wg.Done()

	for {
		select {
		case <-h.stopChan:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.log.Debugf("Ignoring malformed change event: %+v", err)
				continue
			}
			if event.Origin == h.origin {
				continue
			}
			h.markDirty()
		}
	}
}

func (h *SyncHub) refreshLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case <-h.dirty:
			h.refresh(ctx)
		case <-ticker.C:
			h.refresh(ctx)
		}
	}
}

func (h *SyncHub) refresh(ctx context.Context) {
	lctx, cancel := context.WithTimeout(ctx, loadTimeout)
	snapshot, err := h.loader(lctx)
	cancel()
	if err != nil {
		h.log.Warnf("Failed to load board: %+v", err)
		return
	}

	h.mu.Lock()
	h.revision++
	snapshot.Revision = h.revision
	h.latest = snapshot
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		deliver(sub.ch, snapshot)
	}
}

// deliver replaces a stale undelivered snapshot with the new one. Only the
// refresh loop sends, so the second send cannot lose a race.
func deliver(ch chan *entity.BoardSnapshot, snapshot *entity.BoardSnapshot) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}
