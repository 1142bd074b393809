package app

import (
	"context"
	"sync"
	"time"

	"github.com/amaan-q00/beta-chatx/internal/chat/domain"
	"github.com/amaan-q00/beta-chatx/internal/chat/repository"
	"github.com/amaan-q00/beta-chatx/pkg/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Subscriber is one connected room member as the registry sees it: an
// identity plus an outbound event sink.
type Subscriber interface {
	ID() string
	Send(resp domain.WSResponse) error
}

// RoomUseCase owns room membership and the per-room message log.
// Rooms are created lazily on first join or append and evicted, log
// and all, once membership stays at zero for the grace period.
type RoomUseCase struct {
	store repository.RoomStore
	media repository.MediaStore
	views *ViewUseCase
	clock clockwork.Clock
	grace time.Duration

	mu        sync.Mutex
	members   map[string]map[string]Subscriber
	evictions map[string]clockwork.Timer
	// gens invalidates eviction callbacks that already fired but have
	// not yet taken the lock. Stop is a no-op on a fired timer, so the
	// callback itself must be able to tell it is stale.
	gens map[string]uint64
}

// NewRoomUseCase init room use case
func NewRoomUseCase(
	store repository.RoomStore,
	media repository.MediaStore,
	views *ViewUseCase,
	clock clockwork.Clock,
	grace time.Duration,
) *RoomUseCase {
	return &RoomUseCase{
		store:     store,
		media:     media,
		views:     views,
		clock:     clock,
		grace:     grace,
		members:   make(map[string]map[string]Subscriber),
		evictions: make(map[string]clockwork.Timer),
		gens:      make(map[string]uint64),
	}
}

// Join registers sub as a member of roomID and returns the room's
// current log for replay to the joining connection only. A pending
// eviction of the room is cancelled.
func (uc *RoomUseCase) Join(roomID string, sub Subscriber, viewerID string) []domain.Message {
	uc.mu.Lock()
	uc.gens[roomID]++
	if t, ok := uc.evictions[roomID]; ok {
		t.Stop()
		delete(uc.evictions, roomID)
	}
	room, ok := uc.members[roomID]
	if !ok {
		room = make(map[string]Subscriber)
		uc.members[roomID] = room
	}
	room[sub.ID()] = sub
	uc.mu.Unlock()

	return uc.History(roomID, viewerID)
}

// History returns roomID's log as disclosable to viewerID: viewedBy
// sets attached from the view authority, one-time content already
// consumed by viewerID masked as expired.
func (uc *RoomUseCase) History(roomID, viewerID string) []domain.Message {
	msgs := uc.store.History(roomID)
	for i := range msgs {
		if msgs[i].OneTime && msgs[i].Type == domain.MessageMedia {
			msgs[i].ViewedBy = uc.views.Viewers(msgs[i].ID)
			msgs[i] = msgs[i].MaskFor(viewerID)
		}
	}
	return msgs
}

// Append finalizes msg (server-assigned id and timestamp) and stores
// it at the end of roomID's log. The store serializes concurrent
// appends, so every observer sees the same total order.
func (uc *RoomUseCase) Append(roomID string, msg domain.Message) domain.Message {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.Timestamp = uc.clock.Now().UnixMilli()
	msg.RoomID = roomID
	uc.store.Append(roomID, msg)
	return msg
}

// FindMessage locates a stored message by id.
func (uc *RoomUseCase) FindMessage(messageID string) (domain.Message, bool) {
	return uc.store.Find(messageID)
}

// Leave deregisters subID from roomID. When the last member leaves,
// log eviction is scheduled after the grace period; a join during the
// grace window cancels it.
func (uc *RoomUseCase) Leave(roomID, subID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	room, ok := uc.members[roomID]
	if !ok {
		return
	}
	delete(room, subID)
	if len(room) > 0 {
		return
	}
	delete(uc.members, roomID)

	if t, ok := uc.evictions[roomID]; ok {
		t.Stop()
	}
	uc.gens[roomID]++
	gen := uc.gens[roomID]
	uc.evictions[roomID] = uc.clock.AfterFunc(uc.grace, func() {
		uc.evict(roomID, gen)
	})
}

// Members returns a snapshot of roomID's connected members.
func (uc *RoomUseCase) Members(roomID string) []Subscriber {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	room := uc.members[roomID]
	out := make([]Subscriber, 0, len(room))
	for _, sub := range room {
		out = append(out, sub)
	}
	return out
}

func (uc *RoomUseCase) evict(roomID string, gen uint64) {
	uc.mu.Lock()
	if uc.gens[roomID] != gen {
		// a join or a newer leave superseded this grace window
		uc.mu.Unlock()
		return
	}
	if len(uc.members[roomID]) > 0 {
		// someone re-joined between the timer firing and now
		uc.mu.Unlock()
		return
	}
	delete(uc.evictions, roomID)
	delete(uc.gens, roomID)
	uc.mu.Unlock()

	dropped := uc.store.Drop(roomID)
	if len(dropped) == 0 {
		return
	}

	ids := make([]string, 0, len(dropped))
	ctx := context.Background()
	for _, m := range dropped {
		ids = append(ids, m.ID)
		if m.Type == domain.MessageMedia {
			if err := uc.media.Delete(ctx, m.ID); err != nil {
				logger.Log.Errorf("evict media delete failed:", err, zap.String("messageID", m.ID))
			}
		}
	}
	uc.views.Forget(ids)

	logger.Log.Info("room evicted", zap.String("roomID", roomID), zap.Int("messages", len(dropped)))
}
