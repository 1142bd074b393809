package repository

import (
	"sync"

	"github.com/amaan-q00/beta-chatx/internal/chat/domain"
)

// RoomStore holds each room's append-only message log. Logs are
// memory-resident and live only as long as the room does.
type RoomStore interface {
	// Append stores msg at the end of roomID's log, creating the room
	// lazily if it does not exist yet.
	Append(roomID string, msg domain.Message)
	// History returns a copy of roomID's log in append order.
	History(roomID string) []domain.Message
	// Find locates a message by id across all live rooms.
	Find(messageID string) (domain.Message, bool)
	// Drop discards roomID's whole log and returns the removed entries
	// so the caller can release attached state (media blobs, view sets).
	Drop(roomID string) []domain.Message
}

type msgRef struct {
	roomID string
	idx    int
}

type memoryRoomStore struct {
	mu    sync.Mutex
	logs  map[string][]domain.Message
	index map[string]msgRef
}

// NewMemoryRoomStore init the in-memory RoomStore
func NewMemoryRoomStore() RoomStore {
	return &memoryRoomStore{
		logs:  make(map[string][]domain.Message),
		index: make(map[string]msgRef),
	}
}

func (s *memoryRoomStore) Append(roomID string, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[roomID] = append(s.logs[roomID], msg)
	s.index[msg.ID] = msgRef{roomID: roomID, idx: len(s.logs[roomID]) - 1}
}

func (s *memoryRoomStore) History(roomID string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[roomID]
	out := make([]domain.Message, len(log))
	copy(out, log)
	return out
}

func (s *memoryRoomStore) Find(messageID string) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.index[messageID]
	if !ok {
		return domain.Message{}, false
	}
	return s.logs[ref.roomID][ref.idx], true
}

func (s *memoryRoomStore) Drop(roomID string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[roomID]
	delete(s.logs, roomID)
	for _, m := range log {
		delete(s.index, m.ID)
	}
	return log
}
