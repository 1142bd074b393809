package app

import (
	"context"
	"sync"

	"github.com/amaan-q00/beta-chatx/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockRoomStore mock repository.RoomStore
type MockRoomStore struct {
	mock.Mock
}

// Append mock append message
func (m *MockRoomStore) Append(roomID string, msg domain.Message) {
	m.Called(roomID, msg)
}

// History mock room history
func (m *MockRoomStore) History(roomID string) []domain.Message {
	args := m.Called(roomID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message)
	}
	return nil
}

// Find mock find message by id
func (m *MockRoomStore) Find(messageID string) (domain.Message, bool) {
	args := m.Called(messageID)
	return args.Get(0).(domain.Message), args.Bool(1)
}

// Drop mock drop room log
func (m *MockRoomStore) Drop(roomID string) []domain.Message {
	args := m.Called(roomID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message)
	}
	return nil
}

// MockMediaStore mock repository.MediaStore
type MockMediaStore struct {
	mock.Mock
}

// Put mock store blob
func (m *MockMediaStore) Put(ctx context.Context, messageID, contentType string, data []byte) error {
	args := m.Called(ctx, messageID, contentType, data)
	return args.Error(0)
}

// Get mock fetch blob
func (m *MockMediaStore) Get(ctx context.Context, messageID string) ([]byte, string, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).([]byte), args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

// Delete mock delete blob
func (m *MockMediaStore) Delete(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// fakeSubscriber records everything sent to it; failErr makes every
// Send fail, for the per-recipient delivery isolation tests.
type fakeSubscriber struct {
	id      string
	failErr error

	mu   sync.Mutex
	sent []domain.WSResponse
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id}
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Send(resp domain.WSResponse) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, resp)
	return nil
}

func (f *fakeSubscriber) responses() []domain.WSResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.WSResponse, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSubscriber) responsesFor(event domain.Event) []domain.WSResponse {
	var out []domain.WSResponse
	for _, r := range f.responses() {
		if r.Event == event {
			out = append(out, r)
		}
	}
	return out
}
