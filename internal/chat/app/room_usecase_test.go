package app

import (
	"testing"
	"time"

	"github.com/amaan-q00/beta-chatx/internal/chat/domain"
	"github.com/amaan-q00/beta-chatx/internal/chat/repository"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testGrace = time.Second

func newTestRoomUC(media repository.MediaStore) (*RoomUseCase, *ViewUseCase, clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	views := NewViewUseCase()
	if media == nil {
		media = repository.NewMemoryMediaStore()
	}
	uc := NewRoomUseCase(repository.NewMemoryRoomStore(), media, views, clock, testGrace)
	return uc, views, clock
}

func TestRoomUseCase_JoinEmptyRoomReturnsEmptyHistory(t *testing.T) {
	uc, _, _ := newTestRoomUC(nil)

	history := uc.Join("main", newFakeSubscriber("c1"), "v1")

	assert.Empty(t, history)
	assert.Len(t, uc.Members("main"), 1)
}

func TestRoomUseCase_AppendAssignsIdentityAndOrder(t *testing.T) {
	uc, _, clock := newTestRoomUC(nil)

	a := uc.Append("main", domain.Message{Type: domain.MessageText, Content: "first", Sender: "v1"})
	b := uc.Append("main", domain.Message{Type: domain.MessageText, Content: "second", Sender: "v2"})

	assert.NotEmpty(t, a.ID)
	assert.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, clock.Now().UnixMilli(), a.Timestamp)
	assert.Equal(t, "main", a.RoomID)

	history := uc.History("main", "v1")
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
}

func TestRoomUseCase_AppendToUnknownRoomCreatesIt(t *testing.T) {
	uc, _, _ := newTestRoomUC(nil)

	msg := uc.Append("never-joined", domain.Message{Type: domain.MessageText, Content: "hi"})

	assert.NotEmpty(t, msg.ID)
	assert.Len(t, uc.History("never-joined", ""), 1)
}

func TestRoomUseCase_EvictionAfterGrace(t *testing.T) {
	media := new(MockMediaStore)
	media.On("Delete", mock.Anything, mock.Anything).Return(nil)
	uc, views, clock := newTestRoomUC(media)

	sub := newFakeSubscriber("c1")
	uc.Join("main", sub, "v1")
	uc.Append("main", domain.Message{Type: domain.MessageText, Content: "hi"})
	mediaMsg := uc.Append("main", domain.Message{Type: domain.MessageMedia, Content: "/api/media/x", OneTime: true})
	views.MarkViewed(mediaMsg.ID, "v1")

	uc.Leave("main", sub.ID())
	clock.Advance(testGrace)

	assert.Eventually(t, func() bool {
		return len(uc.History("main", "v1")) == 0
	}, time.Second, 10*time.Millisecond, "log must be discarded once the grace period elapses")

	assert.Eventually(t, func() bool {
		return len(views.Viewers(mediaMsg.ID)) == 0
	}, time.Second, 10*time.Millisecond, "view state of evicted messages must be released")

	media.AssertCalled(t, "Delete", mock.Anything, mediaMsg.ID)
}

func TestRoomUseCase_RejoinDuringGraceCancelsEviction(t *testing.T) {
	uc, _, clock := newTestRoomUC(nil)

	sub := newFakeSubscriber("c1")
	uc.Join("main", sub, "v1")
	uc.Append("main", domain.Message{Type: domain.MessageText, Content: "keep me"})
	uc.Leave("main", sub.ID())

	clock.Advance(testGrace / 2)
	history := uc.Join("main", newFakeSubscriber("c2"), "v2")
	require.Len(t, history, 1)
	assert.Equal(t, "keep me", history[0].Content)

	clock.Advance(testGrace * 2)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, uc.History("main", "v2"), 1, "a re-joined room must not lose its history")
}

func TestRoomUseCase_SupersededEvictionCallbackDoesNotDropRoom(t *testing.T) {
	uc, _, clock := newTestRoomUC(nil)

	// First grace window opens and its timer fires, but the callback
	// has not run yet when the client re-joins and leaves again. The
	// late callback must not cut the second window short.
	sub := newFakeSubscriber("c1")
	uc.Join("main", sub, "v1")
	uc.Append("main", domain.Message{Type: domain.MessageText, Content: "keep me"})
	uc.Leave("main", sub.ID())
	staleGen := uc.gens["main"]

	uc.Join("main", sub, "v1")
	uc.Leave("main", sub.ID())

	uc.evict("main", staleGen)
	assert.Len(t, uc.History("main", "v1"), 1, "a superseded grace window must not drop the log")

	clock.Advance(testGrace * 2)
	assert.Eventually(t, func() bool {
		return len(uc.History("main", "v1")) == 0
	}, time.Second, 5*time.Millisecond, "the current grace window must still evict")
}

func TestRoomUseCase_LeaveWithRemainingMembersKeepsRoom(t *testing.T) {
	uc, _, clock := newTestRoomUC(nil)

	s1 := newFakeSubscriber("c1")
	s2 := newFakeSubscriber("c2")
	uc.Join("main", s1, "v1")
	uc.Join("main", s2, "v2")
	uc.Append("main", domain.Message{Type: domain.MessageText, Content: "hi"})

	uc.Leave("main", s1.ID())
	clock.Advance(testGrace * 2)
	time.Sleep(20 * time.Millisecond)

	assert.Len(t, uc.History("main", "v2"), 1)
	assert.Len(t, uc.Members("main"), 1)
}

func TestRoomUseCase_AppendDelegatesFinalizedMessageToStore(t *testing.T) {
	store := new(MockRoomStore)
	store.On("Append", "main", mock.MatchedBy(func(m domain.Message) bool {
		return m.ID != "" && m.Timestamp != 0 && m.RoomID == "main"
	})).Return()

	uc := NewRoomUseCase(store, repository.NewMemoryMediaStore(), NewViewUseCase(), clockwork.NewFakeClock(), testGrace)
	uc.Append("main", domain.Message{Type: domain.MessageText, Content: "hi"})

	store.AssertExpectations(t)
}

func TestRoomUseCase_FindMessageDelegatesToStore(t *testing.T) {
	store := new(MockRoomStore)
	store.On("Find", "m1").Return(domain.Message{ID: "m1"}, true)

	uc := NewRoomUseCase(store, repository.NewMemoryMediaStore(), NewViewUseCase(), clockwork.NewFakeClock(), testGrace)
	m, ok := uc.FindMessage("m1")

	assert.True(t, ok)
	assert.Equal(t, "m1", m.ID)
	store.AssertExpectations(t)
}

func TestRoomUseCase_HistoryMasksConsumedOneTimeMedia(t *testing.T) {
	uc, views, _ := newTestRoomUC(nil)

	msg := uc.Append("main", domain.Message{
		Type:    domain.MessageMedia,
		Content: "/api/media/abc",
		OneTime: true,
	})
	views.MarkViewed(msg.ID, "v1")

	forV1 := uc.History("main", "v1")
	require.Len(t, forV1, 1)
	assert.Equal(t, domain.Expired, forV1[0].Content)
	assert.Equal(t, []string{"v1"}, forV1[0].ViewedBy)

	forV2 := uc.History("main", "v2")
	require.Len(t, forV2, 1)
	assert.Equal(t, "/api/media/abc", forV2[0].Content, "an unconsumed viewer still gets the content handle")
	assert.Equal(t, []string{"v1"}, forV2[0].ViewedBy)
}
