package app

import (
	"bytes"
	"math/rand"
	"testing"
	"time"

	"github.com/amaan-q00/beta-chatx/internal/chat/domain"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIdleTTL  = 60 * time.Second
	testMaxBytes = 10 << 20
)

func newTestUploadUC() (*UploadUseCase, clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewUploadUseCase(clock, testIdleTTL, testMaxBytes), clock
}

func splitChunks(data []byte, chunkSize int) [][]byte {
	var out [][]byte
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		out = append(out, data[off:end])
	}
	return out
}

func chunkPayload(uploadID string, chunks [][]byte, idx int) domain.MediaChunkPayload {
	return domain.MediaChunkPayload{
		UploadID:    uploadID,
		Chunk:       chunks[idx],
		ChunkIndex:  idx,
		TotalChunks: len(chunks),
		Meta:        domain.MediaMeta{Filename: "cat.png", MimeType: "image/png", Sender: "v1"},
		RoomID:      "main",
	}
}

func TestUploadUseCase_ReassemblesOutOfOrder(t *testing.T) {
	uc, _ := newTestUploadUC()

	original := make([]byte, 1<<20) // 1 MB in 4 chunks of 256KB
	rand.New(rand.NewSource(42)).Read(original)
	chunks := splitChunks(original, 256<<10)
	require.Len(t, chunks, 4)

	var assembled *Assembled
	completions := 0
	for _, idx := range []int{2, 0, 3, 1} {
		progress, a, err := uc.ReceiveChunk(chunkPayload("up-1", chunks, idx))
		require.NoError(t, err)
		assert.Equal(t, 4, progress.Total)
		if a != nil {
			completions++
			assembled = a
		}
	}

	require.Equal(t, 1, completions, "exactly one completion for the upload")
	assert.Len(t, assembled.Data, 1048576)
	assert.True(t, bytes.Equal(original, assembled.Data), "assembly must reproduce the original bytes")
	assert.Equal(t, "main", assembled.RoomID)
	assert.Equal(t, "cat.png", assembled.Meta.Filename)
	assert.Equal(t, 0, uc.SessionCount(), "completed session must be discarded")
}

func TestUploadUseCase_ReassemblesAnyPermutation(t *testing.T) {
	original := []byte("the quick brown fox jumps over the lazy dog")
	chunks := splitChunks(original, 5)

	perms := [][]int{
		{0, 1, 2, 3, 4, 5, 6, 7, 8},
		{8, 7, 6, 5, 4, 3, 2, 1, 0},
		{4, 0, 8, 2, 6, 1, 5, 3, 7},
	}
	for _, perm := range perms {
		uc, _ := newTestUploadUC()
		var assembled *Assembled
		for _, idx := range perm {
			_, a, err := uc.ReceiveChunk(chunkPayload("up-perm", chunks, idx))
			require.NoError(t, err)
			if a != nil {
				assembled = a
			}
		}
		require.NotNil(t, assembled)
		assert.Equal(t, original, assembled.Data)
	}
}

func TestUploadUseCase_ProgressReporting(t *testing.T) {
	uc, _ := newTestUploadUC()
	chunks := splitChunks(make([]byte, 300), 100)

	p1, _, err := uc.ReceiveChunk(chunkPayload("up-2", chunks, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, p1.Received)
	assert.Equal(t, 33, p1.Percent)

	p2, _, err := uc.ReceiveChunk(chunkPayload("up-2", chunks, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, p2.Received)
	assert.Equal(t, 67, p2.Percent)

	p3, _, err := uc.ReceiveChunk(chunkPayload("up-2", chunks, 2))
	require.NoError(t, err)
	assert.Equal(t, 100, p3.Percent)
}

func TestUploadUseCase_DuplicateChunkIsIdempotent(t *testing.T) {
	uc, _ := newTestUploadUC()
	chunks := splitChunks([]byte("abcdefgh"), 4)

	_, a, err := uc.ReceiveChunk(chunkPayload("up-3", chunks, 0))
	require.NoError(t, err)
	require.Nil(t, a)

	// Resending index 0 must not advance the count; the gap at index 1
	// keeps the session incomplete.
	progress, a, err := uc.ReceiveChunk(chunkPayload("up-3", chunks, 0))
	require.NoError(t, err)
	assert.Nil(t, a, "a duplicate must never force completion")
	assert.Equal(t, 1, progress.Received)

	_, a, err = uc.ReceiveChunk(chunkPayload("up-3", chunks, 1))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, []byte("abcdefgh"), a.Data)
}

func TestUploadUseCase_GapNeverCompletes(t *testing.T) {
	uc, _ := newTestUploadUC()
	chunks := splitChunks([]byte("abcdefghijkl"), 4)

	for _, idx := range []int{0, 2} {
		_, a, err := uc.ReceiveChunk(chunkPayload("up-4", chunks, idx))
		require.NoError(t, err)
		assert.Nil(t, a)
	}
	assert.Equal(t, 1, uc.SessionCount())
}

func TestUploadUseCase_RejectsIndexOutOfRange(t *testing.T) {
	uc, _ := newTestUploadUC()
	chunks := splitChunks([]byte("abcdefgh"), 4)

	_, _, err := uc.ReceiveChunk(chunkPayload("up-5", chunks, 0))
	require.NoError(t, err)

	bad := chunkPayload("up-5", chunks, 1)
	bad.ChunkIndex = 7
	_, a, err := uc.ReceiveChunk(bad)
	assert.Error(t, err)
	assert.Nil(t, a)

	// The offending chunk must not corrupt what was already received.
	_, a, err = uc.ReceiveChunk(chunkPayload("up-5", chunks, 1))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, []byte("abcdefgh"), a.Data)
}

func TestUploadUseCase_RejectsTotalChunksMismatch(t *testing.T) {
	uc, _ := newTestUploadUC()
	chunks := splitChunks([]byte("abcdefgh"), 4)

	_, _, err := uc.ReceiveChunk(chunkPayload("up-6", chunks, 0))
	require.NoError(t, err)

	bad := chunkPayload("up-6", chunks, 1)
	bad.TotalChunks = 9
	_, _, err = uc.ReceiveChunk(bad)
	assert.Error(t, err)

	_, a, err := uc.ReceiveChunk(chunkPayload("up-6", chunks, 1))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, []byte("abcdefgh"), a.Data)
}

func TestUploadUseCase_SizeCapDropsSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	uc := NewUploadUseCase(clock, testIdleTTL, 10)

	p := domain.MediaChunkPayload{
		UploadID:    "up-7",
		Chunk:       make([]byte, 11),
		ChunkIndex:  0,
		TotalChunks: 2,
		RoomID:      "main",
	}
	_, a, err := uc.ReceiveChunk(p)
	assert.Error(t, err)
	assert.Nil(t, a)
	assert.Equal(t, 0, uc.SessionCount(), "an oversized session must be released")
}

func TestUploadUseCase_RejectsAbsurdTotalChunks(t *testing.T) {
	uc, _ := newTestUploadUC()

	// One frame declaring more slots than the byte cap must be rejected
	// before any per-slot allocation happens.
	p := domain.MediaChunkPayload{
		UploadID:    "up-8",
		Chunk:       []byte("x"),
		ChunkIndex:  0,
		TotalChunks: 1 << 50,
		RoomID:      "main",
	}
	require.NoError(t, p.Validate())

	_, a, err := uc.ReceiveChunk(p)
	assert.Error(t, err)
	assert.Nil(t, a)
	assert.Equal(t, 0, uc.SessionCount(), "no session may be created for an undeliverable declaration")
}

func TestUploadUseCase_IdleSessionEvicted(t *testing.T) {
	uc, clock := newTestUploadUC()
	chunks := splitChunks([]byte("abcdefgh"), 4)

	_, _, err := uc.ReceiveChunk(chunkPayload("up-8", chunks, 0))
	require.NoError(t, err)
	require.Equal(t, 1, uc.SessionCount())

	clock.Advance(testIdleTTL)
	assert.Eventually(t, func() bool {
		return uc.SessionCount() == 0
	}, time.Second, 10*time.Millisecond, "a stalled upload must be evicted after the idle TTL")
}

func TestUploadUseCase_ChunkArrivalResetsIdleTimer(t *testing.T) {
	uc, clock := newTestUploadUC()
	chunks := splitChunks([]byte("abcdefgh"), 4)

	_, _, err := uc.ReceiveChunk(chunkPayload("up-9", chunks, 0))
	require.NoError(t, err)

	clock.Advance(testIdleTTL / 2)
	_, _, err = uc.ReceiveChunk(chunkPayload("up-9", chunks, 1))
	require.NoError(t, err)

	clock.Advance(testIdleTTL/2 + time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, uc.SessionCount(), "activity keeps the session alive past the original deadline")
}
