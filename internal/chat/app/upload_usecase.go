package app

import (
	"sync"
	"time"

	"github.com/amaan-q00/beta-chatx/internal/chat/domain"
	errprocess "github.com/amaan-q00/beta-chatx/pkg/err"
	"github.com/amaan-q00/beta-chatx/pkg/logger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Assembled is one completed upload handed off to the hub exactly
// once: the reassembler gives up ownership of the buffer here.
type Assembled struct {
	RoomID string
	Meta   domain.MediaMeta
	Data   []byte
}

type uploadSession struct {
	roomID   string
	meta     domain.MediaMeta
	chunks   [][]byte
	received int
	total    int
	size     int64
	done     bool
	expiry   clockwork.Timer
}

// UploadUseCase reassembles chunked media uploads. Chunks may arrive
// in any order; indices place them. A session finalizes at most once,
// when every declared slot is filled, and sessions that stop receiving
// chunks are evicted after the idle TTL.
type UploadUseCase struct {
	clock    clockwork.Clock
	idleTTL  time.Duration
	maxBytes int64

	mu       sync.Mutex
	sessions map[string]*uploadSession
}

// NewUploadUseCase init upload use case
func NewUploadUseCase(clock clockwork.Clock, idleTTL time.Duration, maxBytes int64) *UploadUseCase {
	return &UploadUseCase{
		clock:    clock,
		idleTTL:  idleTTL,
		maxBytes: maxBytes,
		sessions: make(map[string]*uploadSession),
	}
}

// ReceiveChunk applies one fragment. It always reports progress for
// the uploading connection; when the fragment completes the session it
// also returns the assembled payload. A rejected chunk leaves the
// already-received fragments of its session intact.
func (uc *UploadUseCase) ReceiveChunk(p domain.MediaChunkPayload) (domain.UploadProgress, *Assembled, error) {
	// Slot count is client-supplied and sizes an allocation. Every chunk
	// carries at least one byte, so no session with more slots than the
	// byte cap can ever legally complete.
	if int64(p.TotalChunks) > uc.maxBytes {
		return domain.UploadProgress{}, nil, errprocess.Setf("uploadID[%s] totalChunks %d exceeds media size limit of %d bytes", p.UploadID, p.TotalChunks, uc.maxBytes)
	}

	uc.mu.Lock()

	s, ok := uc.sessions[p.UploadID]
	if !ok {
		s = &uploadSession{
			roomID: p.RoomID,
			meta:   p.Meta,
			chunks: make([][]byte, p.TotalChunks),
			total:  p.TotalChunks,
		}
		uploadID := p.UploadID
		s.expiry = uc.clock.AfterFunc(uc.idleTTL, func() {
			uc.evictIdle(uploadID)
		})
		uc.sessions[p.UploadID] = s
	}

	if p.TotalChunks != s.total {
		uc.mu.Unlock()
		return domain.UploadProgress{}, nil, errprocess.Setf("uploadID[%s] totalChunks mismatch: declared %d, got %d", p.UploadID, s.total, p.TotalChunks)
	}
	if p.ChunkIndex >= s.total {
		uc.mu.Unlock()
		return domain.UploadProgress{}, nil, errprocess.Setf("uploadID[%s] chunkIndex %d out of range (total %d)", p.UploadID, p.ChunkIndex, s.total)
	}

	prev := s.chunks[p.ChunkIndex]
	newSize := s.size - int64(len(prev)) + int64(len(p.Chunk))
	if newSize > uc.maxBytes {
		s.expiry.Stop()
		delete(uc.sessions, p.UploadID)
		uc.mu.Unlock()
		return domain.UploadProgress{}, nil, errprocess.Setf("uploadID[%s] exceeds media size limit of %d bytes, session dropped", p.UploadID, uc.maxBytes)
	}

	// Duplicate index: last write wins, the received count does not
	// advance, so a gap can never be papered over by resends.
	s.chunks[p.ChunkIndex] = p.Chunk
	s.size = newSize
	if prev == nil {
		s.received++
	}
	s.expiry.Reset(uc.idleTTL)

	progress := domain.UploadProgress{
		UploadID: p.UploadID,
		Received: s.received,
		Total:    s.total,
		Percent:  roundPercent(s.received, s.total),
	}

	if s.received < s.total || s.done {
		uc.mu.Unlock()
		return progress, nil, nil
	}

	s.done = true
	s.expiry.Stop()
	delete(uc.sessions, p.UploadID)
	chunks, size := s.chunks, s.size
	uc.mu.Unlock()

	// Concatenation runs outside the lock so a large merge cannot
	// stall chunks of unrelated uploads.
	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c...)
	}

	return progress, &Assembled{RoomID: s.roomID, Meta: s.meta, Data: data}, nil
}

// SessionCount reports live (incomplete) upload sessions.
func (uc *UploadUseCase) SessionCount() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.sessions)
}

func (uc *UploadUseCase) evictIdle(uploadID string) {
	uc.mu.Lock()
	s, ok := uc.sessions[uploadID]
	if !ok || s.done {
		uc.mu.Unlock()
		return
	}
	delete(uc.sessions, uploadID)
	uc.mu.Unlock()

	logger.Log.Warn("upload session evicted after idle timeout",
		zap.String("uploadID", uploadID),
		zap.Int("received", s.received),
		zap.Int("total", s.total))
}

func roundPercent(received, total int) int {
	return int(float64(received)/float64(total)*100 + 0.5)
}
