package app

import (
	"context"
	"errors"

	"github.com/amaan-q00/beta-chatx/internal/chat/domain"
	"github.com/amaan-q00/beta-chatx/internal/chat/repository"
	errprocess "github.com/amaan-q00/beta-chatx/pkg/err"
	"github.com/amaan-q00/beta-chatx/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMediaExpired the requesting viewer already consumed this
// one-time media; its content is no longer disclosable to them.
var ErrMediaExpired = errors.New("media expired")

// ErrMediaUnknown no stored media message under the requested id.
var ErrMediaUnknown = errors.New("unknown media message")

// Hub is the single owner of all shared chat state. Inbound events
// are routed to the room registry, the chunk reassembler or the view
// tracker, and the resulting events fan out to the room. One Hub is
// constructed per process, in main.
type Hub struct {
	rooms   *RoomUseCase
	uploads *UploadUseCase
	views   *ViewUseCase
	media   repository.MediaStore
}

// NewHub create Hub
func NewHub(rooms *RoomUseCase, uploads *UploadUseCase, views *ViewUseCase, media repository.MediaStore) *Hub {
	return &Hub{
		rooms:   rooms,
		uploads: uploads,
		views:   views,
		media:   media,
	}
}

// Join subscribes sub to a room and replays the room's history to sub
// only. Members who joined earlier see nothing.
func (h *Hub) Join(p domain.JoinPayload, sub Subscriber) {
	history := h.rooms.Join(p.RoomID, sub, p.ViewerID)
	if err := sub.Send(domain.WSResponse{Event: domain.EventInit, Data: history}); err != nil {
		logger.Log.Errorf("init replay send failed:", err, zap.String("roomID", p.RoomID))
	}
}

// Leave drops sub from a room; the registry schedules eviction when
// the room empties.
func (h *Hub) Leave(roomID, subID string) {
	h.rooms.Leave(roomID, subID)
}

// HandleMessage appends a finalized message to the room log and
// broadcasts it to every current member, sender included.
func (h *Hub) HandleMessage(p domain.MessagePayload) domain.Message {
	msg := h.rooms.Append(p.RoomID, domain.Message{
		Type:      p.Type,
		Content:   p.Content,
		Sender:    p.Sender,
		Username:  p.Username,
		OneTime:   p.OneTime,
		MediaType: p.MediaType,
		Filename:  p.Filename,
	})
	h.Broadcast(p.RoomID, domain.WSResponse{Event: domain.EventMessage, Data: msg})
	return msg
}

// HandleMediaViewed records a one-time media consumption and
// propagates the state change to the room. The server never
// re-renders; clients apply the fact locally.
func (h *Hub) HandleMediaViewed(p domain.MediaViewedPayload) {
	_, changed := h.views.MarkViewed(p.MessageID, p.ViewerID)
	if !changed {
		logger.Log.Debug("duplicate mediaViewed ignored",
			zap.String("messageID", p.MessageID), zap.String("viewerID", p.ViewerID))
	}
	h.Broadcast(p.RoomID, domain.WSResponse{
		Event: domain.EventMediaViewed,
		Data:  domain.ViewedNotice{MessageID: p.MessageID, ViewerID: p.ViewerID},
	})
}

// HandleMediaChunk feeds one fragment to the reassembler, reports
// progress to the uploading connection only, and on completion stores,
// appends and broadcasts the assembled media message.
func (h *Hub) HandleMediaChunk(ctx context.Context, p domain.MediaChunkPayload, sender Subscriber) error {
	progress, assembled, err := h.uploads.ReceiveChunk(p)
	if err != nil {
		return err
	}

	if sendErr := sender.Send(domain.WSResponse{Event: domain.EventUploadProgress, Data: progress}); sendErr != nil {
		logger.Log.Errorf("upload progress send failed:", sendErr, zap.String("uploadID", p.UploadID))
	}

	if assembled == nil {
		return nil
	}

	msg, err := h.PostMedia(ctx, assembled.RoomID, assembled.Meta, assembled.Data)
	if err != nil {
		return err
	}
	logger.Log.Info("media upload completed",
		zap.String("uploadID", p.UploadID),
		zap.String("messageID", msg.ID),
		zap.Int("bytes", len(assembled.Data)))
	return nil
}

// PostMedia finalizes one whole media payload: the binary goes to the
// media store under a fresh message id, the message (content handle
// pointing at the stored binary) is appended to the room log, and the
// result is broadcast as media-binary. Both the chunked path and the
// plain-HTTP upload fallback end here.
func (h *Hub) PostMedia(ctx context.Context, roomID string, meta domain.MediaMeta, data []byte) (domain.Message, error) {
	id := uuid.New().String()
	if err := h.media.Put(ctx, id, meta.MimeType, data); err != nil {
		return domain.Message{}, errprocess.Setf("roomID[%s] media store put failed: %v", roomID, err)
	}

	msg := h.rooms.Append(roomID, domain.Message{
		ID:        id,
		Type:      domain.MessageMedia,
		Content:   "/api/media/" + id,
		Sender:    meta.Sender,
		Username:  meta.Username,
		OneTime:   meta.OneTime,
		MediaType: meta.MimeType,
		Filename:  meta.Filename,
	})

	h.Broadcast(roomID, domain.WSResponse{Event: domain.EventMediaBinary, Data: msg})
	return msg, nil
}

// MediaContent materializes the raw binary of a media message for
// viewerID, refusing once the viewer appears in the message's viewedBy
// set. Re-requests after consumption get ErrMediaExpired no matter how
// often they retry.
func (h *Hub) MediaContent(ctx context.Context, messageID, viewerID string) ([]byte, string, error) {
	msg, ok := h.rooms.FindMessage(messageID)
	if !ok || msg.Type != domain.MessageMedia {
		return nil, "", ErrMediaUnknown
	}
	if msg.OneTime && h.views.HasViewed(messageID, viewerID) {
		return nil, "", ErrMediaExpired
	}
	data, contentType, err := h.media.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, "", ErrMediaUnknown
		}
		return nil, "", err
	}
	return data, contentType, nil
}

// Broadcast delivers resp to every member connected to roomID right
// now. Delivery is per-recipient: one dead connection never blocks the
// others.
func (h *Hub) Broadcast(roomID string, resp domain.WSResponse) {
	for _, sub := range h.rooms.Members(roomID) {
		if err := sub.Send(resp); err != nil {
			logger.Log.Errorf("broadcast send failed:", err,
				zap.String("roomID", roomID), zap.String("subscriberID", sub.ID()))
		}
	}
}
