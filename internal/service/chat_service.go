package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mentorhub/internal/model"
	"mentorhub/internal/repository"

	"github.com/oklog/ulid/v2"
)

const maxMessageLength = 4000

// ChatHistoryPayload is sent on chat:history
type ChatHistoryPayload struct {
	RoomID   string           `json:"roomId"`
	Messages []*model.Message `json:"messages"`
}

// ChatService appends to and replays room chat logs. Appends for one room are
// serialized and broadcast while still holding the room lock, so delivery order
// always matches append order.
type ChatService struct {
	chatRepo    repository.ChatRepo
	locks       *keyedMutex
	broadcaster Broadcaster
}

// NewChatService creates a new chat service
func NewChatService(chatRepo repository.ChatRepo) *ChatService {
	return &ChatService{
		chatRepo:    chatRepo,
		locks:       newKeyedMutex(),
		broadcaster: noopBroadcaster{},
	}
}

// SetBroadcaster injects the broadcaster
func (s *ChatService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Send appends a message from sender and broadcasts it to the whole room,
// sender included. Nothing is broadcast if the append fails.
func (s *ChatService) Send(ctx context.Context, roomID string, sender model.Identity, content string, msgType model.MessageType) (*model.Message, error) {
	if msgType == "" {
		msgType = model.MessageText
	}
	if !msgType.Valid() {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidPayload, msgType)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrInvalidPayload)
	}
	if len(content) > maxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d bytes", ErrInvalidPayload, maxMessageLength)
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	msg := &model.Message{
		ID:        ulid.Make().String(),
		Sender:    sender,
		Content:   content,
		Type:      msgType,
		Timestamp: time.Now().UTC(),
	}
	if err := s.chatRepo.Append(ctx, roomID, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	s.broadcaster.BroadcastToRoom(roomID, model.EventChatNewMessage, msg)
	return msg, nil
}

// Replay creates the room log if missing and hands its current contents to
// attach while appends to the room are held off. Whatever attach subscribes
// therefore sees exactly the messages appended after the returned history.
func (s *ChatService) Replay(ctx context.Context, roomID string, attach func(history []*model.Message) error) error {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	if err := s.chatRepo.Ensure(ctx, roomID); err != nil {
		return fmt.Errorf("failed to create chat log: %w", err)
	}
	history, err := s.history(ctx, roomID)
	if err != nil {
		return err
	}
	return attach(history)
}

// History returns the room log in append order
func (s *ChatService) History(ctx context.Context, roomID string) ([]*model.Message, error) {
	return s.history(ctx, roomID)
}

func (s *ChatService) history(ctx context.Context, roomID string) ([]*model.Message, error) {
	chatLog, err := s.chatRepo.Get(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat log: %w", err)
	}
	if chatLog == nil || chatLog.Messages == nil {
		return []*model.Message{}, nil
	}
	return chatLog.Messages, nil
}
