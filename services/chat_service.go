package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mailbox"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type IChatService interface {
	CreateUser(name string) (domain.UserID, error)
	CreateGroup(name string, creator domain.UserID) (domain.GroupID, error)
	AddMember(group domain.GroupID, user, acting domain.UserID) error
	PromoteAdmin(group domain.GroupID, user, acting domain.UserID) error

	SendMessageToUser(ctx context.Context, sender, recipient domain.UserID, body string) (domain.Receipt, error)
	SendMessageToGroup(ctx context.Context, sender domain.UserID, group domain.GroupID, body string) (domain.Receipt, error)
	SendMediaToUser(ctx context.Context, sender, recipient domain.UserID, media domain.Media) (domain.Receipt, error)
	SendMediaToGroup(ctx context.Context, sender domain.UserID, group domain.GroupID, media domain.Media) (domain.Receipt, error)

	Connect(ctx context.Context, user domain.UserID, transport contract.Transport) error
	Disconnect(user domain.UserID)

	History(ctx context.Context, target domain.Target, cursor *string) ([]repositories.DiskMessage, *string, error)
	Deliveries(ctx context.Context, messageID uuid.UUID) ([]repositories.DiskDelivery, error)
}

// ChatService is the single entry point of the admin and client layers.
// It keeps the registry and the mailbox directory in step.
type ChatService struct {
	log       *slog.Logger
	registry  *runtime.Registry
	mailboxes *mailbox.Directory
	router    *runtime.Router
	gateway   *runtime.Gateway
	journal   repositories.IJournal
}

var _ IChatService = (*ChatService)(nil)

// NewChatService wires the façade. journal may be nil when history is disabled.
func NewChatService(
	log *slog.Logger,
	registry *runtime.Registry,
	mailboxes *mailbox.Directory,
	router *runtime.Router,
	gateway *runtime.Gateway,
	journal repositories.IJournal,
) *ChatService {
	return &ChatService{
		log:       log,
		registry:  registry,
		mailboxes: mailboxes,
		router:    router,
		gateway:   gateway,
		journal:   journal,
	}
}

// CreateUser registers the user and opens its mailbox, so it can be
// messaged before it ever connects.
func (s *ChatService) CreateUser(name string) (domain.UserID, error) {
	id, err := s.registry.CreateUser(name)
	if err != nil {
		return "", err
	}
	s.mailboxes.Open(id)
	s.log.Info("User registered", "user", id)
	return id, nil
}

func (s *ChatService) CreateGroup(name string, creator domain.UserID) (domain.GroupID, error) {
	return s.registry.CreateGroup(name, creator)
}

func (s *ChatService) AddMember(group domain.GroupID, user, acting domain.UserID) error {
	return s.registry.AddMember(group, user, acting)
}

func (s *ChatService) PromoteAdmin(group domain.GroupID, user, acting domain.UserID) error {
	return s.registry.PromoteAdmin(group, user, acting)
}

func (s *ChatService) SendMessageToUser(ctx context.Context, sender, recipient domain.UserID, body string) (domain.Receipt, error) {
	return s.router.SendMessageToUser(ctx, sender, recipient, body)
}

func (s *ChatService) SendMessageToGroup(ctx context.Context, sender domain.UserID, group domain.GroupID, body string) (domain.Receipt, error) {
	return s.router.SendMessageToGroup(ctx, sender, group, body)
}

func (s *ChatService) SendMediaToUser(ctx context.Context, sender, recipient domain.UserID, media domain.Media) (domain.Receipt, error) {
	return s.router.SendMediaToUser(ctx, sender, recipient, media)
}

func (s *ChatService) SendMediaToGroup(ctx context.Context, sender domain.UserID, group domain.GroupID, media domain.Media) (domain.Receipt, error) {
	return s.router.SendMediaToGroup(ctx, sender, group, media)
}

func (s *ChatService) Connect(ctx context.Context, user domain.UserID, transport contract.Transport) error {
	return s.gateway.Connect(ctx, user, transport)
}

func (s *ChatService) Disconnect(user domain.UserID) {
	s.gateway.Disconnect(user)
}

// History pages through the journal of a target, newest first.
func (s *ChatService) History(ctx context.Context, target domain.Target, cursor *string) ([]repositories.DiskMessage, *string, error) {
	if s.journal == nil {
		return nil, nil, errors.ErrJournalDisabled
	}
	return s.journal.GetMessages(ctx, target, cursor)
}

func (s *ChatService) Deliveries(ctx context.Context, messageID uuid.UUID) ([]repositories.DiskDelivery, error) {
	if s.journal == nil {
		return nil, errors.ErrJournalDisabled
	}
	return s.journal.GetDeliveries(ctx, messageID)
}
