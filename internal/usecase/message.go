package usecase

import (
	"context"

	"github.com/yumeworks/agora/internal/domain"
)

// MessageUsecase is thin pass-through persistence; it exists mostly so
// the user-deletion cascade has something to cascade into.
type MessageUsecase struct {
	messages MessageRepository
	users    UserRepository
}

func NewMessageUsecase(messages MessageRepository, users UserRepository) *MessageUsecase {
	return &MessageUsecase{
		messages: messages,
		users:    users,
	}
}

func (uc *MessageUsecase) Send(ctx context.Context, fromID string, toID string, body string) (domain.Message, error) {
	if body == "" {
		return domain.Message{}, domain.BadRequestError{Reason: "empty message body"}
	}

	if _, err := uc.users.Get(ctx, toID); err != nil {
		return domain.Message{}, err
	}

	return uc.messages.Create(ctx, domain.Message{
		FromID: fromID,
		ToID:   toID,
		Body:   body,
	})
}

func (uc *MessageUsecase) Conversation(ctx context.Context, userA string, userB string) ([]domain.Message, error) {
	return uc.messages.ListConversation(ctx, userA, userB)
}
