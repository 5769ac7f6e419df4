package usecase

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/yumeworks/agora/internal/domain"
)

func TestSendMessage(t *testing.T) {
	users := newMockUserRepo()
	messages := newMockMessageRepo()
	uc := NewMessageUsecase(messages, users)

	alice, _ := users.Create(context.Background(), domain.User{DisplayName: "alice"})
	bob, _ := users.Create(context.Background(), domain.User{DisplayName: "bob"})

	if _, err := uc.Send(context.Background(), alice.ID, bob.ID, ""); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request for empty body, got %v", err)
	}
	if _, err := uc.Send(context.Background(), alice.ID, "ghost", "hi"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown recipient, got %v", err)
	}

	sent, err := uc.Send(context.Background(), alice.ID, bob.ID, "hi")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if sent.ID == "" || sent.FromID != alice.ID || sent.ToID != bob.ID {
		t.Fatalf("unexpected message: %+v", sent)
	}
}

func TestConversationIsBidirectional(t *testing.T) {
	users := newMockUserRepo()
	messages := newMockMessageRepo()
	uc := NewMessageUsecase(messages, users)

	alice, _ := users.Create(context.Background(), domain.User{DisplayName: "alice"})
	bob, _ := users.Create(context.Background(), domain.User{DisplayName: "bob"})
	carol, _ := users.Create(context.Background(), domain.User{DisplayName: "carol"})

	_, _ = uc.Send(context.Background(), alice.ID, bob.ID, "one")
	_, _ = uc.Send(context.Background(), bob.ID, alice.ID, "two")
	_, _ = uc.Send(context.Background(), alice.ID, carol.ID, "noise")

	convo, err := uc.Conversation(context.Background(), alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("conversation failed: %v", err)
	}
	if len(convo) != 2 {
		t.Fatalf("expected both directions and nothing else, got %v", convo)
	}
}
