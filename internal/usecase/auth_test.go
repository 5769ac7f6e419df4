package usecase

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/yumeworks/agora/internal/domain"
)

func newAuthFixture() (*AuthUsecase, *mockUserRepo, *mockRoleRepo, *mockVerifier) {
	users := newMockUserRepo()
	roleRepo := newMockRoleRepo()
	verifier := &mockVerifier{}
	roles := NewRoleUsecase(roleRepo, newMockGroupRepo())
	tx := transactionalTx(users.state, roleRepo.state)
	uc := NewAuthUsecase(users, roles, verifier, &mockTokens{}, tx)
	return uc, users, roleRepo, verifier
}

func TestRequestChallengeCreatesUser(t *testing.T) {
	uc, users, roleRepo, _ := newAuthFixture()

	nonce, err := uc.RequestChallenge(context.Background(), "0xAbC0000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("challenge failed: %v", err)
	}
	if nonce == "" {
		t.Fatalf("expected a nonce")
	}

	user, err := users.GetByWalletAddress(context.Background(), "0xabc0000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("expected user to be created: %v", err)
	}
	if len(user.Wallets) != 1 || user.Wallets[0].Nonce != nonce {
		t.Fatalf("expected wallet to hold the issued nonce")
	}

	names, _ := roleRepo.GlobalRolesOf(context.Background(), user.ID)
	if len(names) != 1 || names[0] != domain.RoleUser {
		t.Fatalf("expected default USER role, got %v", names)
	}
}

func TestRequestChallengeRollsBackUserWhenGrantFails(t *testing.T) {
	uc, users, roleRepo, _ := newAuthFixture()
	roleRepo.assignGlobal = errors.New("connection reset")

	if _, err := uc.RequestChallenge(context.Background(), "0xabc0000000000000000000000000000000000001"); err == nil {
		t.Fatalf("expected challenge to fail when the grant fails")
	}

	// no half-created account: neither the user nor its wallet persists
	if _, err := users.GetByWalletAddress(context.Background(), "0xabc0000000000000000000000000000000000001"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected user lookup to miss, got %v", err)
	}
	if _, err := users.GetWallet(context.Background(), "0xabc0000000000000000000000000000000000001"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected wallet lookup to miss, got %v", err)
	}
}

func TestRequestChallengeReturnsExistingNonce(t *testing.T) {
	uc, _, _, _ := newAuthFixture()

	first, err := uc.RequestChallenge(context.Background(), "0xabc0000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("challenge failed: %v", err)
	}
	second, err := uc.RequestChallenge(context.Background(), "0xabc0000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("second challenge failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected the pending nonce to be reused, got %s then %s", first, second)
	}
}

func TestRequestChallengeRejectsBadAddress(t *testing.T) {
	uc, _, _, _ := newAuthFixture()

	if _, err := uc.RequestChallenge(context.Background(), "not-an-address"); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestConnectIssuesTokenAndRotatesNonce(t *testing.T) {
	uc, users, _, verifier := newAuthFixture()
	address := "0xabc0000000000000000000000000000000000001"

	nonce, err := uc.RequestChallenge(context.Background(), address)
	if err != nil {
		t.Fatalf("challenge failed: %v", err)
	}
	verifier.recovered = address

	result, err := uc.Connect(context.Background(), address, "0xsig")
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if result.Token == "" || result.UserID == "" {
		t.Fatalf("expected token and user id, got %+v", result)
	}

	if verifier.lastSigned != "Sign this message to login. Nonce: "+nonce {
		t.Fatalf("unexpected challenge message: %s", verifier.lastSigned)
	}

	wallet := users.walletOf(result.UserID)
	if wallet.Nonce == nonce {
		t.Fatalf("expected nonce to rotate after connect")
	}
	if wallet.Nonce == "" {
		t.Fatalf("expected a fresh nonce, not an empty one")
	}
}

func TestConnectRejectsWrongSigner(t *testing.T) {
	uc, _, _, verifier := newAuthFixture()
	address := "0xabc0000000000000000000000000000000000001"

	if _, err := uc.RequestChallenge(context.Background(), address); err != nil {
		t.Fatalf("challenge failed: %v", err)
	}
	verifier.recovered = "0xdef0000000000000000000000000000000000002"

	if _, err := uc.Connect(context.Background(), address, "0xsig"); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
}

func TestConnectRejectsUnknownWallet(t *testing.T) {
	uc, _, _, _ := newAuthFixture()

	_, err := uc.Connect(context.Background(), "0xabc0000000000000000000000000000000000001", "0xsig")
	if !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
}

func TestConnectRequiresPendingChallenge(t *testing.T) {
	uc, users, _, verifier := newAuthFixture()
	address := "0xabc0000000000000000000000000000000000001"

	// wallet exists but never asked for a challenge
	_, err := users.Create(context.Background(), domain.User{
		Wallets: []domain.Wallet{{Address: address}},
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	verifier.recovered = address

	if _, err := uc.Connect(context.Background(), address, "0xsig"); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
}

func TestConnectCannotReplaySignature(t *testing.T) {
	uc, _, _, verifier := newAuthFixture()
	address := "0xabc0000000000000000000000000000000000001"

	if _, err := uc.RequestChallenge(context.Background(), address); err != nil {
		t.Fatalf("challenge failed: %v", err)
	}
	verifier.recovered = address

	if _, err := uc.Connect(context.Background(), address, "0xsig"); err != nil {
		t.Fatalf("first connect failed: %v", err)
	}

	// the rotated nonce makes the old signed message stale, which a
	// real verifier would recover to a different address
	verifier.recovered = "0xdef0000000000000000000000000000000000002"
	if _, err := uc.Connect(context.Background(), address, "0xsig"); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected replay to be rejected, got %v", err)
	}
}
