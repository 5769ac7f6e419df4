package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/yumeworks/agora/internal/domain"
)

// AuthUsecase verifies wallet-signature challenges and issues session
// tokens. A wallet address maps to at most one active user; connecting
// an unknown address first requires a challenge, which creates the
// user record with the default USER role.
type AuthUsecase struct {
	users    UserRepository
	roles    *RoleUsecase
	verifier AddressVerifier
	tokens   TokenIssuer
	tx       Transactor
}

func NewAuthUsecase(
	users UserRepository,
	roles *RoleUsecase,
	verifier AddressVerifier,
	tokens TokenIssuer,
	tx Transactor,
) *AuthUsecase {
	return &AuthUsecase{
		users:    users,
		roles:    roles,
		verifier: verifier,
		tokens:   tokens,
		tx:       tx,
	}
}

// RequestChallenge returns the nonce the wallet must embed in its
// signed login message, creating user and wallet records on first
// contact and generating a nonce when the wallet has none.
func (uc *AuthUsecase) RequestChallenge(ctx context.Context, walletAddress string) (string, error) {
	ctx, span := tracer.Start(ctx, "Auth.Usecase.RequestChallenge")
	defer span.End()

	address, err := uc.verifier.NormalizeAddress(walletAddress)
	if err != nil {
		return "", domain.BadRequestError{Reason: err.Error()}
	}

	wallet, err := uc.users.GetWallet(ctx, address)
	if err == nil {
		if wallet.Nonce != "" {
			return wallet.Nonce, nil
		}
		nonce := newNonce()
		if err := uc.users.SetWalletNonce(ctx, wallet.ID, nonce); err != nil {
			span.RecordError(errors.Wrap(err, "store nonce"))
			return "", err
		}
		return nonce, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return "", err
	}

	// a user must never exist without its default role
	nonce := newNonce()
	err = uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := uc.users.Create(ctx, domain.User{
			Wallets: []domain.Wallet{{Address: address, Nonce: nonce}},
		})
		if err != nil {
			return errors.Wrap(err, "create user for wallet")
		}
		return uc.roles.AssignGlobal(ctx, user.ID, domain.RoleUser)
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return nonce, nil
}

// ConnectResult carries the session token and the authenticated user.
type ConnectResult struct {
	Token  string `json:"access_token"`
	UserID string `json:"userId"`
}

// Connect verifies that signature recovers to walletAddress over the
// challenge message holding the wallet's current nonce, then issues a
// short-lived session token. The nonce is rotated on success so a
// captured signature cannot be replayed.
func (uc *AuthUsecase) Connect(ctx context.Context, walletAddress string, signature string) (ConnectResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Usecase.Connect")
	defer span.End()

	address, err := uc.verifier.NormalizeAddress(walletAddress)
	if err != nil {
		return ConnectResult{}, domain.AuthenticationError{Reason: "invalid wallet address"}
	}

	user, err := uc.users.GetByWalletAddress(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ConnectResult{}, domain.AuthenticationError{Reason: "unknown wallet"}
		}
		span.RecordError(err)
		return ConnectResult{}, err
	}

	var wallet domain.Wallet
	for _, w := range user.Wallets {
		if strings.EqualFold(w.Address, address) {
			wallet = w
			break
		}
	}
	if wallet.ID == "" || wallet.Nonce == "" {
		return ConnectResult{}, domain.AuthenticationError{Reason: "no challenge issued for wallet"}
	}

	message := fmt.Sprintf(domain.ChallengeMessage, wallet.Nonce)
	recovered, err := uc.verifier.RecoverAddress(message, signature)
	if err != nil {
		return ConnectResult{}, domain.AuthenticationError{Reason: "signature recovery failed"}
	}
	if !strings.EqualFold(recovered, address) {
		return ConnectResult{}, domain.AuthenticationError{Reason: "signature does not match wallet"}
	}

	// one login per nonce
	if err := uc.users.SetWalletNonce(ctx, wallet.ID, newNonce()); err != nil {
		span.RecordError(errors.Wrap(err, "rotate nonce"))
		return ConnectResult{}, err
	}

	token, err := uc.tokens.Issue(user.ID, address)
	if err != nil {
		span.RecordError(errors.Wrap(err, "issue token"))
		return ConnectResult{}, err
	}

	return ConnectResult{
		Token:  token,
		UserID: user.ID,
	}, nil
}

func newNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
