package service

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignerService recovers wallet addresses from EIP-191 personal-sign
// signatures and normalizes addresses to their EIP-55 checksum form.
type SignerService struct{}

func NewSignerService() *SignerService {
	return &SignerService{}
}

// NormalizeAddress returns the checksummed form of a hex address.
func (s *SignerService) NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid wallet address: %s", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// RecoverAddress returns the checksummed address that produced the
// signature over the personal-sign hash of message.
func (s *SignerService) RecoverAddress(message string, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length: %d", len(sig))
	}

	// wallets emit V as 27/28, go-ethereum expects 0/1
	recovery := make([]byte, crypto.SignatureLength)
	copy(recovery, sig)
	if recovery[crypto.RecoveryIDOffset] >= 27 {
		recovery[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(message))
	pubkey, err := crypto.SigToPub(hash, recovery)
	if err != nil {
		return "", fmt.Errorf("signature recovery failed: %w", err)
	}

	return crypto.PubkeyToAddress(*pubkey).Hex(), nil
}

// SameAddress compares two addresses ignoring checksum casing.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
