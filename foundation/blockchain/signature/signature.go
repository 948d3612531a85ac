// Package signature provides helper functions for handling the blockchain
// hashing and payload annotation needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Hash returns the SHA-256 digest of the data as 64 lower case hex
// characters with no prefix.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// AnnotatePayload appends a recoverable signature and the signer's address to
// the text so the origin of a payload can be looked up later. The result is
// opaque to the consensus rules: it is not checked when blocks are validated.
func AnnotatePayload(text string, privateKey *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(stamp(text), privateKey)
	if err != nil {
		return "", err
	}

	address := crypto.PubkeyToAddress(privateKey.PublicKey).String()

	return fmt.Sprintf("%s %s %s", text, hexutil.Encode(sig), address), nil
}

// PayloadAddress recovers the address that annotated the payload and checks
// it matches the address written into the payload. The original text is
// returned with it.
func PayloadAddress(payload string) (text string, address string, err error) {
	text, sigStr, claimed, err := splitPayload(payload)
	if err != nil {
		return "", "", err
	}

	sig, err := hexutil.Decode(sigStr)
	if err != nil {
		return "", "", fmt.Errorf("decoding signature: %w", err)
	}

	if len(sig) != crypto.SignatureLength {
		return "", "", fmt.Errorf("invalid signature length %d", len(sig))
	}

	// Extract the public key from the data and the signature.
	publicKey, err := crypto.SigToPub(stamp(text), sig)
	if err != nil {
		return "", "", err
	}

	// Check the public key extracted from the data and signature.
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), stamp(text), sig[:crypto.RecoveryIDOffset]) {
		return "", "", errors.New("invalid signature")
	}

	address = crypto.PubkeyToAddress(*publicKey).String()
	if address != claimed {
		return "", "", fmt.Errorf("address mismatch, got %s, exp %s", address, claimed)
	}

	return text, address, nil
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this text with
// the powchain stamp embedded into the final hash.
func stamp(text string) []byte {

	// Hash the text into a 32 byte array. This will provide
	// a data length consistency with all data.
	txHash := crypto.Keccak256([]byte(text))

	// This stamp is used so signatures we produce when annotating
	// payloads are always unique to this blockchain.
	stamp := []byte("\x19Powchain Signed Message:\n32")

	return crypto.Keccak256(stamp, txHash)
}

// splitPayload breaks an annotated payload into its text, signature and
// address parts. The text itself may contain spaces.
func splitPayload(payload string) (text string, sig string, address string, err error) {
	i := strings.LastIndexByte(payload, ' ')
	if i < 0 {
		return "", "", "", errors.New("payload is not annotated")
	}
	address = payload[i+1:]

	j := strings.LastIndexByte(payload[:i], ' ')
	if j < 0 {
		return "", "", "", errors.New("payload is not annotated")
	}

	return payload[:j], payload[j+1 : i], address, nil
}
