package sui

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

// Sui 序列化常量：ed25519 签名方案标志与签名意图前缀。
const (
	ed25519Flag    = 0x00
	privateKeyHRP  = "suiprivkey"
	seedLength     = ed25519.SeedSize
	intentScopeTx  = 0x00
	intentVersion  = 0x00
	intentAppSui   = 0x00
)

// Signer holds the ed25519 keypair used to sign settlement transactions.
type Signer struct {
	key     ed25519.PrivateKey
	address string
}

// ParseKey decodes a signing credential. Both the wallet export format
// (bech32, "suiprivkey1...") and a base64 encoded 32-byte seed are accepted.
func ParseKey(secret string) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("签名私钥为空")
	}

	if strings.HasPrefix(secret, privateKeyHRP) {
		return parseBech32Key(secret)
	}

	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("解析私钥失败，既不是 %s1... 也不是合法的 base64: %w", privateKeyHRP, err)
	}
	// 允许带方案标志字节的 33 字节形式。
	if len(raw) == seedLength+1 && raw[0] == ed25519Flag {
		raw = raw[1:]
	}
	if len(raw) != seedLength {
		return nil, fmt.Errorf("私钥长度 %d 不合法，期望 %d 字节种子", len(raw), seedLength)
	}
	return newSigner(raw), nil
}

func parseBech32Key(secret string) (*Signer, error) {
	hrp, data, err := bech32.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("解码 bech32 私钥失败: %w", err)
	}
	if hrp != privateKeyHRP {
		return nil, fmt.Errorf("私钥前缀 %s 不合法，期望 %s", hrp, privateKeyHRP)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("转换私钥字节失败: %w", err)
	}
	if len(raw) != seedLength+1 {
		return nil, fmt.Errorf("私钥负载长度 %d 不合法", len(raw))
	}
	if raw[0] != ed25519Flag {
		return nil, fmt.Errorf("暂不支持的签名方案标志 0x%02x", raw[0])
	}
	return newSigner(raw[1:]), nil
}

// EncodeKey renders a seed in the wallet export format. Used by tooling and
// tests; the daemon itself only ever decodes.
func EncodeKey(seed []byte) (string, error) {
	if len(seed) != seedLength {
		return "", fmt.Errorf("种子长度 %d 不合法，期望 %d", len(seed), seedLength)
	}
	payload := append([]byte{ed25519Flag}, seed...)
	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(privateKeyHRP, converted)
}

func newSigner(seed []byte) *Signer {
	key := ed25519.NewKeyFromSeed(seed)
	pub := key.Public().(ed25519.PublicKey)

	// 地址为 blake2b-256(flag || pubkey) 的十六进制形式。
	payload := make([]byte, 0, 1+len(pub))
	payload = append(payload, ed25519Flag)
	payload = append(payload, pub...)
	digest := blake2b.Sum256(payload)

	return &Signer{
		key:     key,
		address: "0x" + hex.EncodeToString(digest[:]),
	}
}

// Address returns the Sui address derived from the public key.
func (s *Signer) Address() string {
	if s == nil {
		return ""
	}
	return s.address
}

// PublicKey returns the raw ed25519 public key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	if s == nil {
		return nil
	}
	return s.key.Public().(ed25519.PublicKey)
}

// SignTransaction signs base64 transaction bytes under the TransactionData
// intent and returns the serialized signature expected by the fullnode:
// base64(flag || signature || pubkey).
func (s *Signer) SignTransaction(txBytes string) (string, error) {
	if s == nil || s.key == nil {
		return "", errors.New("签名器未初始化")
	}
	raw, err := base64.StdEncoding.DecodeString(txBytes)
	if err != nil {
		return "", fmt.Errorf("解码交易字节失败: %w", err)
	}

	message := make([]byte, 0, 3+len(raw))
	message = append(message, intentScopeTx, intentVersion, intentAppSui)
	message = append(message, raw...)
	digest := blake2b.Sum256(message)

	signature := ed25519.Sign(s.key, digest[:])
	pub := s.key.Public().(ed25519.PublicKey)

	serialized := make([]byte, 0, 1+len(signature)+len(pub))
	serialized = append(serialized, ed25519Flag)
	serialized = append(serialized, signature...)
	serialized = append(serialized, pub...)
	return base64.StdEncoding.EncodeToString(serialized), nil
}

// SigningDigest exposes the signed digest for a given transaction payload.
// It exists so tests can verify signatures without re-deriving the intent.
func SigningDigest(txBytes []byte) [32]byte {
	message := make([]byte, 0, 3+len(txBytes))
	message = append(message, intentScopeTx, intentVersion, intentAppSui)
	message = append(message, txBytes...)
	return blake2b.Sum256(message)
}

// SigningClient couples a fullnode client with a signer so callers can
// submit move calls in one step.
type SigningClient struct {
	*Client
	signer *Signer
}

// NewSigningClient wraps client and signer.
func NewSigningClient(client *Client, signer *Signer) *SigningClient {
	return &SigningClient{Client: client, signer: signer}
}

// Address returns the signer address used as transaction sender.
func (sc *SigningClient) Address() string {
	if sc == nil {
		return ""
	}
	return sc.signer.Address()
}

// SignAndExecute builds, signs and submits the move call, returning the
// execution response. Contract-level failure is reported inside the response
// effects, not as an error.
func (sc *SigningClient) SignAndExecute(ctx context.Context, call MoveCall) (*TxResponse, error) {
	if sc == nil || sc.Client == nil || sc.signer == nil {
		return nil, errors.New("签名客户端未初始化")
	}
	txBytes, err := sc.MoveCall(ctx, sc.signer.Address(), call)
	if err != nil {
		return nil, err
	}
	signature, err := sc.signer.SignTransaction(txBytes)
	if err != nil {
		return nil, err
	}
	return sc.ExecuteTransactionBlock(ctx, txBytes, []string{signature})
}
