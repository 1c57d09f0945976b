package sui

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"
)

func testSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func TestParseKeyBech32Roundtrip(t *testing.T) {
	seed := testSeed()
	encoded, err := EncodeKey(seed)
	if err != nil {
		t.Fatalf("编码私钥失败: %v", err)
	}
	if !strings.HasPrefix(encoded, "suiprivkey1") {
		t.Fatalf("导出格式前缀不正确: %s", encoded)
	}

	signer, err := ParseKey(encoded)
	if err != nil {
		t.Fatalf("解析私钥失败: %v", err)
	}

	expected := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	if !bytes.Equal(signer.PublicKey(), expected) {
		t.Fatal("bech32 往返后公钥不一致")
	}
}

func TestParseKeyBase64Seed(t *testing.T) {
	seed := testSeed()

	plain, err := ParseKey(base64.StdEncoding.EncodeToString(seed))
	if err != nil {
		t.Fatalf("解析 32 字节种子失败: %v", err)
	}

	flagged, err := ParseKey(base64.StdEncoding.EncodeToString(append([]byte{0x00}, seed...)))
	if err != nil {
		t.Fatalf("解析带标志字节的种子失败: %v", err)
	}

	if plain.Address() != flagged.Address() {
		t.Fatalf("两种形式应得到同一地址: %s vs %s", plain.Address(), flagged.Address())
	}
}

func TestParseKeyRejectsGarbage(t *testing.T) {
	for _, secret := range []string{
		"",
		"not base64 at all!!!",
		base64.StdEncoding.EncodeToString([]byte("short")),
		"suiprivkey1qqqqqqqq",
	} {
		if _, err := ParseKey(secret); err == nil {
			t.Fatalf("非法凭证 %q 应解析失败", secret)
		}
	}
}

func TestAddressDerivation(t *testing.T) {
	signer, err := ParseKey(base64.StdEncoding.EncodeToString(testSeed()))
	if err != nil {
		t.Fatalf("解析私钥失败: %v", err)
	}

	address := signer.Address()
	if !strings.HasPrefix(address, "0x") {
		t.Fatalf("地址应以 0x 开头: %s", address)
	}
	if len(address) != 2+64 {
		t.Fatalf("地址长度不正确: %d", len(address))
	}

	// 同一私钥必须导出稳定地址。
	again, _ := ParseKey(base64.StdEncoding.EncodeToString(testSeed()))
	if again.Address() != address {
		t.Fatal("地址推导不稳定")
	}
}

func TestSignTransactionVerifies(t *testing.T) {
	signer, err := ParseKey(base64.StdEncoding.EncodeToString(testSeed()))
	if err != nil {
		t.Fatalf("解析私钥失败: %v", err)
	}

	txBytes := []byte("transaction payload")
	serialized, err := signer.SignTransaction(base64.StdEncoding.EncodeToString(txBytes))
	if err != nil {
		t.Fatalf("签名失败: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil {
		t.Fatalf("签名不是合法 base64: %v", err)
	}
	if len(raw) != 1+ed25519.SignatureSize+ed25519.PublicKeySize {
		t.Fatalf("序列化签名长度不正确: %d", len(raw))
	}
	if raw[0] != 0x00 {
		t.Fatalf("签名方案标志应为 0x00，实际为 0x%02x", raw[0])
	}

	signature := raw[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(raw[1+ed25519.SignatureSize:])
	digest := SigningDigest(txBytes)
	if !ed25519.Verify(pub, digest[:], signature) {
		t.Fatal("签名未通过意图摘要校验")
	}
}

func TestSignTransactionRejectsBadPayload(t *testing.T) {
	signer, err := ParseKey(base64.StdEncoding.EncodeToString(testSeed()))
	if err != nil {
		t.Fatalf("解析私钥失败: %v", err)
	}
	if _, err := signer.SignTransaction("***"); err == nil {
		t.Fatal("非法交易字节应签名失败")
	}
}
