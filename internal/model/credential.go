package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	credentialSaltBytes = 16
	credentialIters     = 100_000
)

// GenerateSaltHex 生成客户门户凭据使用的随机盐（hex 编码）。
func GenerateSaltHex() (string, error) {
	b := make([]byte, credentialSaltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashCredential 对客户门户凭据做加盐哈希。
// 简化实现：多轮 SHA256(salt || credential || prev)。
// 说明：生产建议使用 bcrypt/argon2（需要额外依赖与环境支持）。
func HashCredential(credential, saltHex string) (string, error) {
	if credential == "" {
		return "", fmt.Errorf("credential is empty")
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("invalid salt: %w", err)
	}
	var prev [32]byte
	for i := 0; i < credentialIters; i++ {
		h := sha256.New()
		_, _ = h.Write(salt)
		_, _ = h.Write([]byte(credential))
		_, _ = h.Write(prev[:])
		copy(prev[:], h.Sum(nil))
	}
	return hex.EncodeToString(prev[:]), nil
}

// VerifyCredential 校验凭据是否匹配。
func VerifyCredential(credential, saltHex, wantHashHex string) bool {
	got, err := HashCredential(credential, saltHex)
	if err != nil {
		return false
	}
	return got == wantHashHex
}
