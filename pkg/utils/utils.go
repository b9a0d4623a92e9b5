// Package utils 提供哈希与分页参数等通用工具
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hash 计算 SHA256 哈希
func SHA256Hash(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ClampLimit 把分页大小限制在 [1, max]，非正值取 def
func ClampLimit(limit, def, max int) int {
	switch {
	case limit <= 0:
		return def
	case limit > max:
		return max
	default:
		return limit
	}
}
