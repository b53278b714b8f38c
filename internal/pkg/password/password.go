// Package password 封装密码哈希。
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinCost 是允许的最小 bcrypt 成本。
const MinCost = 10

// ErrTooLong 表示密码超过 bcrypt 的 72 字节上限。
var ErrTooLong = errors.New("password too long")

// Hasher 生成与校验加盐哈希。
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) (bool, error)
}

// Bcrypt 是基于 bcrypt 的 Hasher。
type Bcrypt struct {
	cost int
}

// NewBcrypt 创建 Hasher；cost 低于 MinCost 时使用 MinCost。
func NewBcrypt(cost int) *Bcrypt {
	if cost < MinCost {
		cost = MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Bcrypt{cost: cost}
}

// Cost 返回实际使用的成本。
func (b *Bcrypt) Cost() int {
	return b.cost
}

func (b *Bcrypt) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Compare 比较明文与哈希。不匹配返回 (false, nil)，哈希本身损坏时返回错误。
func (b *Bcrypt) Compare(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}
