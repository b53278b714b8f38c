package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// User 表示系统用户。
//
// ID 由存储层在创建时分配：MySQL 后端为自增主键的十进制字符串，Mongo 后端为 ObjectID 的 hex。
type User struct {
	ID           string    `json:"id"`        // 对外标识
	Name         string    `json:"name"`      // 显示名称
	Email        string    `json:"email"`     // 邮箱（唯一）
	PasswordHash string    `json:"-"`         // bcrypt 哈希，不对外输出
	Favorites    Favorites `json:"favorites"` // 收藏的菜谱 ID
	CreatedAt    time.Time `json:"createdAt"` // 创建时间
	UpdatedAt    time.Time `json:"updatedAt"` // 更新时间
}

// UserUpdate 描述一次部分更新，nil 字段保持不变。
//
// PasswordHash 只能由服务层在哈希之后填写。
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// Empty 判断是否没有任何待更新字段。
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil
}

// Favorites 是有序且无重复的菜谱 ID 列表，在 MySQL 中以 JSON 列保存。
type Favorites []string

// Contains 判断是否已收藏。
func (f Favorites) Contains(id RecipeID) bool {
	return slices.Contains(f, id.String())
}

// Add 追加一个 ID；已存在时原样返回。
func (f Favorites) Add(id RecipeID) Favorites {
	if f.Contains(id) {
		return f
	}
	out := make(Favorites, 0, len(f)+1)
	out = append(out, f...)
	return append(out, id.String())
}

// Remove 删除所有与 id 规范形式相同的条目，其余条目保持原有顺序。
func (f Favorites) Remove(id RecipeID) Favorites {
	out := make(Favorites, 0, len(f))
	for _, v := range f {
		if v == id.String() {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Value 实现 driver.Valuer。
func (f Favorites) Value() (driver.Value, error) {
	if f == nil {
		f = Favorites{}
	}
	data, err := json.Marshal([]string(f))
	if err != nil {
		return nil, fmt.Errorf("marshal favorites: %w", err)
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner。
func (f *Favorites) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*f = Favorites{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan favorites: unsupported type %T", src)
	}
	if len(data) == 0 {
		*f = Favorites{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan favorites: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*f = out
	return nil
}

// MarshalJSON 保证空列表输出为 []。
func (f Favorites) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(f))
}
