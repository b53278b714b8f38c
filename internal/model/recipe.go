package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RecipeID 是外部菜谱目录中的菜谱标识。
//
// 客户端可能传字符串 "637" 也可能传数字 637，两者在解码时统一为同一个规范字符串。
type RecipeID string

// ParseRecipeID 将字符串形式的 ID 规范化（去除首尾空白）。
func ParseRecipeID(raw string) RecipeID {
	return RecipeID(strings.TrimSpace(raw))
}

// RecipeIDFromNumber 将数字形式的 ID 按最短十进制表示输出（637.0 -> "637"）。
func RecipeIDFromNumber(n json.Number) (RecipeID, error) {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return "", fmt.Errorf("recipe id: %w", err)
	}
	return RecipeID(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// String 返回规范字符串形式。
func (id RecipeID) String() string {
	return string(id)
}

// Empty 判断是否为空。
func (id RecipeID) Empty() bool {
	return id == ""
}

// UnmarshalJSON 同时接受 JSON 字符串与 JSON 数字。
func (id *RecipeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("recipe id: %w", err)
		}
		*id = ParseRecipeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("recipe id must be a string or a number")
	}
	parsed, err := RecipeIDFromNumber(n)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
