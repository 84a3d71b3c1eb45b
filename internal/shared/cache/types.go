// Package cache 缓存层键定义
package cache

import "strings"

// KeyLoginFailures 登录失败计数键前缀，后接小写邮箱
const KeyLoginFailures = "erasmus:login_failures:"

// LoginFailuresKey 返回邮箱对应的计数键
func LoginFailuresKey(email string) string {
	return KeyLoginFailures + strings.ToLower(strings.TrimSpace(email))
}
