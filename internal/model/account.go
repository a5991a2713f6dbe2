package model

import (
	"strconv"
	"time"
)

// AccountID 本地已登录账号ID，所有本地表按此分区
type AccountID int64

// String 转换为字符串
func (id AccountID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseAccountID 从字符串解析账号ID
func ParseAccountID(s string) (AccountID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return AccountID(n), nil
}

// Account 已登录账号
type Account struct {
	ID                       AccountID `json:"id,string" db:"id"`
	Domain                   string    `json:"domain" db:"domain"`
	Username                 string    `json:"username" db:"username"`
	AccessToken              string    `json:"-" db:"access_token"`
	AlwaysShowSensitiveMedia bool      `json:"always_show_sensitive_media" db:"always_show_sensitive_media"`
	AlwaysOpenSpoiler        bool      `json:"always_open_spoiler" db:"always_open_spoiler"`
	CreatedAt                time.Time `json:"created_at" db:"created_at"`
}

// Preferences 账号级显示偏好
type Preferences struct {
	AlwaysShowSensitiveMedia bool
	AlwaysOpenSpoiler        bool
}

// Preferences 返回账号的显示偏好
func (a *Account) Preferences() Preferences {
	return Preferences{
		AlwaysShowSensitiveMedia: a.AlwaysShowSensitiveMedia,
		AlwaysOpenSpoiler:        a.AlwaysOpenSpoiler,
	}
}

// FullName 返回 username@domain
func (a *Account) FullName() string {
	return a.Username + "@" + a.Domain
}
