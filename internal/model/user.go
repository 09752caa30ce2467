package model

import "time"

// User 注册用户（演示版：邮箱+密码，带生成次数余额）
type User struct {
	BaseModel

	Email    string `gorm:"size:100;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"` // bcrypt 哈希

	// Credits 剩余生成次数，注册赠送 10 次
	Credits int `gorm:"default:0"`

	IsActive    bool `gorm:"default:true"`
	LastLoginAt time.Time
}

func (User) TableName() string {
	return "users"
}

// InitialCredits 新用户赠送的生成次数
const InitialCredits = 10
