package dto

// ==================== 注册 / 登录 ====================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyRequest Token 校验请求
type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// UserInfo 用户信息
type UserInfo struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Credits int    `json:"credits"`
}

// AuthResponse 注册/登录响应，对齐前端既有契约
type AuthResponse struct {
	Success bool      `json:"success"`
	Token   string    `json:"token,omitempty"`
	User    *UserInfo `json:"user"`
}

// ==================== 充值 ====================

// RechargeRequest 充值请求，Amount 为套餐面额（元）
type RechargeRequest struct {
	Amount int `json:"amount" binding:"required,gt=0"`
}

// RechargeResponse 充值响应
type RechargeResponse struct {
	Success bool   `json:"success"`
	Credits int    `json:"credits"`
	Message string `json:"message"`
}
