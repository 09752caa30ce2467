package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"douyin_copy_v1_202608/internal/model"
	"douyin_copy_v1_202608/internal/repository"
	"douyin_copy_v1_202608/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试辅助 ====================

func setupAuthCtlTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func setupAuthCtlRouter(t *testing.T) *gin.Engine {
	db := setupAuthCtlTestDB(t)
	authSvc := service.NewAuthService(repository.NewUserRepository(db))
	ctl := NewAuthController(authSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", ctl.Register)
		auth.POST("/login", ctl.Login)
		auth.POST("/verify", ctl.Verify)
	}
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ==================== 测试 ====================

func TestAuthCtl_RegisterSuccess(t *testing.T) {
	r := setupAuthCtlRouter(t)

	w := postJSON(r, "/api/auth/register", gin.H{"email": "a@b.com", "password": "password1"})
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200 实际 %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    struct {
			Email   string `json:"email"`
			Credits int    `json:"credits"`
		} `json:"user"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	if !resp.Success || resp.Token == "" {
		t.Errorf("注册响应不对: %s", w.Body.String())
	}
	if resp.User.Credits != model.InitialCredits {
		t.Errorf("初始次数期望 %d 实际 %d", model.InitialCredits, resp.User.Credits)
	}
}

func TestAuthCtl_RegisterValidation(t *testing.T) {
	r := setupAuthCtlRouter(t)

	cases := []struct {
		name string
		body gin.H
	}{
		{"邮箱非法", gin.H{"email": "not-an-email", "password": "password1"}},
		{"密码过短", gin.H{"email": "a@b.com", "password": "123"}},
		{"缺少字段", gin.H{"email": "a@b.com"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(r, "/api/auth/register", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("期望 400 实际 %d", w.Code)
			}
		})
	}
}

func TestAuthCtl_RegisterDuplicate(t *testing.T) {
	r := setupAuthCtlRouter(t)

	postJSON(r, "/api/auth/register", gin.H{"email": "a@b.com", "password": "password1"})
	w := postJSON(r, "/api/auth/register", gin.H{"email": "a@b.com", "password": "password2"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("重复注册期望 400 实际 %d", w.Code)
	}
}

func TestAuthCtl_LoginFlow(t *testing.T) {
	r := setupAuthCtlRouter(t)

	postJSON(r, "/api/auth/register", gin.H{"email": "a@b.com", "password": "password1"})

	w := postJSON(r, "/api/auth/login", gin.H{"email": "a@b.com", "password": "password1"})
	if w.Code != http.StatusOK {
		t.Fatalf("登录期望 200 实际 %d: %s", w.Code, w.Body.String())
	}

	w = postJSON(r, "/api/auth/login", gin.H{"email": "a@b.com", "password": "wrong-pass"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("密码错误期望 401 实际 %d", w.Code)
	}
}

func TestAuthCtl_Verify(t *testing.T) {
	r := setupAuthCtlRouter(t)

	w := postJSON(r, "/api/auth/register", gin.H{"email": "a@b.com", "password": "password1"})
	var reg struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &reg)

	w = postJSON(r, "/api/auth/verify", gin.H{"token": reg.Token})
	if w.Code != http.StatusOK {
		t.Fatalf("校验期望 200 实际 %d: %s", w.Code, w.Body.String())
	}

	w = postJSON(r, "/api/auth/verify", gin.H{"token": "bad.token"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("非法 Token 期望 401 实际 %d", w.Code)
	}
}
