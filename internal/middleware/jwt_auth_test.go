package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAuthTestRouter() *gin.Engine {
	r := gin.New()
	r.GET("/protected", JWTAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": GetUserID(c),
			"token":   GetToken(c),
		})
	})
	return r
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(42, "a@b.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@b.com" {
		t.Errorf("Claims 不对: %+v", claims)
	}

	// 有效期为签发后固定窗口
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != GetJWTConfig().TokenTTL {
		t.Errorf("有效期期望 %v 实际 %v", GetJWTConfig().TokenTTL, ttl)
	}
}

func TestParseToken_Expired(t *testing.T) {
	original := GetJWTConfig()
	SetJWTConfig(&JWTConfig{
		SecretKey: original.SecretKey,
		TokenTTL:  -time.Hour,
		Issuer:    original.Issuer,
	})
	defer SetJWTConfig(original)

	token, err := GenerateToken(1, "a@b.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := ParseToken(token); err == nil {
		t.Fatal("过期 Token 应校验失败")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(1, "a@b.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	original := GetJWTConfig()
	SetJWTConfig(&JWTConfig{SecretKey: "another-secret", TokenTTL: original.TokenTTL, Issuer: original.Issuer})
	defer SetJWTConfig(original)

	if _, err := ParseToken(token); err == nil {
		t.Fatal("密钥不匹配应校验失败")
	}
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	r := setupAuthTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("无认证头期望 401 实际 %d", w.Code)
	}

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["success"] != false {
		t.Errorf("响应应带 success:false: %v", body)
	}
}

func TestJWTAuth_BadFormat(t *testing.T) {
	r := setupAuthTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("非 Bearer 格式期望 401 实际 %d", w.Code)
	}
}

func TestJWTAuth_ValidToken(t *testing.T) {
	r := setupAuthTestRouter()

	token, err := GenerateToken(7, "a@b.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("合法 Token 期望 200 实际 %d: %s", w.Code, w.Body.String())
	}

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["user_id"].(float64) != 7 {
		t.Errorf("注入的 user_id 不对: %v", body)
	}
	// 原始 token 留在 Context，供中转转发
	if body["token"] != token {
		t.Errorf("原始 Token 应注入 Context")
	}
}

func TestJWTAuth_TamperedToken(t *testing.T) {
	r := setupAuthTestRouter()

	token, _ := GenerateToken(7, "a@b.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("篡改 Token 期望 401 实际 %d", w.Code)
	}
}
