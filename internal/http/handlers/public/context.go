package public

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payline-next/internal/http/response"
	"github.com/payline-next/internal/logger"
)

const sessionCookieMaxAge = 7 * 24 * 3600

// requestLog 返回携带 request_id 的日志器
func requestLog(c *gin.Context) *zap.SugaredLogger {
	requestID := ""
	if value, ok := c.Get("request_id"); ok {
		if id, ok := value.(string); ok {
			requestID = id
		}
	}
	if requestID == "" {
		return logger.S()
	}
	return logger.SW("request_id", requestID)
}

// sessionID 读取购物会话 ID，缺失时签发新会话 cookie。
func (h *Handler) sessionID(c *gin.Context) string {
	name := strings.TrimSpace(h.Config.Session.CookieName)
	if name == "" {
		name = "payline_session"
	}
	if sid, err := c.Cookie(name); err == nil && strings.TrimSpace(sid) != "" {
		return strings.TrimSpace(sid)
	}
	sid := uuid.NewString()
	c.SetCookie(name, sid, sessionCookieMaxAge, "/", "", false, true)
	return sid
}

func respondError(c *gin.Context, code int, key string, err error) {
	appErr := response.WrapError(code, key, err)
	if err != nil {
		requestLog(c).Warnw("public_request_failed", "key", key, "error", appErr.Error())
	}
	response.Error(c, appErr.Code, appErr.Message)
}
