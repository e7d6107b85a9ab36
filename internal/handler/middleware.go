package handler

import (
	"net/http"
	"strconv"
	"time"

	"contest-engine/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ctxAccountID   = "accountID"
	ctxAccountRole = "accountRole"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("requestID", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		rid, _ := c.Get("requestID")
		requestID, _ := rid.(string)

		log.Info().
			Str("request_id", requestID).
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", raw).
			Str("ip", c.ClientIP()).
			Dur("latency", latency).
			Msg("HTTP Request")
	}
}

// AuthMiddleware trusts the identity headers set by the upstream gateway.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.GetHeader("X-Account-ID")
		accountID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || accountID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Msg:  "X-Account-ID header is required",
				Code: "UNAUTHENTICATED",
			})
			return
		}

		role := model.Role(c.GetHeader("X-Account-Role"))
		if role != model.RoleAdmin {
			role = model.RoleUser
		}

		c.Set(ctxAccountID, accountID)
		c.Set(ctxAccountRole, role)
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(ctxAccountRole)
		if role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{
				Msg:  "admin role required",
				Code: "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

func accountID(c *gin.Context) int64 {
	id, _ := c.Get(ctxAccountID)
	accountID, _ := id.(int64)
	return accountID
}
