package handler

import (
	"fmt"
	"net/http"
	"time"

	"contest-engine/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimiter is a fixed-window counter backed by redis. A nil client
// disables limiting entirely.
type RateLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	logger zerolog.Logger
}

func NewRateLimiter(client *redis.Client, max int, window time.Duration, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		max:    max,
		window: window,
		logger: logger,
	}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	if rl == nil || rl.client == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := c.GetHeader("X-Account-ID")
		if key == "" {
			key = c.ClientIP()
		}
		key = "ratelimit:" + key

		ctx := c.Request.Context()
		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down never takes the API down with it.
			rl.logger.Error().Err(err).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if count == 1 {
			if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
				rl.logger.Error().Err(err).Msg("failed to set rate limit window")
			}
		}

		if count > int64(rl.max) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Msg:     model.ErrRateLimited.Error(),
				Code:    "RATE_LIMITED",
				Details: fmt.Sprintf("limit is %d requests per %s", rl.max, rl.window),
			})
			return
		}
		c.Next()
	}
}
