// Package httpx is the single JSON write path for handlers. Middleware
// registers body transforms on the request; Respond applies them before
// serialization.
package httpx

import (
	"github.com/gin-gonic/gin"
)

const transformsKey = "httpx.transforms"

// Transform rewrites an outbound body. It must not mutate its input.
type Transform func(body any) any

// AddTransform registers t for the current request. Transforms run in
// registration order.
func AddTransform(c *gin.Context, t Transform) {
	c.Set(transformsKey, append(transforms(c), t))
}

func transforms(c *gin.Context) []Transform {
	v, ok := c.Get(transformsKey)
	if !ok {
		return nil
	}
	ts, _ := v.([]Transform)
	return ts
}

// Respond writes body as JSON after applying the request's transforms.
func Respond(c *gin.Context, status int, body any) {
	for _, t := range transforms(c) {
		body = t(body)
	}
	c.JSON(status, body)
}

// Error writes {"error": msg}.
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// Abort writes body with status and stops the handler chain.
func Abort(c *gin.Context, status int, body gin.H) {
	c.AbortWithStatusJSON(status, body)
}
