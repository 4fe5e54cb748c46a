package ginutils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

func IntQuery(c *gin.Context, query string, defaultVal int) int {
	valStr := c.DefaultQuery(query, fmt.Sprintf("%v", defaultVal))
	val, err := strconv.Atoi(valStr)
	if err != nil {
		val = defaultVal
	}
	return val
}

// OptionalIntQuery returns nil when the query parameter is missing or not a
// number.
func OptionalIntQuery(c *gin.Context, query string) *int {
	valStr, ok := c.GetQuery(query)
	if !ok {
		return nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return nil
	}
	return &val
}

func OptionalInt64Query(c *gin.Context, query string) *int64 {
	valStr, ok := c.GetQuery(query)
	if !ok {
		return nil
	}
	val, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		return nil
	}
	return &val
}

func StringQuery(c *gin.Context, query string, defaultVal string) string {
	val := c.DefaultQuery(query, defaultVal)
	return val
}

// IntParam parses a path parameter. On failure it aborts the request with 400
// and reports false.
func IntParam(c *gin.Context, name string) (int, bool) {
	val, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(400, gin.H{"error": fmt.Sprintf("invalid %v: %q", name, c.Param(name))})
		return 0, false
	}
	return val, true
}
