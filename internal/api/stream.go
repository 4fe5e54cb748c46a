package api

import (
	"context"
	"errors"
	"log"

	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/gin-gonic/gin"
)

// streamFlow writes every value of f as a server sent event named name until
// f completes or the client goes away.
func streamFlow[T any](c *gin.Context, name string, f flow.Flow[T]) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	err := f.Collect(c.Request.Context(), func(v T) error {
		c.SSEvent(name, v)
		c.Writer.Flush()
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		log.Printf("%v stream failed: %v", name, err)
		c.SSEvent("error", err.Error())
	}
	c.SSEvent("sse-close", "sse-close")
	c.Writer.Flush()
}
