package pkg

import gonanoid "github.com/matoous/go-nanoid/v2"

const nanoidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"

// NewRequestId is a short nanoid used to correlate the log lines of one
// request.
func NewRequestId() string {
	id, err := gonanoid.Generate(nanoidAlphabet, 12)
	if err != nil {
		return "unknown"
	}
	return id
}
