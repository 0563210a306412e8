package assistant

import "context"

// Image is an inline image attached to a request.
type Image struct {
	Data     []byte
	MIMEType string
}

// CompletionRequest is one call to the model: a system instruction, the prior
// conversation, and the new user content.
type CompletionRequest struct {
	SystemInstruction string
	History           []Entry
	Text              string
	Image             *Image
}

// CompletionService generates a reply for a request.
// This interface enables mocking the model in tests.
type CompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
