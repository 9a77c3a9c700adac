package ai

import "context"

// Request is one evaluation call: a fixed instruction plus a per-call payload.
type Request struct {
	Instruction string
	Payload     string
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
