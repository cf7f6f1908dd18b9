// Package llm provides the narrow completion capability that model-backed
// planners depend on.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "os"
//
//	    "github.com/entrhq/pilot/pkg/llm"
//	    "github.com/entrhq/pilot/pkg/llm/openai"
//	)
//
//	func main() {
//	    client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"),
//	        openai.WithModel("gpt-4o"))
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    text, err := client.Complete(context.Background(), &llm.CompletionRequest{
//	        System: "You are terse.",
//	        User:   "Say hello.",
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//	    fmt.Println(text)
//	}
package llm

import "context"

// CompletionRequest carries one prompt pair to a completion backend.
// ImageDataURL, when non-empty, is a data URL attached to the user turn;
// backends that cannot accept images must return an error rather than
// silently dropping it.
type CompletionRequest struct {
	System       string
	User         string
	ImageDataURL string
}

// Completer is the injected remote-completion capability.
//
// Implementations handle transport, authentication, and timeouts for one
// inference backend and return the raw response text. Planners own what is
// done with that text; Completers own nothing beyond "given a prompt,
// produce text". All backend failures (transport, auth, rate limit, timeout,
// non-2xx status) surface as a single error kind here: a non-nil error.
type Completer interface {
	// Name returns the backend identifier, used in logs and error messages.
	Name() string

	// Complete sends the prompt pair and returns the raw response text.
	// It blocks until the backend responds or ctx is done.
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}
