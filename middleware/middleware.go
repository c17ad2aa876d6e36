package middleware

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ewa-agent/agent"
)

// Context represents one oracle call travelling through the chain.
type Context struct {
	// Request sent to the oracle
	Request *agent.GenerateRequest

	// Response from the oracle, nil until the final handler ran
	Response *agent.GenerateResponse

	// Metadata for passing data between middlewares
	Metadata map[string]any

	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context, req *agent.GenerateRequest) *Context {
	return &Context{
		Request:  req,
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// SetContext replaces the underlying context, e.g. to attach a deadline or span.
func (c *Context) SetContext(ctx context.Context) {
	c.context = ctx
}

// Middleware intercepts oracle calls.
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic and passes control on through next.
	// Returning an error stops the chain.
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// MiddlewareChain represents a sequence of middleware to be executed
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *MiddlewareChain {
	chain := &MiddlewareChain{}
	for _, m := range middlewares {
		chain.Add(m)
	}
	return chain
}

// Add appends a middleware to the chain; nil entries are skipped.
func (c *MiddlewareChain) Add(m Middleware) *MiddlewareChain {
	if m != nil {
		c.middlewares = append(c.middlewares, m)
	}
	return c
}

// Len reports how many middlewares are registered.
func (c *MiddlewareChain) Len() int {
	return len(c.middlewares)
}

// Execute runs all middlewares in the chain
func (c *MiddlewareChain) Execute(ctx *Context, finalHandler Handler) error {
	return c.executeMiddleware(ctx, 0, finalHandler)
}

func (c *MiddlewareChain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		return finalHandler(ctx)
	}
	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}
	return c.middlewares[index].Execute(ctx, nextHandler)
}

// Wrap returns an LLMClient that runs every call through the chain before
// reaching llm. The first middleware is the outermost one.
func Wrap(llm agent.LLMClient, middlewares ...Middleware) agent.LLMClient {
	chain := NewChain(middlewares...)
	if chain.Len() == 0 {
		return llm
	}
	return &wrapped{llm: llm, chain: chain}
}

type wrapped struct {
	llm   agent.LLMClient
	chain *MiddlewareChain
}

func (w *wrapped) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	mctx := NewContext(ctx, req)
	err := w.chain.Execute(mctx, func(c *Context) error {
		resp, err := w.llm.Generate(c.Context(), c.Request)
		if err != nil {
			return err
		}
		if resp == nil {
			return fmt.Errorf("%w: empty oracle response", ErrMiddlewareChainFailed)
		}
		c.Response = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mctx.Response, nil
}
