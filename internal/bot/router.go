package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// Handler processes one telegram update.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Router dispatches commands, callbacks and plain messages through the
// middleware chain. Non-command traffic falls through to the default
// handlers, which hand the update to the dialog flow.
type Router struct {
	mu              sync.RWMutex
	commands        map[string]Handler
	callbackHandler Handler
	textHandler     Handler
	middlewares     []Middleware
	log             *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]Handler),
		middlewares: make([]Middleware, 0),
		log:         log,
	}
}

// RegisterCommand registers a handler for a bot command.
func (r *Router) RegisterCommand(cmd string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// SetCallbackHandler sets the handler for inline callbacks.
func (r *Router) SetCallbackHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbackHandler = h
}

// SetTextHandler sets the handler for non-command text messages.
func (r *Router) SetTextHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textHandler = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	if callback := c.Callback(); callback != nil {
		r.mu.RLock()
		handler := r.callbackHandler
		r.mu.RUnlock()

		if handler == nil {
			r.log.Info("no callback handler configured", "data", callback.Data)
			return nil
		}
		return r.executeHandler(handler, c)
	}

	text := c.Text()
	if strings.HasPrefix(text, "/") {
		if handler := r.getCommandHandler(commandName(text)); handler != nil {
			return r.executeHandler(handler, c)
		}
	}

	r.mu.RLock()
	handler := r.textHandler
	r.mu.RUnlock()

	if handler == nil {
		return nil
	}
	return r.executeHandler(handler, c)
}

func (r *Router) executeHandler(h Handler, c telebot.Context) error {
	wrapped := r.applyMiddlewares(h)
	if wrapped == nil {
		return nil
	}
	return wrapped(c)
}

func (r *Router) getCommandHandler(cmd string) Handler {
	r.mu.RLock()
	handler := r.commands[cmd]
	r.mu.RUnlock()
	return handler
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h Handler) Handler {
	if h == nil {
		return nil
	}

	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}

// commandName strips bot-name suffixes like /start@RABOTA100_150_BOT.
func commandName(text string) string {
	cmd := strings.Fields(text)[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return cmd
}
