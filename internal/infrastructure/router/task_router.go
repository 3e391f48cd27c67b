package router

import (
	"fmt"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/usecase"
	"fare-pipeline/pkg/logger"
)

// KindRouter routes schedule tasks to handlers based on task kind
type KindRouter struct {
	handlers []usecase.TaskHandler
	logger   logger.Logger
}

// NewKindRouter creates a new kind router
func NewKindRouter(logger logger.Logger) *KindRouter {
	return &KindRouter{
		handlers: make([]usecase.TaskHandler, 0),
		logger:   logger,
	}
}

// Register registers a handler. Earlier registrations win.
func (r *KindRouter) Register(handler usecase.TaskHandler) {
	r.handlers = append(r.handlers, handler)
	r.logger.Info("Registered task handler", "handler", fmt.Sprintf("%T", handler))
}

// GetHandler returns the appropriate handler for a given task kind
func (r *KindRouter) GetHandler(kind entity.TaskKind) usecase.TaskHandler {
	for _, handler := range r.handlers {
		if handler.CanHandle(kind) {
			return handler
		}
	}
	return nil
}
