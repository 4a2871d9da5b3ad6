package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/taskgate/backend/api/handler"
)

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	User   *apiHandler.UserHandler
	Task   *apiHandler.TaskHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Public routes
	r.POST("/api/v1/auth/register", handlers.Auth.Register)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)

	// Protected routes
	r.GET("/api/v1/users", authMiddleware(handlers.User.ListUsers))
	r.GET("/api/v1/users/{id}", authMiddleware(handlers.User.GetUser))
	r.PUT("/api/v1/users/{id}", authMiddleware(handlers.User.UpdateUser))
	r.DELETE("/api/v1/users/{id}", authMiddleware(handlers.User.DeleteUser))
	r.PUT("/api/v1/users/{id}/permissions", authMiddleware(handlers.User.SetPermissions))

	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.ListTasks))
	r.GET("/api/v1/tasks/unassigned", authMiddleware(handlers.Task.ListUnassigned))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	return r
}
