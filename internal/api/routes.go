package api

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the template, history and batch endpoints on r.
// The caller decides the prefix and middleware.
func RegisterRoutes(r chi.Router, tasks *ScheduledTaskHandler, batches *BatchHandler) {
	r.Route("/groups/{groupID}/scheduled-tasks", func(r chi.Router) {
		r.Post("/", tasks.Create)
		r.Get("/", tasks.ListByGroup)
	})

	r.Route("/scheduled-tasks/{id}", func(r chi.Router) {
		r.Get("/", tasks.Get)
		r.Put("/", tasks.Update)
		r.Delete("/", tasks.Delete)
		r.Post("/pause", tasks.Pause)
		r.Post("/resume", tasks.Resume)
		r.Get("/executions", tasks.ListExecutions)
	})

	if batches != nil {
		r.Post("/batch/run", batches.Run)
	}
}
