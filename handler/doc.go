// Package handler exposes the permission engine over HTTP for
// applications that prefer wiring a router to embedding the library.
//
// The surface is read-only: evaluation, effective permission listings,
// and role previews. Mutations stay with the application's own admin
// transport, which already owns authentication and actor identity.
//
//	h := handler.New(engine,
//		handler.WithLogger(log),
//		handler.WithHealthcheck("postgres", pg.Healthcheck(pool)),
//	)
//	http.ListenAndServe(":8080", h.Router())
package handler
