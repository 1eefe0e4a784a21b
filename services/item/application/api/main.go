package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/lostfound/pkg/app"
	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/services/item/application/handlers"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// ItemRoutes registers item and timeline endpoints on the provided chi router.
// The session sign-in endpoint trusts the caller's user id, so it is only
// mounted outside production.
func ItemRoutes(r chi.Router, a *app.Application, svcs *appsvcs.Services) {
	log := a.Logger.With("service", "item")

	if a.Config.Environment != config.EnvProduction {
		sh := handlers.NewSessionHandler(a.SessionStore, svcs.Timelines, log)
		r.Route("/session", func(r chi.Router) {
			r.Post("/", sh.SignIn)
			r.Delete("/", sh.SignOut)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(a.SessionStore, log))

		ih := handlers.NewItemHandler(svcs)
		r.Route("/items", func(r chi.Router) {
			r.Post("/", ih.Create)
			r.Get("/{id}", ih.Get)
			r.Get("/{id}/images", ih.Images)
		})

		th := handlers.NewTimelineHandler(svcs, a.SessionStore, log)
		r.Route("/timeline", func(r chi.Router) {
			r.Put("/area", th.SetArea)
			r.Post("/pages", th.NextPage)
			r.Post("/thumbnails", th.NextThumbnails)
			r.Get("/items", th.ListItems)
			r.Get("/filters", th.Filters)
			r.Put("/filters/{kind}", th.ApplyFilter)
			r.Delete("/filters/{kind}", th.ClearFilter)
			r.Post("/reset", th.Reset)
			r.Post("/mine", th.Mine)
			r.Get("/changes", th.Changes)
		})
	})
}
