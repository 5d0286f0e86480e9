package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/config"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
	authsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/auth"
	enfsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/enforcement"
	permsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/permissions"
	ratesvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/rate"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	Engine      *enfsvc.Engine
	Permissions *permsvc.Service
	RateLimiter *ratesvc.Limiter
	JWTManager  *authsvc.JWTManager
	Logger      *zap.Logger
	Config      config.Config
}

var typedActionRoutes = []enums.ActionType{
	enums.ActionBan,
	enums.ActionUnban,
	enums.ActionKick,
	enums.ActionMute,
	enums.ActionUnmute,
	enums.ActionPromote,
	enums.ActionDemote,
	enums.ActionWarn,
	enums.ActionPin,
	enums.ActionUnpin,
	enums.ActionDeleteMessage,
	enums.ActionLockdown,
	enums.ActionCleanupSpam,
	enums.ActionDeleteUserMessages,
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	enforcementHandler := handlers.NewEnforcementHandler(deps.Engine, deps.Permissions)
	permissionsHandler := handlers.NewPermissionsHandler(deps.Permissions)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	rateMW := RateLimitMiddleware(deps.RateLimiter, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v2/groups/{groupID}", func(r chi.Router) {
		r.Use(authMW)

		r.Route("/enforcement", func(r chi.Router) {
			r.With(rateMW).Post("/execute", enforcementHandler.Execute)
			r.With(rateMW).Post("/batch", enforcementHandler.Batch)
			for _, actionType := range typedActionRoutes {
				r.With(rateMW).Post("/"+string(actionType), enforcementHandler.Typed(actionType))
			}
			r.Get("/stats", enforcementHandler.Stats)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/violations", enforcementHandler.Violations)
			r.Get("/permissions", permissionsHandler.Get)
			r.Post("/permissions", permissionsHandler.Set)
			r.Post("/permissions/toggle", permissionsHandler.Toggle)
		})
	})
}
