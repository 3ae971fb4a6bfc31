package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tecbunny/tecbunny-backend/api/responses"
	"github.com/tecbunny/tecbunny-backend/pkg/config"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

const readyCheckTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive answers as soon as the process accepts connections.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TecBunny-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the backing stores the API cannot serve without.
// GCS and BigQuery are reported but do not fail readiness: the core
// order path works while they are degraded.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache, storage, warehouse pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TecBunny-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		ready := true

		for name, p := range map[string]pinger{"database": db, "redis": cache} {
			if err := ping(ctx, p); err != nil {
				logg.Error(ctx, "readiness check failed: "+name, err)
				checks[name] = "down"
				ready = false
				continue
			}
			checks[name] = "up"
		}
		for name, p := range map[string]pinger{"gcs": storage, "bigquery": warehouse} {
			if err := ping(ctx, p); err != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name}), "readiness check degraded")
				checks[name] = "degraded"
				continue
			}
			checks[name] = "up"
		}

		if !ready {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(map[string]any{"checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

func ping(ctx context.Context, p pinger) error {
	if p == nil {
		return nil
	}
	return p.Ping(ctx)
}
