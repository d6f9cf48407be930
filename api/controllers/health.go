package controllers

import (
	"net/http"

	"github.com/aurelion-labs/identra-backend/api/responses"
	"github.com/aurelion-labs/identra-backend/pkg/config"
	"github.com/aurelion-labs/identra-backend/pkg/db"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
	"github.com/aurelion-labs/identra-backend/pkg/redis"
)

const envHeader = "X-Identra-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx := r.Context()

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
