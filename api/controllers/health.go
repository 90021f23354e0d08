package controllers

import (
	"net/http"

	"github.com/angelmondragon/raamul-storefront/api/responses"
	"github.com/angelmondragon/raamul-storefront/pkg/config"
)

const envHeader = "X-Raamul-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}
