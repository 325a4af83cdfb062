// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package api

import (
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	driver "go.mongodb.org/mongo-driver/mongo"

	"github.com/breachlab/breachlab/internal/platform/constants"
	"github.com/breachlab/breachlab/internal/platform/mongo"
	"github.com/breachlab/breachlab/internal/platform/redis"
	"github.com/breachlab/breachlab/internal/platform/respond"
)

// healthHandler serves the operational probes.
type healthHandler struct {
	database *driver.Database
	cache    *goredis.Client
}

func newHealthHandler(database *driver.Database, cache *goredis.Client) *healthHandler {
	return &healthHandler{database: database, cache: cache}
}

// liveness reports that the process is up. It never touches dependencies:
// a dead database must not get the process restarted.
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]interface{}{
		constants.FieldStatus: "ok",
	})
}

// readiness reports whether the server can do real work: both backing
// stores must answer a ping.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	checks := map[string]string{
		"mongo": "ok",
		"redis": "ok",
	}
	healthy := true

	if err := mongo.Ping(request.Context(), handler.database); err != nil {
		checks["mongo"] = "unreachable"
		healthy = false
	}
	if err := redis.Ping(request.Context(), handler.cache); err != nil {
		checks["redis"] = "unreachable"
		healthy = false
	}

	status := http.StatusOK
	statusText := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		statusText = "degraded"
	}

	respond.JSON(writer, status, respond.Envelope{
		Success: healthy,
		Data: map[string]interface{}{
			constants.FieldStatus: statusText,
			constants.FieldChecks: checks,
		},
	})
}
