package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/evacguide/internal/adapters/postgres"
	"github.com/samirrijal/evacguide/internal/adapters/valkey"
	"github.com/samirrijal/evacguide/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// NATS, DB and Cache are optional and only consulted by /v1/ready and /ws.
type Dependencies struct {
	Hazards  *usecases.HazardService
	Shelters *usecases.ShelterService
	Routes   *usecases.RouteService
	Wildfire *usecases.WildfireService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
