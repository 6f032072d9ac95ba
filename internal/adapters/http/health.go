package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const readyTimeout = 3 * time.Second

var errDisconnected = errors.New("disconnected")

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "healthy",
			"uptime":       time.Since(startedAt).Round(time.Second).String(),
			"version":      apiVersion,
			"hazardActive": deps.Hazards != nil && deps.Hazards.Latest() != nil,
		})
	}
}

// probe is one backing-service check. A nil run means not configured.
type probe struct {
	name string
	run  func(ctx context.Context) error
}

func readinessProbes(deps *Dependencies) []probe {
	probes := []probe{
		{name: "database"},
		{name: "nats"},
		{name: "cache"},
	}
	if deps.DB != nil {
		probes[0].run = deps.DB.Ping
	}
	if deps.NATS != nil {
		probes[1].run = func(context.Context) error {
			if !deps.NATS.IsConnected() {
				return errDisconnected
			}
			return nil
		}
	}
	if deps.Cache != nil {
		probes[2].run = deps.Cache.Ping
	}
	return probes
}

// ReadyHandler runs the backing-service probes in parallel. A service that is
// not configured does not make the process unready; one that fails does. The
// wildfire entry is informational.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	probes := readinessProbes(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		var mu sync.Mutex
		checks := make(map[string]string, len(probes)+1)
		ready := true

		var g errgroup.Group
		for _, p := range probes {
			if p.run == nil {
				checks[p.name] = "not configured"
				continue
			}
			g.Go(func() error {
				err := p.run(ctx)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case errors.Is(err, errDisconnected):
					checks[p.name] = "disconnected"
					ready = false
				case err != nil:
					checks[p.name] = "error: " + err.Error()
					ready = false
				default:
					checks[p.name] = "ok"
				}
				return nil
			})
		}
		_ = g.Wait()

		checks["wildfire"] = "empty"
		if deps.Wildfire != nil && deps.Wildfire.Status().Loaded {
			checks["wildfire"] = "loaded"
		}

		status, code := "ready", fiber.StatusOK
		if !ready {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
