package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"markui/internal/retention"
)

// RetentionManager is the control surface the storage endpoints need from
// the retention subsystem. An error from either method means the document
// registry was unreachable.
type RetentionManager interface {
	TriggerCleanup(ctx context.Context) (*retention.Report, error)
	Status(ctx context.Context) (*retention.Status, error)
}

// StorageInfo reports current usage against the configured limits plus the
// most recent cleanup pass.
//
// @Summary Storage usage and limits
// @Success 200 {object} retention.Status
// @Router /storage/info [get]
func StorageInfo(mgr RetentionManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, err := mgr.Status(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.JSON(status)
	}
}

// TriggerCleanup runs one synchronous cleanup pass. If a pass is already
// running the response reports skipped=true rather than blocking.
//
// @Summary Trigger a storage cleanup pass
// @Success 200 {object} retention.Report
// @Router /storage/cleanup [post]
func TriggerCleanup(mgr RetentionManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := mgr.TriggerCleanup(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.JSON(report)
	}
}
