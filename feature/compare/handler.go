package compare

import (
	"bytes"
	"errors"
	"strings"

	"envdiff/core/diff"
	"envdiff/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for environment comparison.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the compare routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/compare")
	group.Get("/", h.HandleCompare)
	group.Get("/text", h.HandleCompareText)
	group.Get("/plan", h.HandlePlan)

	app.Get("/snapshots", h.HandleSnapshot)

	dumps := app.Group("/dumps")
	dumps.Get("/", h.HandleListDumps)
	dumps.Post("/", h.HandleSaveDump)
	dumps.Delete("/+", h.HandleRemoveDump)
}

// HandleCompare compares environments and returns the reports as JSON.
// Environments are given as repeated env parameters, or comma separated,
// checks the same way through check.
// @Summary Compare Environments
// @Description Resolves every environment and compares them against the first one. Environments may be console applications, s3:// dumps or db:<name> schemas.
// @Tags compare
// @Produce json
// @Param env query []string true "Environments, reference first" collectionFormat(multi)
// @Param check query []string false "Difference kinds (schema, api, table-perms, role-perms, api-perms)" collectionFormat(multi)
// @Success 200 {object} Comparison "Comparison reports"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /compare [get]
func (h *Handler) HandleCompare(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	result, err := h.service.Compare(c.Context(), queryList(c, "env"), queryList(c, "check"))
	if err != nil {
		l.Error("Compare failed", zap.Error(err))
		return errorResponse(c, err)
	}
	return c.JSON(result)
}

// HandleCompareText compares environments and renders the difference
// tables as plain text.
// @Summary Compare Environments (Text)
// @Description Same comparison as /compare, rendered as difference tables.
// @Tags compare
// @Produce plain
// @Param env query []string true "Environments, reference first" collectionFormat(multi)
// @Param check query []string false "Difference kinds" collectionFormat(multi)
// @Success 200 {string} string "Rendered tables"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /compare/text [get]
func (h *Handler) HandleCompareText(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	result, err := h.service.Compare(c.Context(), queryList(c, "env"), queryList(c, "check"))
	if err != nil {
		l.Error("Compare failed", zap.Error(err))
		return errorResponse(c, err)
	}

	var buf bytes.Buffer
	if err := diff.RenderAll(&buf, result.Reports); err != nil {
		return errorResponse(c, err)
	}
	if !result.Differences {
		buf.WriteString("No differences.\n")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(buf.Bytes())
}

// HandlePlan returns the operations a sync from source into the targets
// would run. Nothing is applied.
// @Summary Plan Sync
// @Description Plans the operations that would bring the targets in line with the source. Destructive operations carry their confirmation prompt.
// @Tags compare
// @Produce json
// @Param source query string true "Source environment"
// @Param target query []string true "Target environments" collectionFormat(multi)
// @Param check query []string false "Difference kinds" collectionFormat(multi)
// @Success 200 {object} SyncPlan "Planned operations"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /compare/plan [get]
func (h *Handler) HandlePlan(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	plan, err := h.service.Plan(c.Context(), c.Query("source"), queryList(c, "target"), queryList(c, "check"))
	if err != nil {
		l.Error("Plan failed", zap.Error(err))
		return errorResponse(c, err)
	}
	return c.JSON(plan)
}

// HandleSnapshot returns the snapshot behind the ref parameter without ids
// or credentials.
// @Summary Get Snapshot
// @Tags snapshots
// @Produce json
// @Param ref query string true "Environment reference"
// @Success 200 {object} snapshot.Snapshot "Snapshot without ids"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /snapshots [get]
func (h *Handler) HandleSnapshot(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	env, err := h.service.Snapshot(c.Context(), c.Query("ref"))
	if err != nil {
		l.Error("Snapshot failed", zap.String("ref", c.Query("ref")), zap.Error(err))
		return errorResponse(c, err)
	}
	return c.JSON(env)
}

// HandleListDumps lists the stored dumps.
// @Summary List Dumps
// @Tags dumps
// @Produce json
// @Success 200 {object} map[string][]string "Dump keys"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /dumps [get]
func (h *Handler) HandleListDumps(c *fiber.Ctx) error {
	keys, err := h.service.ListDumps(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Listing dumps failed", zap.Error(err))
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"dumps": keys})
}

// HandleSaveDump stores the snapshot of env under name.
// @Summary Store Dump
// @Description Resolves env and stores it, without ids or credentials, in the dump bucket.
// @Tags dumps
// @Produce json
// @Param env query string true "Environment reference"
// @Param name query string true "Dump name, .json is appended when it has no extension"
// @Success 201 {object} map[string]string "Stored"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /dumps [post]
func (h *Handler) HandleSaveDump(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	env := c.Query("env")
	if env == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "env is required"})
	}

	target, err := h.service.SaveDump(c.Context(), env, c.Query("name"))
	if err != nil {
		l.Error("Dump failed", zap.String("env", env), zap.Error(err))
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "stored", "target": target})
}

// HandleRemoveDump deletes a stored dump.
// @Summary Remove Dump
// @Tags dumps
// @Produce json
// @Param name path string true "Dump key"
// @Success 200 {object} map[string]string "Removed"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /dumps/{name} [delete]
func (h *Handler) HandleRemoveDump(c *fiber.Ctx) error {
	name := c.Params("+")
	if err := h.service.RemoveDump(c.Context(), name); err != nil {
		logger.WithRayID(h.service.logger, c).Error("Removing dump failed", zap.String("name", name), zap.Error(err))
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "removed"})
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, ErrInvalidRequest) {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// queryList collects every value of a repeated query parameter, splitting
// comma separated values.
func queryList(c *fiber.Ctx, key string) []string {
	var values []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		for _, value := range strings.Split(string(raw), ",") {
			if value = strings.TrimSpace(value); value != "" {
				values = append(values, value)
			}
		}
	}
	return values
}
