// Package mcp implements the Model Context Protocol server for simpleevents.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/simpleevents/internal/models"
	"github.com/ajitpratap0/simpleevents/internal/timeline"
)

// Server wraps an MCPServer with the timeline service.
type Server struct {
	mcp    *mcpserver.MCPServer
	svc    *timeline.Service
	logger *slog.Logger
	now    func() time.Time
}

// NewServer creates a new MCP server. If svc is nil, every tool call
// returns an error result instead of panicking.
func NewServer(svc *timeline.Service, logger *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	mcpSrv := mcpserver.NewMCPServer(
		"simpleevents",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildListTimelinesTool(), s.handleListTimelines)
	mcpSrv.AddTool(buildGetTimelineTool(), s.handleGetTimeline)
	mcpSrv.AddTool(buildCreateTimelineTool(), s.handleCreateTimeline)
	mcpSrv.AddTool(buildDeleteTimelineTool(), s.handleDeleteTimeline)
	mcpSrv.AddTool(buildCreateEventTool(), s.handleCreateEvent)
	mcpSrv.AddTool(buildUpdateEventTool(), s.handleUpdateEvent)
	mcpSrv.AddTool(buildDeleteEventTool(), s.handleDeleteEvent)
	mcpSrv.AddTool(buildCreateEventTypeTool(), s.handleCreateEventType)
	mcpSrv.AddTool(buildUpdateEventTypeTool(), s.handleUpdateEventType)
	mcpSrv.AddTool(buildDeleteEventTypeTool(), s.handleDeleteEventType)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleListTimelines is the exported handler for the "list_timelines" tool.
// The Handle* wrappers are exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleListTimelines(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleListTimelines(ctx, req)
}

// HandleGetTimeline is the exported handler for the "get_timeline" tool.
func (s *Server) HandleGetTimeline(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetTimeline(ctx, req)
}

// HandleCreateTimeline is the exported handler for the "create_timeline" tool.
func (s *Server) HandleCreateTimeline(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCreateTimeline(ctx, req)
}

// HandleDeleteTimeline is the exported handler for the "delete_timeline" tool.
func (s *Server) HandleDeleteTimeline(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDeleteTimeline(ctx, req)
}

// HandleCreateEvent is the exported handler for the "create_event" tool.
func (s *Server) HandleCreateEvent(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCreateEvent(ctx, req)
}

// HandleUpdateEvent is the exported handler for the "update_event" tool.
func (s *Server) HandleUpdateEvent(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUpdateEvent(ctx, req)
}

// HandleDeleteEvent is the exported handler for the "delete_event" tool.
func (s *Server) HandleDeleteEvent(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDeleteEvent(ctx, req)
}

// HandleCreateEventType is the exported handler for the "create_event_type" tool.
func (s *Server) HandleCreateEventType(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCreateEventType(ctx, req)
}

// HandleUpdateEventType is the exported handler for the "update_event_type" tool.
func (s *Server) HandleUpdateEventType(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUpdateEventType(ctx, req)
}

// HandleDeleteEventType is the exported handler for the "delete_event_type" tool.
func (s *Server) HandleDeleteEventType(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleDeleteEventType(ctx, req)
}

// HandleStats is the exported handler for the "stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// toolError turns a service error into a tool error result. Rule violations
// and missing documents keep their message; storage failures are prefixed with op.
func (s *Server) toolError(op string, err error) *mcpgo.CallToolResult {
	var re *timeline.RuleError
	if errors.As(err, &re) {
		return mcpgo.NewToolResultError(re.Message)
	}
	s.logger.Error("mcp: tool failed", "op", op, "error", err)
	return mcpgo.NewToolResultErrorf("%s failed: %s", op, err.Error())
}

// requireArg returns the trimmed string argument or an error result when it is empty.
func requireArg(req mcpgo.CallToolRequest, name string) (string, *mcpgo.CallToolResult) {
	v := strings.TrimSpace(req.GetString(name, ""))
	if v == "" {
		return "", mcpgo.NewToolResultErrorf("%s is required and must not be empty", name)
	}
	return v, nil
}

// parseTime reads a timestamp argument, falling back to now when it is absent.
func (s *Server) parseTime(req mcpgo.CallToolRequest, name string) (time.Time, *mcpgo.CallToolResult) {
	raw := strings.TrimSpace(req.GetString(name, ""))
	if raw == "" {
		return s.now(), nil
	}
	t, err := models.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, mcpgo.NewToolResultErrorf("invalid %s %q: use RFC 3339, YYYY-MM-DDTHH:MM:SS, or YYYY-MM-DD", name, raw)
	}
	return t, nil
}

// --- tool definitions ---

func buildListTimelinesTool() mcpgo.Tool {
	return mcpgo.NewTool("list_timelines",
		mcpgo.WithDescription("List every timeline with its events and event types."),
	)
}

func buildGetTimelineTool() mcpgo.Tool {
	return mcpgo.NewTool("get_timeline",
		mcpgo.WithDescription("Get one timeline by ID."),
		mcpgo.WithString("id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the timeline"),
		),
	)
}

func buildCreateTimelineTool() mcpgo.Tool {
	return mcpgo.NewTool("create_timeline",
		mcpgo.WithDescription("Create an empty timeline."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("Display name of the timeline"),
		),
		mcpgo.WithString("description",
			mcpgo.Description("Free-form description"),
		),
	)
}

func buildDeleteTimelineTool() mcpgo.Tool {
	return mcpgo.NewTool("delete_timeline",
		mcpgo.WithDescription("Delete a timeline and everything in it. Deleting a missing timeline succeeds."),
		mcpgo.WithString("id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the timeline to delete"),
		),
	)
}

func buildCreateEventTool() mcpgo.Tool {
	return mcpgo.NewTool("create_event",
		mcpgo.WithDescription("Add an event to a timeline."),
		mcpgo.WithString("timeline_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the timeline"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Name of the event type"),
		),
		mcpgo.WithString("note",
			mcpgo.Description("Free-form note"),
		),
		mcpgo.WithString("time",
			mcpgo.Description("When the event happened: RFC 3339, zone-less date-time (UTC), or date (default: now)"),
		),
	)
}

func buildUpdateEventTool() mcpgo.Tool {
	return mcpgo.NewTool("update_event",
		mcpgo.WithDescription("Replace the note, type and time of an event."),
		mcpgo.WithString("timeline_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the timeline"),
		),
		mcpgo.WithString("event_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the event"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Name of the event type"),
		),
		mcpgo.WithString("note",
			mcpgo.Description("Free-form note"),
		),
		mcpgo.WithString("time",
			mcpgo.Description("When the event happened: RFC 3339, zone-less date-time (UTC), or date (default: now)"),
		),
	)
}

func buildDeleteEventTool() mcpgo.Tool {
	return mcpgo.NewTool("delete_event",
		mcpgo.WithDescription("Delete an event from a timeline."),
		mcpgo.WithString("timeline_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the timeline"),
		),
		mcpgo.WithString("event_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the event"),
		),
	)
}

func buildCreateEventTypeTool() mcpgo.Tool {
	return mcpgo.NewTool("create_event_type",
		mcpgo.WithDescription("Add an event type to a timeline. Names are unique per timeline."),
		mcpgo.WithString("timeline_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the timeline"),
		),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("Event type name"),
		),
		mcpgo.WithString("color",
			mcpgo.Description("Display color, e.g. #3B82F6"),
		),
	)
}

func buildUpdateEventTypeTool() mcpgo.Tool {
	return mcpgo.NewTool("update_event_type",
		mcpgo.WithDescription("Rename or recolor an event type. Events of the type follow a rename."),
		mcpgo.WithString("timeline_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the timeline"),
		),
		mcpgo.WithString("old_name",
			mcpgo.Required(),
			mcpgo.Description("Current event type name"),
		),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("New event type name"),
		),
		mcpgo.WithString("color",
			mcpgo.Description("New display color"),
		),
	)
}

func buildDeleteEventTypeTool() mcpgo.Tool {
	return mcpgo.NewTool("delete_event_type",
		mcpgo.WithDescription("Delete an event type that no event uses."),
		mcpgo.WithString("timeline_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the timeline"),
		),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("Event type name"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Get totals of timelines, events and event types, with per-type event counts."),
	)
}

// --- tool handlers ---

func (s *Server) handleListTimelines(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	tls, err := s.svc.ListTimelines(ctx)
	if err != nil {
		return s.toolError("list", err), nil
	}
	return toolResultJSON(map[string]any{"timelines": tls})
}

func (s *Server) handleGetTimeline(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	id, errRes := requireArg(req, "id")
	if errRes != nil {
		return errRes, nil
	}
	tl, err := s.svc.GetTimeline(ctx, id)
	if err != nil {
		return s.toolError("get", err), nil
	}
	return toolResultJSON(tl)
}

func (s *Server) handleCreateTimeline(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	name, errRes := requireArg(req, "name")
	if errRes != nil {
		return errRes, nil
	}
	tl, err := s.svc.CreateTimeline(ctx, models.Timeline{
		Name:        name,
		Description: req.GetString("description", ""),
	})
	if err != nil {
		return s.toolError("create timeline", err), nil
	}
	s.logger.Info("mcp: created timeline", "timeline_id", tl.ID)
	return toolResultJSON(tl)
}

func (s *Server) handleDeleteTimeline(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	id, errRes := requireArg(req, "id")
	if errRes != nil {
		return errRes, nil
	}
	if err := s.svc.DeleteTimeline(ctx, id); err != nil {
		return s.toolError("delete timeline", err), nil
	}
	return toolResultJSON(map[string]any{"deleted": true})
}

// eventArgs builds an event draft from the type, note and time arguments.
func (s *Server) eventArgs(req mcpgo.CallToolRequest) (models.Event, *mcpgo.CallToolResult) {
	at, errRes := s.parseTime(req, "time")
	if errRes != nil {
		return models.Event{}, errRes
	}
	return models.Event{
		Type: req.GetString("type", ""),
		Note: req.GetString("note", ""),
		Time: at,
	}, nil
}

func (s *Server) handleCreateEvent(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	timelineID, errRes := requireArg(req, "timeline_id")
	if errRes != nil {
		return errRes, nil
	}
	draft, errRes := s.eventArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	ev, err := s.svc.CreateEvent(ctx, timelineID, draft)
	if err != nil {
		return s.toolError("create event", err), nil
	}
	return toolResultJSON(ev)
}

func (s *Server) handleUpdateEvent(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	timelineID, errRes := requireArg(req, "timeline_id")
	if errRes != nil {
		return errRes, nil
	}
	eventID, errRes := requireArg(req, "event_id")
	if errRes != nil {
		return errRes, nil
	}
	draft, errRes := s.eventArgs(req)
	if errRes != nil {
		return errRes, nil
	}
	ev, err := s.svc.UpdateEvent(ctx, timelineID, eventID, draft)
	if err != nil {
		return s.toolError("update event", err), nil
	}
	return toolResultJSON(ev)
}

func (s *Server) handleDeleteEvent(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	timelineID, errRes := requireArg(req, "timeline_id")
	if errRes != nil {
		return errRes, nil
	}
	eventID, errRes := requireArg(req, "event_id")
	if errRes != nil {
		return errRes, nil
	}
	if err := s.svc.DeleteEvent(ctx, timelineID, eventID); err != nil {
		return s.toolError("delete event", err), nil
	}
	return toolResultJSON(map[string]any{"deleted": true})
}

func (s *Server) handleCreateEventType(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	timelineID, errRes := requireArg(req, "timeline_id")
	if errRes != nil {
		return errRes, nil
	}
	// The name is passed through untrimmed so the service applies its own
	// empty-name rule and message.
	et, err := s.svc.CreateEventType(ctx, timelineID, models.EventType{
		Name:  req.GetString("name", ""),
		Color: req.GetString("color", ""),
	})
	if err != nil {
		return s.toolError("create event type", err), nil
	}
	return toolResultJSON(et)
}

func (s *Server) handleUpdateEventType(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	timelineID, errRes := requireArg(req, "timeline_id")
	if errRes != nil {
		return errRes, nil
	}
	oldName := req.GetString("old_name", "")
	et, err := s.svc.UpdateEventType(ctx, timelineID, oldName, models.EventType{
		Name:  req.GetString("name", ""),
		Color: req.GetString("color", ""),
	})
	if err != nil {
		return s.toolError("update event type", err), nil
	}
	return toolResultJSON(et)
}

func (s *Server) handleDeleteEventType(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	timelineID, errRes := requireArg(req, "timeline_id")
	if errRes != nil {
		return errRes, nil
	}
	if err := s.svc.DeleteEventType(ctx, timelineID, req.GetString("name", "")); err != nil {
		return s.toolError("delete event type", err), nil
	}
	return toolResultJSON(map[string]any{"deleted": true})
}

func (s *Server) handleStats(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.svc == nil {
		return mcpgo.NewToolResultError("timeline service is unavailable"), nil
	}
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return s.toolError("stats", err), nil
	}
	return toolResultJSON(stats)
}
