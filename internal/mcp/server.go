package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nick-dorsch/planner/internal/planner"
	"github.com/nick-dorsch/planner/internal/stats"
	"github.com/nick-dorsch/planner/internal/storage"
	"github.com/nick-dorsch/planner/internal/tasks"
	"github.com/nick-dorsch/planner/pkg/models"
)

// NewServer creates a new MCP server.
func NewServer(svc *planner.Service) *server.MCPServer {
	s := server.NewMCPServer("Planner", "0.1.0")

	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a new top-level task."),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("due_date", mcp.Description("Due date (YYYY-MM-DD)")),
		mcp.WithString("category", mcp.Description("personal|work (defaults to personal)")),
		mcp.WithString("priority", mcp.Description("low|medium|high (defaults to medium)")),
	), createTaskHandler(svc))

	s.AddTool(mcp.NewTool("add_subtask",
		mcp.WithDescription("Add a subtask under an existing task. Category and priority default to the parent's."),
		mcp.WithString("parent_id", mcp.Description("Parent task id"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Subtask title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Subtask description")),
		mcp.WithString("due_date", mcp.Description("Due date (YYYY-MM-DD)")),
		mcp.WithString("category", mcp.Description("personal|work")),
		mcp.WithString("priority", mcp.Description("low|medium|high")),
	), addSubtaskHandler(svc))

	s.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Update fields of a task at any depth. Omitted fields are left alone."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("due_date", mcp.Description("New due date (YYYY-MM-DD, empty to clear)")),
		mcp.WithString("category", mcp.Description("New category")),
		mcp.WithString("priority", mcp.Description("New priority")),
		mcp.WithBoolean("completed", mcp.Description("Set completion without cascading")),
	), updateTaskHandler(svc))

	s.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Toggle completion. Completing a task also completes its direct subtasks."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), toggleTaskHandler(svc))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task and all of its subtasks."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), deleteTaskHandler(svc))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks in a period window, optionally filtered by status and search text."),
		mcp.WithString("period", mcp.Description("all|week|month|year (defaults to all)")),
		mcp.WithString("date", mcp.Description("Any day inside the window (YYYY-MM-DD, defaults to today)")),
		mcp.WithString("status", mcp.Description("all|completed|pending")),
		mcp.WithString("search", mcp.Description("Case-insensitive text to match in titles and descriptions")),
	), listTasksHandler(svc))

	s.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Get completion statistics for all tasks."),
	), getStatsHandler(svc))

	s.AddTool(mcp.NewTool("export_csv",
		mcp.WithDescription("Export every task as CSV."),
	), exportCSVHandler(svc))

	s.AddTool(mcp.NewTool("import_csv",
		mcp.WithDescription("Replace all tasks with the contents of a CSV export."),
		mcp.WithString("csv", mcp.Description("CSV text with a header row"), mcp.Required()),
	), importCSVHandler(svc))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// syncWarning separates a failed remote push, which leaves the local save in
// place, from a failed operation.
func syncWarning(err error) (string, error) {
	var remote *storage.RemoteError
	if errors.As(err, &remote) {
		return "Warning: saved locally but " + remote.Error(), nil
	}
	return "", err
}

func withWarning(res *mcp.CallToolResult, warning string) (*mcp.CallToolResult, error) {
	if warning != "" && !res.IsError {
		res.Content = append(res.Content, mcp.NewTextContent(warning))
	}
	return res, nil
}

func newTaskFromRequest(request mcp.CallToolRequest) tasks.NewTask {
	nt := tasks.NewTask{
		Title:       mcp.ParseString(request, "title", ""),
		Description: mcp.ParseString(request, "description", ""),
		DueDate:     mcp.ParseString(request, "due_date", ""),
	}
	if c := mcp.ParseString(request, "category", ""); c != "" {
		nt.Category = models.ParseCategory(c)
	}
	if p := mcp.ParseString(request, "priority", ""); p != "" {
		nt.Priority = models.ParsePriority(p)
	}
	return nt
}

func createTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := svc.AddTask(ctx, newTaskFromRequest(request))
		warning, err := syncWarning(err)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, _ := jsonResult(t)
		return withWarning(res, warning)
	}
}

func addSubtaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		parentID := mcp.ParseString(request, "parent_id", "")

		t, err := svc.AddSubtask(ctx, parentID, newTaskFromRequest(request))
		warning, err := syncWarning(err)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, _ := jsonResult(t)
		return withWarning(res, warning)
	}
}

func updateTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		var p tasks.Patch
		args, _ := request.Params.Arguments.(map[string]any)
		if title, ok := args["title"].(string); ok {
			p.Title = &title
		}
		if description, ok := args["description"].(string); ok {
			p.Description = &description
		}
		if due, ok := args["due_date"].(string); ok {
			p.DueDate = &due
		}
		if c, ok := args["category"].(string); ok {
			category := models.ParseCategory(c)
			p.Category = &category
		}
		if pr, ok := args["priority"].(string); ok {
			priority := models.ParsePriority(pr)
			p.Priority = &priority
		}
		if completed, ok := args["completed"].(bool); ok {
			p.Completed = &completed
		}

		t, err := svc.Edit(ctx, id, p)
		warning, err := syncWarning(err)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, _ := jsonResult(t)
		return withWarning(res, warning)
	}
}

func toggleTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		t, err := svc.Toggle(ctx, id)
		warning, err := syncWarning(err)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, _ := jsonResult(t)
		return withWarning(res, warning)
	}
}

func deleteTaskHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")

		warning, err := syncWarning(svc.Delete(ctx, id))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return withWarning(mcp.NewToolResultText("Task deleted successfully"), warning)
	}
}

type listResponse struct {
	Period  string        `json:"period"`
	Label   string        `json:"label"`
	Current bool          `json:"current"`
	Tasks   []models.Task `json:"tasks"`
	Stats   stats.Stats   `json:"stats"`
}

func listTasksHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := planner.ParseQuery(
			mcp.ParseString(request, "period", ""),
			mcp.ParseString(request, "date", ""),
			mcp.ParseString(request, "status", ""),
			mcp.ParseString(request, "search", ""),
			time.Local,
		)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		v := svc.View(q)
		return jsonResult(listResponse{
			Period:  q.Unit.String(),
			Label:   v.Label,
			Current: v.Current,
			Tasks:   v.Tasks,
			Stats:   v.Stats,
		})
	}
}

func getStatsHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(svc.Stats())
	}
}

func exportCSVHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(svc.Export()), nil
	}
}

func importCSVHandler(svc *planner.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := mcp.ParseString(request, "csv", "")

		report, err := svc.Import(ctx, text)
		warning, err := syncWarning(err)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Imported %d rows but failed to save: %v", report.Rows, err)), nil
		}
		return withWarning(mcp.NewToolResultText(fmt.Sprintf("Imported %d rows (%d skipped, %d orphaned)",
			report.Rows, report.Skipped, len(report.Orphans))), warning)
	}
}
