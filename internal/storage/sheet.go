package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nick-dorsch/planner/internal/codec"
	"github.com/nick-dorsch/planner/pkg/models"
)

// SheetStore syncs with a spreadsheet web app. GET returns
// {"success":true,"data":[...]} with tasks nested; POST takes
// {"action":"updateTasks","data":[...]}.
type SheetStore struct {
	url    string
	schema codec.Schema
	client *http.Client
}

type sheetTask struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Completed   bool        `json:"completed"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   string      `json:"updatedAt"`
	DueDate     *string     `json:"dueDate"`
	ParentID    *string     `json:"parentId"`
	Category    string      `json:"category,omitempty"`
	Priority    string      `json:"priority,omitempty"`
	Subtasks    []sheetTask `json:"subtasks"`
}

type sheetRequest struct {
	Action string      `json:"action"`
	Data   []sheetTask `json:"data"`
}

type sheetResponse struct {
	Success bool        `json:"success"`
	Data    []sheetTask `json:"data"`
	Message string      `json:"message"`
	Error   string      `json:"error"`
}

func NewSheetStore(url string, schema codec.Schema, client *http.Client) *SheetStore {
	if client == nil {
		client = &http.Client{}
	}
	return &SheetStore{url: url, schema: schema, client: client}
}

func (s *SheetStore) Name() string { return "sheet" }

func (s *SheetStore) Load(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", loadError(s.Name(), fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := s.do(req)
	if err != nil {
		return "", loadError(s.Name(), err)
	}
	if len(resp.Data) == 0 {
		return "", nil
	}

	var rows []codec.Row
	flattenSheet(resp.Data, "", &rows)
	f, _ := codec.Build(rows)
	return codec.Encode(f, s.schema), nil
}

func (s *SheetStore) Save(ctx context.Context, text string) error {
	f, _ := codec.Decode(text)
	body, err := json.Marshal(sheetRequest{Action: "updateTasks", Data: toSheet(f, "")})
	if err != nil {
		return saveError(s.Name(), fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return saveError(s.Name(), fmt.Errorf("failed to create request: %w", err))
	}
	// Apps Script rejects the CORS preflight a JSON content type triggers.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	if _, err := s.do(req); err != nil {
		return saveError(s.Name(), err)
	}
	return nil
}

func (s *SheetStore) do(req *http.Request) (*sheetResponse, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet error (%d): %s", resp.StatusCode, string(body))
	}

	var out sheetResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("sheet error: %s", out.Error)
	}
	return &out, nil
}

func toSheet(list []models.Task, parentID string) []sheetTask {
	out := make([]sheetTask, 0, len(list))
	for _, t := range list {
		st := sheetTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
			CreatedAt:   codec.FormatTimestamp(t.CreatedAt),
			UpdatedAt:   codec.FormatTimestamp(t.UpdatedAt),
			Category:    string(t.Category),
			Priority:    string(t.Priority),
			Subtasks:    toSheet(t.Subtasks, t.ID),
		}
		if t.DueDate != "" {
			due := t.DueDate
			st.DueDate = &due
		}
		if parentID != "" {
			p := parentID
			st.ParentID = &p
		}
		out = append(out, st)
	}
	return out
}

func flattenSheet(list []sheetTask, parentID string, rows *[]codec.Row) {
	for _, st := range list {
		r := codec.Row{
			ID:          st.ID,
			Title:       st.Title,
			Description: st.Description,
			Completed:   st.Completed,
			CreatedAt:   codec.ParseTimestamp(st.CreatedAt),
			UpdatedAt:   codec.ParseTimestamp(st.UpdatedAt),
			ParentID:    parentID,
			Category:    models.ParseCategory(st.Category),
			Priority:    models.ParsePriority(st.Priority),
		}
		if st.DueDate != nil {
			r.DueDate = *st.DueDate
		}
		*rows = append(*rows, r)
		flattenSheet(st.Subtasks, st.ID, rows)
	}
}
