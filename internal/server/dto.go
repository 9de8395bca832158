package server

import (
	"encoding/json"

	"specline/internal/diff"
	"specline/internal/domain"
)

// Request payloads

type CreateDocumentRequest struct {
	ID    *string `json:"id,omitempty"`
	Title string  `json:"title"`
	Body  *string `json:"body,omitempty"`
	Type  string  `json:"type,omitempty"`
}

type UpdateDocumentRequest struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

type TransitionDocumentRequest struct {
	Stage string `json:"stage" enum:"idea,draft,review,ready,in_progress,done"`
}

type CreateLinkRequest struct {
	ChildID string `json:"child_id"`
}

type CreateCommentRequest struct {
	Body string `json:"body"`
}

type CreateAPIKeyRequest struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role" enum:"pm,ta,dev,qa,stakeholder"`
	Name    string `json:"name,omitempty"`
}

// Response payloads

type DocumentResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Body       string   `json:"body,omitempty"`
	Type       string   `json:"type" enum:"epic,story,spec,note"`
	Stage      string   `json:"stage" enum:"idea,draft,review,ready,in_progress,done"`
	Version    int      `json:"version"`
	CreatedBy  string   `json:"created_by"`
	UpdatedBy  string   `json:"updated_by"`
	CreatedAt  string   `json:"created_at" format:"date-time"`
	UpdatedAt  string   `json:"updated_at" format:"date-time"`
	NextStages []string `json:"next_stages,omitempty"`
}

type RevisionResponse struct {
	DocumentID string `json:"document_id"`
	Version    int    `json:"version"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Stage      string `json:"stage"`
	EditedBy   string `json:"edited_by"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type LinkResponse struct {
	ParentID  string `json:"parent_id"`
	ChildID   string `json:"child_id"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type CommentResponse struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	AuthorID   string `json:"author_id"`
	Body       string `json:"body"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type DiffBlockResponse struct {
	Type    string `json:"type" enum:"added,removed,unchanged"`
	Text    string `json:"text"`
	Line    int    `json:"line"`
	OldLine int    `json:"old_line,omitempty"`
	NewLine int    `json:"new_line,omitempty"`
}

type DiffResponse struct {
	DocumentID  string              `json:"document_id"`
	FromVersion int                 `json:"from_version"`
	ToVersion   int                 `json:"to_version"`
	Blocks      []DiffBlockResponse `json:"blocks"`
	Inline      []string            `json:"inline"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type paginatedDocuments struct {
	Items      []DocumentResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func documentResponse(d domain.Document, nextStages []string) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID,
		Title:      d.Title,
		Body:       d.Body,
		Type:       d.Type,
		Stage:      d.Stage,
		Version:    d.Version,
		CreatedBy:  d.CreatedBy,
		UpdatedBy:  d.UpdatedBy,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		NextStages: nextStages,
	}
}

func mapDocuments(items []domain.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(items))
	for _, d := range items {
		out = append(out, documentResponse(d, nil))
	}
	return out
}

func revisionResponse(r domain.Revision) RevisionResponse {
	return RevisionResponse{
		DocumentID: r.DocumentID,
		Version:    r.Version,
		Title:      r.Title,
		Body:       r.Body,
		Stage:      r.Stage,
		EditedBy:   r.EditedBy,
		CreatedAt:  r.CreatedAt,
	}
}

func linkResponse(e domain.RelationshipEdge) LinkResponse {
	return LinkResponse{ParentID: e.ParentID, ChildID: e.ChildID, CreatedBy: e.CreatedBy, CreatedAt: e.CreatedAt}
}

func commentResponse(c domain.Comment) CommentResponse {
	return CommentResponse{ID: c.ID, DocumentID: c.DocumentID, AuthorID: c.AuthorID, Body: c.Body, CreatedAt: c.CreatedAt}
}

func diffBlockResponses(blocks []diff.Block) []DiffBlockResponse {
	out := make([]DiffBlockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, DiffBlockResponse{
			Type:    string(b.Type),
			Text:    b.Text,
			Line:    b.Line,
			OldLine: b.OldLine,
			NewLine: b.NewLine,
		})
	}
	return out
}

func eventResponse(e domain.Event) EventResponse {
	var payload map[string]any
	if e.Payload != "" {
		_ = json.Unmarshal([]byte(e.Payload), &payload)
	}
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    payload,
	}
}

func apiKeyResponse(k domain.APIKey, plaintext string) APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID,
		ActorID:   k.ActorID,
		Role:      k.Role,
		Name:      k.Name,
		Key:       plaintext,
		CreatedAt: k.CreatedAt,
	}
}
