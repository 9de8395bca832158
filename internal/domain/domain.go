package domain

type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Type      string `json:"type" enum:"epic,story,spec,note"`
	Stage     string `json:"stage" enum:"idea,draft,review,ready,in_progress,done"`
	Version   int    `json:"version"`
	CreatedBy string `json:"created_by"`
	UpdatedBy string `json:"updated_by"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// Revision is an immutable snapshot of a document as it was before an
// update. Version is the version number being superseded.
type Revision struct {
	DocumentID string `json:"document_id"`
	Version    int    `json:"version"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Stage      string `json:"stage"`
	EditedBy   string `json:"edited_by"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type RelationshipEdge struct {
	ParentID  string `json:"parent_id"`
	ChildID   string `json:"child_id"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// TreeNode is one node of a materialized document hierarchy.
type TreeNode struct {
	DocumentID string      `json:"document_id"`
	Title      string      `json:"title"`
	Type       string      `json:"type"`
	Stage      string      `json:"stage"`
	Children   []*TreeNode `json:"children,omitempty"`
}

type Comment struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	AuthorID   string `json:"author_id"`
	Body       string `json:"body"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
