package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"specline/internal/config"
	"specline/internal/diff"
	"specline/internal/domain"
	"specline/internal/events"
	"specline/internal/relation"
	"specline/internal/repo"
	"specline/internal/workflow"
)

// Actor is the already-authenticated caller identity. The engine never
// authenticates; it only authorizes using the role.
type Actor struct {
	ID   string
	Role workflow.Role
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

// appendEvent writes an audit event using the engine clock, so fixed test
// clocks govern event timestamps too.
func (e Engine) appendEvent(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload events.EventPayload) error {
	w := e.Events
	if w.Now == nil {
		w.Now = e.Now
	}
	return w.Append(ctx, tx, evtType, entityKind, entityID, actorID, payload)
}

func requireCapability(actor Actor, cap workflow.Capability) error {
	if !workflow.HasPermission(actor.Role, cap) {
		return workflow.ForbiddenError{Role: actor.Role, Want: string(cap)}
	}
	return nil
}

// DocumentCreateOptions are parameters for creating a document.
type DocumentCreateOptions struct {
	ID    string
	Title string
	Body  string
	Type  string
	Actor Actor
}

func (e Engine) CreateDocument(ctx context.Context, opts DocumentCreateOptions) (domain.Document, error) {
	if opts.Title == "" {
		return domain.Document{}, errors.New("title is required")
	}
	if err := requireCapability(opts.Actor, workflow.CapCreate); err != nil {
		return domain.Document{}, err
	}
	if opts.Type == "" && e.Config != nil {
		opts.Type = e.Config.Documents.DefaultType
	}
	if !config.ValidDocumentType(opts.Type) {
		return domain.Document{}, fmt.Errorf("unknown document type %s", opts.Type)
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.nowString()
	d := domain.Document{
		ID:        id,
		Title:     opts.Title,
		Body:      opts.Body,
		Type:      opts.Type,
		Stage:     string(workflow.StageIdea),
		Version:   1,
		CreatedBy: opts.Actor.ID,
		UpdatedBy: opts.Actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Document{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertDocumentTx(ctx, tx, d); err != nil {
		return domain.Document{}, fmt.Errorf("insert document: %w", err)
	}
	if err := e.appendEvent(ctx, tx, "document.created", "document", d.ID, opts.Actor.ID, events.EventPayload{
		"title": d.Title,
		"stage": d.Stage,
	}); err != nil {
		return domain.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Document{}, err
	}
	return d, nil
}

// DocumentUpdateOptions encapsulates allowed content updates. Nil fields are
// left untouched.
type DocumentUpdateOptions struct {
	ID    string
	Title *string
	Body  *string
	Actor Actor
}

// UpdateDocument archives the document's pre-update state as a revision and
// then applies the update, all in one transaction. If the snapshot cannot be
// written the update does not happen.
func (e Engine) UpdateDocument(ctx context.Context, opts DocumentUpdateOptions) (domain.Document, error) {
	if err := requireCapability(opts.Actor, workflow.CapUpdate); err != nil {
		return domain.Document{}, err
	}
	if opts.Title == nil && opts.Body == nil {
		return domain.Document{}, errors.New("nothing to update")
	}
	if opts.Title != nil && *opts.Title == "" {
		return domain.Document{}, errors.New("title is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Document{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDocumentTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Document{}, err
	}
	now := e.nowString()
	// Snapshot first: the revision stores the version being superseded.
	rev := domain.Revision{
		DocumentID: d.ID,
		Version:    d.Version,
		Title:      d.Title,
		Body:       d.Body,
		Stage:      d.Stage,
		EditedBy:   opts.Actor.ID,
		CreatedAt:  now,
	}
	if err := e.Repo.InsertRevisionTx(ctx, tx, rev); err != nil {
		return domain.Document{}, fmt.Errorf("snapshot revision: %w", err)
	}
	if opts.Title != nil {
		d.Title = *opts.Title
	}
	if opts.Body != nil {
		d.Body = *opts.Body
	}
	d.Version++
	d.UpdatedBy = opts.Actor.ID
	d.UpdatedAt = now
	if err := e.Repo.UpdateDocumentTx(ctx, tx, d); err != nil {
		return domain.Document{}, err
	}
	if err := e.appendEvent(ctx, tx, "document.updated", "document", d.ID, opts.Actor.ID, events.EventPayload{
		"from_version": rev.Version,
		"to_version":   d.Version,
	}); err != nil {
		return domain.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Document{}, err
	}
	return d, nil
}

// TransitionDocument moves a document to a new workflow stage. Stage changes
// are audit-logged but do not create revisions; only content updates do.
// Authorization is left entirely to ValidateTransition so that an undefined
// stage pair reports InvalidTransition no matter who asks.
func (e Engine) TransitionDocument(ctx context.Context, id string, target workflow.Stage, actor Actor) (domain.Document, error) {
	if !workflow.ValidStage(target) {
		return domain.Document{}, fmt.Errorf("unknown stage %s", target)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Document{}, err
	}
	defer tx.Rollback()

	d, err := e.Repo.GetDocumentTx(ctx, tx, id)
	if err != nil {
		return domain.Document{}, err
	}
	if err := workflow.ValidateTransition(workflow.Stage(d.Stage), target, actor.Role); err != nil {
		return domain.Document{}, err
	}
	from := d.Stage
	d.Stage = string(target)
	d.UpdatedBy = actor.ID
	d.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateDocumentTx(ctx, tx, d); err != nil {
		return domain.Document{}, err
	}
	if err := e.appendEvent(ctx, tx, "document.transitioned", "document", d.ID, actor.ID, events.EventPayload{
		"from": from,
		"to":   d.Stage,
	}); err != nil {
		return domain.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Document{}, err
	}
	return d, nil
}

func (e Engine) DeleteDocument(ctx context.Context, id string, actor Actor) error {
	if err := requireCapability(actor, workflow.CapDelete); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetDocumentTx(ctx, tx, id); err != nil {
		return err
	}
	// Revisions, edges and comments go with it via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id=?`, id); err != nil {
		return err
	}
	if err := e.appendEvent(ctx, tx, "document.deleted", "document", id, actor.ID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateLink adds a parent -> child edge after the self-link, duplicate and
// cycle checks. The cycle check walks the parent's ancestors breadth-first;
// if the child already appears there the edge would close a loop.
func (e Engine) CreateLink(ctx context.Context, parentID, childID string, actor Actor) (domain.RelationshipEdge, error) {
	if err := requireCapability(actor, workflow.CapLink); err != nil {
		return domain.RelationshipEdge{}, err
	}
	if parentID == childID {
		return domain.RelationshipEdge{}, relation.SelfLinkError{ID: parentID}
	}
	if _, err := e.Repo.GetDocument(ctx, parentID); err != nil {
		return domain.RelationshipEdge{}, err
	}
	if _, err := e.Repo.GetDocument(ctx, childID); err != nil {
		return domain.RelationshipEdge{}, err
	}
	exists, err := e.Repo.HasLink(ctx, parentID, childID)
	if err != nil {
		return domain.RelationshipEdge{}, err
	}
	if exists {
		return domain.RelationshipEdge{}, relation.DuplicateLinkError{ParentID: parentID, ChildID: childID}
	}
	cycle, err := relation.WouldCycle(ctx, e.Repo, parentID, childID)
	if err != nil {
		return domain.RelationshipEdge{}, err
	}
	if cycle {
		return domain.RelationshipEdge{}, relation.CircularDependencyError{ParentID: parentID, ChildID: childID}
	}
	edge := domain.RelationshipEdge{
		ParentID:  parentID,
		ChildID:   childID,
		CreatedBy: actor.ID,
		CreatedAt: e.nowString(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RelationshipEdge{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertLinkTx(ctx, tx, edge); err != nil {
		return domain.RelationshipEdge{}, fmt.Errorf("insert link: %w", err)
	}
	if err := e.appendEvent(ctx, tx, "link.created", "link", parentID+"->"+childID, actor.ID, events.EventPayload{
		"parent_id": parentID,
		"child_id":  childID,
	}); err != nil {
		return domain.RelationshipEdge{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RelationshipEdge{}, err
	}
	return edge, nil
}

// DeleteLink removes an edge, reporting whether one existed.
func (e Engine) DeleteLink(ctx context.Context, parentID, childID string, actor Actor) (bool, error) {
	if err := requireCapability(actor, workflow.CapLink); err != nil {
		return false, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	removed, err := e.Repo.DeleteLinkTx(ctx, tx, parentID, childID)
	if err != nil {
		return false, err
	}
	if removed {
		if err := e.appendEvent(ctx, tx, "link.deleted", "link", parentID+"->"+childID, actor.ID, events.EventPayload{
			"parent_id": parentID,
			"child_id":  childID,
		}); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return removed, nil
}

func (e Engine) Ancestors(ctx context.Context, id string) ([]string, error) {
	if _, err := e.Repo.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	return relation.Ancestors(ctx, e.Repo, id)
}

func (e Engine) Descendants(ctx context.Context, id string) ([]string, error) {
	if _, err := e.Repo.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	return relation.Descendants(ctx, e.Repo, id)
}

// Tree materializes the subtree rooted at a document.
func (e Engine) Tree(ctx context.Context, rootID string) (*domain.TreeNode, error) {
	load := func(ctx context.Context, id string) (domain.TreeNode, error) {
		d, err := e.Repo.GetDocument(ctx, id)
		if err != nil {
			return domain.TreeNode{}, err
		}
		return domain.TreeNode{DocumentID: d.ID, Title: d.Title, Type: d.Type, Stage: d.Stage}, nil
	}
	return relation.BuildTree(ctx, e.Repo, load, rootID)
}

// DiffRevisions compares two versions of a document. A version equal to the
// document's live version resolves to the live body, so callers can diff a
// snapshot against the current text.
func (e Engine) DiffRevisions(ctx context.Context, documentID string, from, to int) ([]diff.Block, error) {
	d, err := e.Repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	oldBody, err := e.bodyAtVersion(ctx, d, from)
	if err != nil {
		return nil, err
	}
	newBody, err := e.bodyAtVersion(ctx, d, to)
	if err != nil {
		return nil, err
	}
	return diff.Lines(oldBody, newBody), nil
}

func (e Engine) bodyAtVersion(ctx context.Context, d domain.Document, version int) (string, error) {
	if version == d.Version {
		return d.Body, nil
	}
	rev, err := e.Repo.GetRevision(ctx, d.ID, version)
	if err != nil {
		return "", err
	}
	return rev.Body, nil
}

func (e Engine) AddComment(ctx context.Context, documentID, body string, actor Actor) (domain.Comment, error) {
	if err := requireCapability(actor, workflow.CapComment); err != nil {
		return domain.Comment{}, err
	}
	if body == "" {
		return domain.Comment{}, errors.New("body is required")
	}
	if _, err := e.Repo.GetDocument(ctx, documentID); err != nil {
		return domain.Comment{}, err
	}
	c := domain.Comment{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		AuthorID:   actor.ID,
		Body:       body,
		CreatedAt:  e.nowString(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Comment{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCommentTx(ctx, tx, c); err != nil {
		return domain.Comment{}, err
	}
	if err := e.appendEvent(ctx, tx, "comment.added", "comment", c.ID, actor.ID, events.EventPayload{
		"document_id": documentID,
	}); err != nil {
		return domain.Comment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}

// CreateAPIKey mints a machine credential bound to an actor and role. The
// plaintext key is returned once; only its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, actorID string, role workflow.Role, name string) (domain.APIKey, string, error) {
	if actorID == "" {
		return domain.APIKey{}, "", errors.New("actor_id required")
	}
	if !workflow.ValidRole(role) {
		return domain.APIKey{}, "", fmt.Errorf("unknown role %s", role)
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return domain.APIKey{}, "", err
	}
	plaintext := "slk_" + hex.EncodeToString(raw)
	key := domain.APIKey{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Role:      string(role),
		Name:      name,
		KeyHash:   repo.HashAPIKey(plaintext),
		CreatedAt: e.nowString(),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, plaintext, nil
}
