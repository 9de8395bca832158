package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"specline/internal/config"
	"specline/internal/db"
	"specline/internal/diff"
	"specline/internal/engine"
	"specline/internal/migrate"
	"specline/internal/relation"
	"specline/internal/repo"
	"specline/internal/workflow"
)

var (
	pm          = engine.Actor{ID: "paula", Role: workflow.RolePM}
	ta          = engine.Actor{ID: "tariq", Role: workflow.RoleTA}
	dev         = engine.Actor{ID: "dana", Role: workflow.RoleDev}
	qa          = engine.Actor{ID: "quinn", Role: workflow.RoleQA}
	stakeholder = engine.Actor{ID: "sam", Role: workflow.RoleStakeholder}
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func mustCreate(t *testing.T, env testEnv, title string, actor engine.Actor) string {
	t.Helper()
	d, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{Title: title, Actor: actor})
	if err != nil {
		t.Fatalf("create %s: %v", title, err)
	}
	return d.ID
}

func strPtr(s string) *string { return &s }

func TestCreateDocumentDefaults(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{Title: "Login flow", Actor: pm})
	if err != nil {
		t.Fatal(err)
	}
	if d.Stage != "idea" {
		t.Fatalf("expected idea stage, got %s", d.Stage)
	}
	if d.Version != 1 {
		t.Fatalf("expected version 1, got %d", d.Version)
	}
	if d.Type != "spec" {
		t.Fatalf("expected default type spec, got %s", d.Type)
	}
	if d.CreatedBy != pm.ID || d.UpdatedBy != pm.ID {
		t.Fatalf("actor not recorded: %+v", d)
	}
	if _, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{Title: "no", Type: "poem", Actor: pm}); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestCreateForbiddenForDevAndStakeholder(t *testing.T) {
	env := newTestEnv(t)
	for _, actor := range []engine.Actor{dev, qa, stakeholder} {
		_, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{Title: "x", Actor: actor})
		var fe workflow.ForbiddenError
		if !errors.As(err, &fe) {
			t.Errorf("%s: expected forbidden, got %v", actor.Role, err)
		}
	}
}

func TestUpdateArchivesPreviousState(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{
		Title: "Checkout", Body: "alpha\nbeta\n", Actor: pm,
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := env.Engine.UpdateDocument(env.Ctx, engine.DocumentUpdateOptions{
		ID: d.ID, Body: strPtr("alpha\ngamma\n"), Actor: ta,
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}
	if updated.UpdatedBy != ta.ID {
		t.Fatalf("expected updated_by %s, got %s", ta.ID, updated.UpdatedBy)
	}

	revs, err := env.Engine.Repo.ListRevisions(env.Ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 1 {
		t.Fatalf("expected 1 revision, got %d", len(revs))
	}
	if revs[0].Version != 1 || revs[0].Body != "alpha\nbeta\n" {
		t.Fatalf("revision should hold pre-update state, got %+v", revs[0])
	}

	if _, err := env.Engine.UpdateDocument(env.Ctx, engine.DocumentUpdateOptions{
		ID: d.ID, Title: strPtr("Checkout v2"), Actor: pm,
	}); err != nil {
		t.Fatal(err)
	}
	revs, _ = env.Engine.Repo.ListRevisions(env.Ctx, d.ID)
	if len(revs) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revs))
	}
	live, _ := env.Engine.Repo.GetDocument(env.Ctx, d.ID)
	if live.Version != 3 {
		t.Fatalf("expected live version 3, got %d", live.Version)
	}
}

func TestUpdateForbiddenLeavesNoRevision(t *testing.T) {
	env := newTestEnv(t)
	id := mustCreate(t, env, "Locked", pm)
	_, err := env.Engine.UpdateDocument(env.Ctx, engine.DocumentUpdateOptions{
		ID: id, Body: strPtr("sneaky"), Actor: qa,
	})
	var fe workflow.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	revs, _ := env.Engine.Repo.ListRevisions(env.Ctx, id)
	if len(revs) != 0 {
		t.Fatalf("forbidden update must not snapshot, got %d revisions", len(revs))
	}
	live, _ := env.Engine.Repo.GetDocument(env.Ctx, id)
	if live.Version != 1 || live.Body == "sneaky" {
		t.Fatalf("document mutated by forbidden update: %+v", live)
	}
}

func TestTransitionFlow(t *testing.T) {
	env := newTestEnv(t)
	id := mustCreate(t, env, "Feature spec", pm)

	d, err := env.Engine.TransitionDocument(env.Ctx, id, workflow.StageDraft, pm)
	if err != nil || d.Stage != "draft" {
		t.Fatalf("pm idea -> draft: %v", err)
	}

	// dev cannot send a draft to review
	_, err = env.Engine.TransitionDocument(env.Ctx, id, workflow.StageReview, dev)
	var fe workflow.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("dev draft -> review: expected forbidden, got %v", err)
	}

	if _, err = env.Engine.TransitionDocument(env.Ctx, id, workflow.StageReview, ta); err != nil {
		t.Fatalf("ta draft -> review: %v", err)
	}
	if _, err = env.Engine.TransitionDocument(env.Ctx, id, workflow.StageReady, qa); err != nil {
		t.Fatalf("qa review -> ready: %v", err)
	}
	if _, err = env.Engine.TransitionDocument(env.Ctx, id, workflow.StageInProgress, dev); err != nil {
		t.Fatalf("dev ready -> in_progress: %v", err)
	}
	d, err = env.Engine.TransitionDocument(env.Ctx, id, workflow.StageDone, qa)
	if err != nil || d.Stage != "done" {
		t.Fatalf("qa in_progress -> done: %v", err)
	}

	// done is terminal, even for PM
	_, err = env.Engine.TransitionDocument(env.Ctx, id, workflow.StageDraft, pm)
	var te workflow.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("done -> draft: expected invalid transition, got %v", err)
	}

	// transitions never bump the version or snapshot
	live, _ := env.Engine.Repo.GetDocument(env.Ctx, id)
	if live.Version != 1 {
		t.Fatalf("transitions must not bump version, got %d", live.Version)
	}
	revs, _ := env.Engine.Repo.ListRevisions(env.Ctx, id)
	if len(revs) != 0 {
		t.Fatalf("transitions must not snapshot, got %d revisions", len(revs))
	}
}

func TestTransitionStructureCheckedBeforeRole(t *testing.T) {
	env := newTestEnv(t)
	id := mustCreate(t, env, "Order", pm)
	// idea -> done is undefined; stakeholder also could never transition.
	// The structural error must win.
	_, err := env.Engine.TransitionDocument(env.Ctx, id, workflow.StageDone, stakeholder)
	var te workflow.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	// A defined pair still reports forbidden for a role that may not use it.
	_, err = env.Engine.TransitionDocument(env.Ctx, id, workflow.StageDraft, stakeholder)
	var fe workflow.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for defined pair, got %v", err)
	}
}

func TestDiffAcrossRevisions(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.Engine.CreateDocument(env.Ctx, engine.DocumentCreateOptions{
		Title: "Notes", Body: "alpha\nbeta\n", Actor: pm,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateDocument(env.Ctx, engine.DocumentUpdateOptions{
		ID: d.ID, Body: strPtr("alpha\ngamma\n"), Actor: pm,
	}); err != nil {
		t.Fatal(err)
	}
	// version 1 is archived, version 2 is live
	blocks, err := env.Engine.DiffRevisions(env.Ctx, d.ID, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	var removed, added []string
	for _, b := range blocks {
		switch b.Type {
		case diff.Removed:
			removed = append(removed, b.Text)
		case diff.Added:
			added = append(added, b.Text)
		}
	}
	if len(removed) != 1 || removed[0] != "beta" {
		t.Fatalf("expected beta removed, got %v", removed)
	}
	if len(added) != 1 || added[0] != "gamma" {
		t.Fatalf("expected gamma added, got %v", added)
	}

	if _, err := env.Engine.DiffRevisions(env.Ctx, d.ID, 1, 99); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for missing version, got %v", err)
	}
}

func TestLinkValidation(t *testing.T) {
	env := newTestEnv(t)
	epic := mustCreate(t, env, "Epic", pm)
	s1 := mustCreate(t, env, "Story 1", pm)
	s2 := mustCreate(t, env, "Story 2", pm)

	if _, err := env.Engine.CreateLink(env.Ctx, epic, s1, pm); err != nil {
		t.Fatalf("epic -> s1: %v", err)
	}
	if _, err := env.Engine.CreateLink(env.Ctx, s1, s2, ta); err != nil {
		t.Fatalf("s1 -> s2: %v", err)
	}

	_, err := env.Engine.CreateLink(env.Ctx, epic, epic, pm)
	var se relation.SelfLinkError
	if !errors.As(err, &se) {
		t.Fatalf("expected self link error, got %v", err)
	}

	_, err = env.Engine.CreateLink(env.Ctx, epic, s1, pm)
	var de relation.DuplicateLinkError
	if !errors.As(err, &de) {
		t.Fatalf("expected duplicate link error, got %v", err)
	}

	_, err = env.Engine.CreateLink(env.Ctx, s2, epic, pm)
	var ce relation.CircularDependencyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected circular dependency error, got %v", err)
	}

	// dev lacks the link capability
	_, err = env.Engine.CreateLink(env.Ctx, epic, s2, dev)
	var fe workflow.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for dev, got %v", err)
	}

	ancestors, err := env.Engine.Ancestors(env.Ctx, s2)
	if err != nil {
		t.Fatal(err)
	}
	if len(ancestors) != 2 {
		t.Fatalf("expected s1 and epic, got %v", ancestors)
	}

	tree, err := env.Engine.Tree(env.Ctx, epic)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Children) != 1 || tree.Children[0].DocumentID != s1 {
		t.Fatalf("unexpected tree %+v", tree)
	}
	if len(tree.Children[0].Children) != 1 || tree.Children[0].Children[0].DocumentID != s2 {
		t.Fatalf("expected s2 under s1, got %+v", tree.Children[0])
	}
}

func TestDeleteLink(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, "A", pm)
	b := mustCreate(t, env, "B", pm)
	if _, err := env.Engine.CreateLink(env.Ctx, a, b, pm); err != nil {
		t.Fatal(err)
	}
	removed, err := env.Engine.DeleteLink(env.Ctx, a, b, pm)
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v %v", removed, err)
	}
	removed, err = env.Engine.DeleteLink(env.Ctx, a, b, pm)
	if err != nil || removed {
		t.Fatalf("second delete should report missing, got %v %v", removed, err)
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	env := newTestEnv(t)
	parent := mustCreate(t, env, "Parent", pm)
	child := mustCreate(t, env, "Child", pm)
	if _, err := env.Engine.CreateLink(env.Ctx, parent, child, pm); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateDocument(env.Ctx, engine.DocumentUpdateOptions{
		ID: child, Body: strPtr("text"), Actor: pm,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddComment(env.Ctx, child, "looks good", stakeholder); err != nil {
		t.Fatal(err)
	}

	if err := env.Engine.DeleteDocument(env.Ctx, child, pm); err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{
		`SELECT count(*) FROM revisions WHERE document_id=?`,
		`SELECT count(*) FROM relationships WHERE child_id=?`,
		`SELECT count(*) FROM comments WHERE document_id=?`,
	} {
		var n int
		if err := env.Engine.DB.QueryRowContext(env.Ctx, q, child).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Fatalf("%s: expected cascade delete, got %d rows", q, n)
		}
	}
	// deleting again reports not found, ta may not delete at all
	if err := env.Engine.DeleteDocument(env.Ctx, child, pm); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var fe workflow.ForbiddenError
	if err := env.Engine.DeleteDocument(env.Ctx, parent, ta); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden for ta, got %v", err)
	}
}

func TestCommentsAndEvents(t *testing.T) {
	env := newTestEnv(t)
	id := mustCreate(t, env, "Commented", pm)
	if _, err := env.Engine.AddComment(env.Ctx, id, "please clarify", stakeholder); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.TransitionDocument(env.Ctx, id, workflow.StageDraft, pm); err != nil {
		t.Fatal(err)
	}
	events, err := env.Engine.Repo.LatestEventsFrom(env.Ctx, 10, 0, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("expected created+comment+transition events, got %d", len(events))
	}
	if events[0].Type != "document.transitioned" {
		t.Fatalf("expected newest-first ordering, got %s", events[0].Type)
	}
	for _, evt := range events {
		if evt.TS != "2024-01-01T00:00:00Z" {
			t.Fatalf("expected event timestamps from the engine clock, got %s", evt.TS)
		}
	}
}

func TestAPIKeyRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	key, plaintext, err := env.Engine.CreateAPIKey(env.Ctx, "robot-1", workflow.RoleDev, "ci bot")
	if err != nil {
		t.Fatal(err)
	}
	if plaintext == "" || key.KeyHash == repo.HashAPIKey("") {
		t.Fatal("expected usable key material")
	}
	stored, err := env.Engine.Repo.GetAPIKeyByHash(env.Ctx, repo.HashAPIKey(plaintext))
	if err != nil {
		t.Fatal(err)
	}
	if stored.ActorID != "robot-1" || stored.Role != "dev" {
		t.Fatalf("unexpected key %+v", stored)
	}
	if _, _, err := env.Engine.CreateAPIKey(env.Ctx, "robot-2", "boss", ""); err == nil {
		t.Fatal("expected unknown role error")
	}
}
