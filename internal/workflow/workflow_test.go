package workflow_test

import (
	"errors"
	"testing"

	"specline/internal/workflow"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to workflow.Stage
		roles    []workflow.Role
	}{
		{workflow.StageIdea, workflow.StageDraft, []workflow.Role{workflow.RolePM, workflow.RoleTA}},
		{workflow.StageDraft, workflow.StageReview, []workflow.Role{workflow.RolePM, workflow.RoleTA}},
		{workflow.StageReview, workflow.StageDraft, []workflow.Role{workflow.RolePM, workflow.RoleTA, workflow.RoleQA}},
		{workflow.StageReview, workflow.StageReady, []workflow.Role{workflow.RolePM, workflow.RoleQA}},
		{workflow.StageReady, workflow.StageInProgress, []workflow.Role{workflow.RolePM, workflow.RoleTA, workflow.RoleDev}},
		{workflow.StageInProgress, workflow.StageReview, []workflow.Role{workflow.RolePM, workflow.RoleDev}},
		{workflow.StageInProgress, workflow.StageDone, []workflow.Role{workflow.RolePM, workflow.RoleQA}},
	}
	allRoles := []workflow.Role{workflow.RolePM, workflow.RoleTA, workflow.RoleDev, workflow.RoleQA, workflow.RoleStakeholder}
	for _, c := range cases {
		allowed := map[workflow.Role]bool{}
		for _, r := range c.roles {
			allowed[r] = true
		}
		for _, role := range allRoles {
			err := workflow.ValidateTransition(c.from, c.to, role)
			if allowed[role] && err != nil {
				t.Errorf("%s -> %s as %s: unexpected error %v", c.from, c.to, role, err)
			}
			if !allowed[role] {
				var fe workflow.ForbiddenError
				if !errors.As(err, &fe) {
					t.Errorf("%s -> %s as %s: expected forbidden, got %v", c.from, c.to, role, err)
				}
			}
		}
	}
}

func TestUndefinedTransitionReportedBeforeRole(t *testing.T) {
	// Stakeholders may never transition, but an undefined stage pair must
	// still surface as invalid, not forbidden.
	err := workflow.ValidateTransition(workflow.StageIdea, workflow.StageDone, workflow.RoleStakeholder)
	var te workflow.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if te.From != workflow.StageIdea || te.To != workflow.StageDone {
		t.Fatalf("unexpected pair %s -> %s", te.From, te.To)
	}
}

func TestDoneIsTerminal(t *testing.T) {
	targets := []workflow.Stage{
		workflow.StageIdea, workflow.StageDraft, workflow.StageReview,
		workflow.StageReady, workflow.StageInProgress, workflow.StageDone,
	}
	for _, target := range targets {
		err := workflow.ValidateTransition(workflow.StageDone, target, workflow.RolePM)
		var te workflow.InvalidTransitionError
		if !errors.As(err, &te) {
			t.Errorf("done -> %s: expected invalid transition, got %v", target, err)
		}
	}
}

func TestSelfTransitionsInvalid(t *testing.T) {
	for _, s := range []workflow.Stage{workflow.StageIdea, workflow.StageDraft, workflow.StageReview} {
		err := workflow.ValidateTransition(s, s, workflow.RolePM)
		var te workflow.InvalidTransitionError
		if !errors.As(err, &te) {
			t.Errorf("%s -> %s: expected invalid transition, got %v", s, s, err)
		}
	}
}

func TestAllowedTransitions(t *testing.T) {
	got := workflow.AllowedTransitions(workflow.RoleQA, workflow.StageReview)
	want := map[workflow.Stage]bool{workflow.StageDraft: true, workflow.StageReady: true}
	if len(got) != len(want) {
		t.Fatalf("qa at review: got %v", got)
	}
	for _, s := range got {
		if !want[s] {
			t.Fatalf("qa at review: unexpected target %s", s)
		}
	}
	if out := workflow.AllowedTransitions(workflow.RoleStakeholder, workflow.StageReview); len(out) != 0 {
		t.Fatalf("stakeholder should have no transitions, got %v", out)
	}
	if out := workflow.AllowedTransitions(workflow.RolePM, workflow.StageDone); len(out) != 0 {
		t.Fatalf("done should have no outgoing transitions, got %v", out)
	}
}

func TestHasPermission(t *testing.T) {
	cases := []struct {
		role workflow.Role
		cap  workflow.Capability
		want bool
	}{
		{workflow.RolePM, workflow.CapDelete, true},
		{workflow.RoleTA, workflow.CapDelete, false},
		{workflow.RoleTA, workflow.CapCreate, true},
		{workflow.RoleDev, workflow.CapCreate, false},
		{workflow.RoleDev, workflow.CapUpdate, true},
		{workflow.RoleQA, workflow.CapUpdate, false},
		{workflow.RoleQA, workflow.CapTransition, true},
		{workflow.RoleStakeholder, workflow.CapTransition, false},
		{workflow.RoleStakeholder, workflow.CapComment, true},
		{workflow.RoleStakeholder, workflow.CapLink, false},
	}
	for _, c := range cases {
		if got := workflow.HasPermission(c.role, c.cap); got != c.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", c.role, c.cap, got, c.want)
		}
	}
}

func TestValidRoleAndStage(t *testing.T) {
	if !workflow.ValidRole(workflow.RoleDev) || workflow.ValidRole("intern") {
		t.Fatal("role validation broken")
	}
	if !workflow.ValidStage(workflow.StageInProgress) || workflow.ValidStage("shipped") {
		t.Fatal("stage validation broken")
	}
}
