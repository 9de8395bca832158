// Package workflow holds the static role/stage tables that gate every
// mutating operation: which capabilities a role carries and which stage
// transitions it may perform.
package workflow

import "fmt"

type Role string

const (
	RolePM          Role = "pm"
	RoleTA          Role = "ta"
	RoleDev         Role = "dev"
	RoleQA          Role = "qa"
	RoleStakeholder Role = "stakeholder"
)

type Stage string

const (
	StageIdea       Stage = "idea"
	StageDraft      Stage = "draft"
	StageReview     Stage = "review"
	StageReady      Stage = "ready"
	StageInProgress Stage = "in_progress"
	StageDone       Stage = "done"
)

type Capability string

const (
	CapCreate     Capability = "document.create"
	CapRead       Capability = "document.read"
	CapUpdate     Capability = "document.update"
	CapDelete     Capability = "document.delete"
	CapTransition Capability = "document.transition"
	CapComment    Capability = "document.comment"
	CapLink       Capability = "document.link"
	CapUpload     Capability = "document.upload"
	CapUseAI      Capability = "document.use_ai"
)

// InvalidTransitionError indicates a stage pair absent from the transition
// table, regardless of who is asking.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition %s -> %s", e.From, e.To)
}

// ForbiddenError indicates a defined transition or capability the caller's
// role is not permitted to use.
type ForbiddenError struct {
	Role Role
	Want string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role %s may not %s", e.Role, e.Want)
}

type Transition struct {
	From         Stage
	To           Stage
	AllowedRoles []Role
}

var rolePermissions = map[Role][]Capability{
	RolePM:          {CapCreate, CapRead, CapUpdate, CapDelete, CapTransition, CapComment, CapLink, CapUpload, CapUseAI},
	RoleTA:          {CapCreate, CapRead, CapUpdate, CapTransition, CapComment, CapLink, CapUpload, CapUseAI},
	RoleDev:         {CapRead, CapUpdate, CapTransition, CapComment, CapUseAI},
	RoleQA:          {CapRead, CapTransition, CapComment},
	RoleStakeholder: {CapRead, CapComment},
}

// transitions is ordered; done has no outgoing entries and is therefore
// terminal. Self transitions are not defined and so always invalid.
var transitions = []Transition{
	{StageIdea, StageDraft, []Role{RolePM, RoleTA}},
	{StageDraft, StageReview, []Role{RolePM, RoleTA}},
	{StageReview, StageDraft, []Role{RolePM, RoleTA, RoleQA}},
	{StageReview, StageReady, []Role{RolePM, RoleQA}},
	{StageReady, StageInProgress, []Role{RolePM, RoleTA, RoleDev}},
	{StageInProgress, StageReview, []Role{RolePM, RoleDev}},
	{StageInProgress, StageDone, []Role{RolePM, RoleQA}},
}

func ValidRole(r Role) bool {
	_, ok := rolePermissions[r]
	return ok
}

func ValidStage(s Stage) bool {
	switch s {
	case StageIdea, StageDraft, StageReview, StageReady, StageInProgress, StageDone:
		return true
	}
	return false
}

func HasPermission(role Role, cap Capability) bool {
	for _, c := range rolePermissions[role] {
		if c == cap {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the target stages the role may move to from the
// given stage.
func AllowedTransitions(role Role, from Stage) []Stage {
	var out []Stage
	for _, t := range transitions {
		if t.From != from {
			continue
		}
		for _, r := range t.AllowedRoles {
			if r == role {
				out = append(out, t.To)
				break
			}
		}
	}
	return out
}

// IsDefinedTransition reports whether the stage pair exists in the table at
// all, ignoring roles.
func IsDefinedTransition(from, to Stage) bool {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks structure before permission: an undefined stage
// pair is reported as invalid even when the role could not have performed it.
func ValidateTransition(current, target Stage, role Role) error {
	if !IsDefinedTransition(current, target) {
		return InvalidTransitionError{From: current, To: target}
	}
	for _, to := range AllowedTransitions(role, current) {
		if to == target {
			return nil
		}
	}
	return ForbiddenError{Role: role, Want: fmt.Sprintf("transition %s -> %s", current, target)}
}
