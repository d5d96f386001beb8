package domain

import (
	"strings"
	"testing"

	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

func validInput() NewIssueInput {
	return NewIssueInput{
		PropertyID:  "prop-1",
		RenterID:    "renter-1",
		LandlordID:  "landlord-1",
		Category:    CategoryPlumbing,
		Priority:    IssuePriorityUrgent,
		Subject:     "Leaking kitchen tap",
		Description: "The kitchen tap has been dripping constantly since Monday.",
	}
}

func TestValidateAcceptsValidInput(t *testing.T) {
	if err := validInput().Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestValidateSubjectBoundary(t *testing.T) {
	input := validInput()

	input.Subject = "Leak"
	if err := input.Validate(); !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("4-char subject: expected validation error, got %v", err)
	}

	input.Subject = "Leaks"
	if err := input.Validate(); err != nil {
		t.Errorf("5-char subject: expected success, got %v", err)
	}

	// Trimming applies before measuring.
	input.Subject = "  Leak   "
	if err := input.Validate(); err == nil {
		t.Error("padded 4-char subject must fail validation")
	}
}

func TestValidateDescriptionBoundary(t *testing.T) {
	input := validInput()

	input.Description = strings.Repeat("x", 19)
	if err := input.Validate(); !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("19-char description: expected validation error, got %v", err)
	}

	input.Description = strings.Repeat("x", 20)
	if err := input.Validate(); err != nil {
		t.Errorf("20-char description: expected success, got %v", err)
	}
}

func TestValidateFailsFastInFieldOrder(t *testing.T) {
	input := validInput()
	input.PropertyID = ""
	input.Priority = "catastrophic"
	input.Subject = ""

	err := input.Validate()
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Details["field"] != "property_id" {
		t.Fatalf("expected first failure on property_id, got %v", err)
	}
}

func TestValidateEnumerations(t *testing.T) {
	input := validInput()
	input.Category = "rocket_science"
	if err := input.Validate(); !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("unknown category: expected validation error, got %v", err)
	}

	input = validInput()
	input.Priority = "whenever"
	if err := input.Validate(); !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Errorf("unknown priority: expected validation error, got %v", err)
	}
}

func TestResolveResponsiblePartyPrefersAgency(t *testing.T) {
	agencyID := "agency-1"
	party := ResolveResponsibleParty("landlord-1", &agencyID)
	if party.Kind != PartyAgency || party.ID != agencyID {
		t.Errorf("agency present: got %+v", party)
	}

	party = ResolveResponsibleParty("landlord-1", nil)
	if party.Kind != PartyLandlord || party.ID != "landlord-1" {
		t.Errorf("no agency: got %+v", party)
	}

	empty := ""
	party = ResolveResponsibleParty("landlord-1", &empty)
	if party.Kind != PartyLandlord {
		t.Errorf("empty agency id must fall back to landlord, got %+v", party)
	}
}

func TestMessageVisibilitySplit(t *testing.T) {
	issue := Issue{Messages: []IssueMessage{
		{ID: "m1", Body: "When can you come?", SenderRole: RoleRenter},
		{ID: "m2", Body: "Contractor quote attached", SenderRole: RoleManagementAgency, IsInternal: true},
		{ID: "m3", Body: "Tomorrow at 10", SenderRole: RoleManagementAgency},
	}}

	visible := issue.VisibleMessages()
	if len(visible) != 2 || visible[0].ID != "m1" || visible[1].ID != "m3" {
		t.Errorf("visible messages wrong: %+v", visible)
	}

	internal := issue.InternalNotes()
	if len(internal) != 1 || internal[0].ID != "m2" {
		t.Errorf("internal notes wrong: %+v", internal)
	}

	if len(issue.Messages) != 3 {
		t.Error("filtering must not mutate the thread")
	}
}
