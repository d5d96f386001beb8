package domain

// ActorRole identifies which side of a tenancy an actor speaks for.
type ActorRole string

const (
	RoleRenter           ActorRole = "renter"
	RoleLandlord         ActorRole = "landlord"
	RoleEstateAgent      ActorRole = "estate_agent"
	RoleManagementAgency ActorRole = "management_agency"
)

// Valid reports whether the role is a known actor role.
func (r ActorRole) Valid() bool {
	switch r {
	case RoleRenter, RoleLandlord, RoleEstateAgent, RoleManagementAgency:
		return true
	}
	return false
}

// ResponderRole reports whether the role can act for the responsible party.
func (r ActorRole) ResponderRole() bool {
	return r == RoleLandlord || r == RoleEstateAgent || r == RoleManagementAgency
}

// PartyKind tags the variant of a responsible party.
type PartyKind string

const (
	PartyLandlord PartyKind = "landlord"
	PartyAgency   PartyKind = "agency"
)

// ResponsibleParty is resolved once at issue creation and stored with the
// issue. When an agency manages on the landlord's behalf, routing and SLA
// resolution prefer the agency.
type ResponsibleParty struct {
	Kind PartyKind
	ID   string
}

// ResolveResponsibleParty picks the accountable party for a new issue.
func ResolveResponsibleParty(landlordID string, agencyID *string) ResponsibleParty {
	if agencyID != nil && *agencyID != "" {
		return ResponsibleParty{Kind: PartyAgency, ID: *agencyID}
	}
	return ResponsibleParty{Kind: PartyLandlord, ID: landlordID}
}

// ActsForParty reports whether the given actor may act as the issue's
// responsible party. Agents act for the agency only when assigned.
func (i *Issue) ActsForParty(actorID string, role ActorRole) bool {
	switch i.Responsible.Kind {
	case PartyLandlord:
		return role == RoleLandlord && actorID == i.LandlordID
	case PartyAgency:
		if role == RoleManagementAgency && actorID == i.Responsible.ID {
			return true
		}
		if role == RoleEstateAgent && i.AssignedAgentID != nil && actorID == *i.AssignedAgentID {
			return true
		}
	}
	return false
}

// InvolvesActor reports whether the actor is a participant on the issue at
// all, used to gate reads and thread access.
func (i *Issue) InvolvesActor(actorID string, role ActorRole) bool {
	if role == RoleRenter {
		return actorID == i.RenterID
	}
	if role == RoleLandlord && actorID == i.LandlordID {
		return true
	}
	return i.ActsForParty(actorID, role)
}
