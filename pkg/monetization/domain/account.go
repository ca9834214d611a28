package domain

type AccountStatusType string

const (
	AccountStatusOK            AccountStatusType = "OK"
	AccountStatusPendingAction AccountStatusType = "PENDING_ACTION"
	AccountStatusError         AccountStatusType = "ERROR"
	AccountStatusNotConnected  AccountStatusType = "NOT_CONNECTED"
)

// ParseAccountStatus maps provider vocabulary onto an account status, ERROR when unknown.
func ParseAccountStatus(value string) AccountStatusType {
	switch normalizeEnum(value) {
	case "OK", "ACTIVE", "ENABLED":
		return AccountStatusOK
	case "PENDING_ACTION", "PENDING", "RESTRICTED_SOON":
		return AccountStatusPendingAction
	case "NOT_CONNECTED", "UNLINKED", "DISCONNECTED":
		return AccountStatusNotConnected
	default:
		return AccountStatusError
	}
}

type RequirementStatus string

const (
	RequirementPastDue      RequirementStatus = "PAST_DUE"
	RequirementCurrentlyDue RequirementStatus = "CURRENTLY_DUE"
	RequirementDueFuture    RequirementStatus = "DUE_FUTURE"
)

// ParseRequirementStatus maps provider vocabulary, CURRENTLY_DUE when unknown.
func ParseRequirementStatus(value string) RequirementStatus {
	switch normalizeEnum(value) {
	case "PAST_DUE", "OVERDUE":
		return RequirementPastDue
	case "DUE_FUTURE", "EVENTUALLY_DUE", "FUTURE":
		return RequirementDueFuture
	default:
		return RequirementCurrentlyDue
	}
}

type Requirement struct {
	Name   string            `json:"name"`
	Status RequirementStatus `json:"status"`
}

// AccountStatus is re-fetched from the provider on every call and never patched locally.
type AccountStatus struct {
	AccountType    string
	AccountID      string
	OrganizationID string
	Status         AccountStatusType
	ChargesEnabled *bool
	PayoutsEnabled *bool
	Livemode       *bool
	Requirements   []Requirement
	DisabledReason *string
}

// AccountLinkData identifies who triggered account onboarding.
type AccountLinkData struct {
	UserObjectID         string
	OrganisationObjectID string
}

type Customer struct {
	IntegrationID string
	Name          string
	Email         string
	Currency      string
}

type Product struct {
	IntegrationID string
	PlanID        string
	Name          string
	Description   string
	ImageURL      string
	Active        bool
}
