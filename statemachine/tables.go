package statemachine

import "finengine/models"

// Action is an admin operation requested against an entity
type Action string

const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionSuspend    Action = "suspend"
	ActionCancel     Action = "cancel"
	ActionReactivate Action = "reactivate"
	ActionClaim      Action = "claim"
)

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionSuspend, ActionCancel, ActionReactivate, ActionClaim:
		return true
	}
	return false
}

// RequiresReason reports whether the action must carry a non-empty reason
func (a Action) RequiresReason() bool {
	return a == ActionReject || a == ActionSuspend || a == ActionCancel
}

// table maps a status to the actions enabled from it and their target
// status. Terminal statuses map to an empty set.
type table map[string]map[Action]string

var investmentTable = table{
	string(models.InvestmentStatusPending): {
		ActionApprove: string(models.InvestmentStatusActive),
		ActionReject:  string(models.InvestmentStatusRejected),
	},
	string(models.InvestmentStatusActive): {
		ActionSuspend: string(models.InvestmentStatusSuspended),
		ActionCancel:  string(models.InvestmentStatusCancelled),
	},
	string(models.InvestmentStatusSuspended): {
		ActionReactivate: string(models.InvestmentStatusActive),
		ActionCancel:     string(models.InvestmentStatusCancelled),
	},
	string(models.InvestmentStatusCompleted): {},
	string(models.InvestmentStatusRejected):  {},
	string(models.InvestmentStatusCancelled): {},
}

var withdrawalTable = table{
	string(models.WithdrawalStatusPending): {
		ActionApprove: string(models.WithdrawalStatusApproved),
		ActionReject:  string(models.WithdrawalStatusRejected),
	},
	string(models.WithdrawalStatusApproved): {},
	string(models.WithdrawalStatusRejected): {},
}

var spinResultTable = table{
	string(models.SpinResultStatusPending): {
		ActionClaim:  string(models.SpinResultStatusClaimed),
		ActionCancel: string(models.SpinResultStatusCancelled),
	},
	string(models.SpinResultStatusClaimed):   {},
	string(models.SpinResultStatusCancelled): {},
	string(models.SpinResultStatusCompleted): {},
}

var tables = map[models.EntityType]table{
	models.EntityTypeInvestment: investmentTable,
	models.EntityTypeWithdrawal: withdrawalTable,
	models.EntityTypeSpinResult: spinResultTable,
}

// targetOf returns the status an action would produce from any status of
// the entity type. Every action has a single target per entity type.
func (t table) targetOf(action Action) (string, bool) {
	for _, edges := range t {
		if to, ok := edges[action]; ok {
			return to, true
		}
	}
	return "", false
}
