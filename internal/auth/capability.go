package auth

import "labreserve/internal/model"

// Actor is the authenticated identity and role performing an operation.
type Actor struct {
	UserID uint
	Role   model.Role
}

// Action names a privileged operation gated by the capability table.
type Action string

const (
	ActionLabWrite          Action = "lab:write"
	ActionEquipmentWrite    Action = "equipment:write"
	ActionReservationModify Action = "reservation:modify"
	ActionReservationDecide Action = "reservation:decide"
	// ActionReservationCancelAny allows cancelling reservations owned by
	// other users. Students cancel their own through the ownership rule in
	// the scheduler, not through this capability.
	ActionReservationCancelAny Action = "reservation:cancel_any"
	ActionLoanModify           Action = "loan:modify"
	ActionLoanDecide           Action = "loan:decide"
	ActionLoanReturn           Action = "loan:return"
	ActionListAll              Action = "listing:all"
	ActionReportView           Action = "report:view"
	ActionUserManage           Action = "user:manage"
)

// capabilities is the declarative (role, action) -> allowed table. Admin and
// Tech carry the same staff capabilities; students hold none of these and
// act only through ownership rules.
var capabilities = map[model.Role]map[Action]bool{
	model.RoleAdmin: {
		ActionLabWrite:             true,
		ActionEquipmentWrite:       true,
		ActionReservationModify:    true,
		ActionReservationDecide:    true,
		ActionReservationCancelAny: true,
		ActionLoanModify:           true,
		ActionLoanDecide:           true,
		ActionLoanReturn:           true,
		ActionListAll:              true,
		ActionReportView:           true,
		ActionUserManage:           true,
	},
	model.RoleTech: {
		ActionLabWrite:             true,
		ActionEquipmentWrite:       true,
		ActionReservationModify:    true,
		ActionReservationDecide:    true,
		ActionReservationCancelAny: true,
		ActionLoanModify:           true,
		ActionLoanDecide:           true,
		ActionLoanReturn:           true,
		ActionListAll:              true,
		ActionReportView:           true,
		ActionUserManage:           true,
	},
	model.RoleStudent: {},
}

// Can reports whether the role is allowed to perform the action.
func Can(role model.Role, action Action) bool {
	return capabilities[role][action]
}

// Can reports whether the actor is allowed to perform the action.
func (a Actor) Can(action Action) bool {
	return Can(a.Role, action)
}
