package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltdesk/maintenance-service/internal/auth"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/service"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

func assignments() *service.AssignmentService {
	return service.NewAssignmentService(auth.NewDefaultRolePolicy())
}

func engineerUser() *domain.User {
	return &domain.User{ID: "u-eng", TenantID: "t1", Role: domain.RoleASEngineer, IsActive: true}
}

func TestAssignUserSucceeds(t *testing.T) {
	effect, err := assignments().Assign(newTicket(domain.TicketStatusNew), nil, service.AssigneeSpec{
		Type: domain.AssigneeTypeUser,
		User: engineerUser(),
	}, manager(), false, now)
	require.NoError(t, err)

	require.NotNil(t, effect.New)
	assert.Nil(t, effect.Deactivate)
	assert.True(t, effect.New.Active)
	assert.Equal(t, "u-eng", effect.New.AssigneeRef())
	assert.Equal(t, "u-manager", effect.New.AssignedBy)
}

func TestAssignVendorSucceeds(t *testing.T) {
	effect, err := assignments().Assign(newTicket(domain.TicketStatusNew), nil, service.AssigneeSpec{
		Type:          domain.AssigneeTypeVendor,
		VendorName:    "ChargeFix GmbH",
		VendorContact: "service@chargefix.example",
	}, manager(), false, now)
	require.NoError(t, err)

	assert.Equal(t, "ChargeFix GmbH", effect.New.AssigneeRef())
	require.NotNil(t, effect.New.VendorContact)
}

func TestAssignRoleDenied(t *testing.T) {
	engineerActor := service.Actor{TenantID: "t1", UserID: "u-eng", Role: domain.RoleASEngineer}
	_, err := assignments().Assign(newTicket(domain.TicketStatusNew), nil, service.AssigneeSpec{
		Type: domain.AssigneeTypeUser,
		User: engineerUser(),
	}, engineerActor, false, now)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.Code(err))
}

func TestAssignRejectsSecondActiveWithoutReassign(t *testing.T) {
	active := activeAssignment()
	_, err := assignments().Assign(newTicket(domain.TicketStatusAssigned), active, service.AssigneeSpec{
		Type: domain.AssigneeTypeUser,
		User: engineerUser(),
	}, manager(), false, now)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAlreadyAssigned, apperrors.Code(err))
}

func TestReassignDeactivatesPrior(t *testing.T) {
	active := activeAssignment()
	effect, err := assignments().Assign(newTicket(domain.TicketStatusAssigned), active, service.AssigneeSpec{
		Type:       domain.AssigneeTypeVendor,
		VendorName: "ChargeFix GmbH",
	}, manager(), true, now)
	require.NoError(t, err)

	assert.Same(t, active, effect.Deactivate)
	assert.Equal(t, "ChargeFix GmbH", effect.New.AssigneeRef())
}

func TestAssignTerminalTicketRejected(t *testing.T) {
	_, err := assignments().Assign(newTicket(domain.TicketStatusClosed), nil, service.AssigneeSpec{
		Type: domain.AssigneeTypeUser,
		User: engineerUser(),
	}, manager(), false, now)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.Code(err))
}

func TestAssignCrossTenantUserLooksUnknown(t *testing.T) {
	foreign := engineerUser()
	foreign.TenantID = "t2"
	_, err := assignments().Assign(newTicket(domain.TicketStatusNew), nil, service.AssigneeSpec{
		Type: domain.AssigneeTypeUser,
		User: foreign,
	}, manager(), false, now)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidAssignee, apperrors.Code(err))
}

func TestAssignInactiveUserRejected(t *testing.T) {
	disabled := engineerUser()
	disabled.IsActive = false
	_, err := assignments().Assign(newTicket(domain.TicketStatusNew), nil, service.AssigneeSpec{
		Type: domain.AssigneeTypeUser,
		User: disabled,
	}, manager(), false, now)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidAssignee, apperrors.Code(err))
}

func TestAssignIneligibleRoleRejected(t *testing.T) {
	viewer := &domain.User{ID: "u-viewer", TenantID: "t1", Role: domain.RoleViewer, IsActive: true}
	_, err := assignments().Assign(newTicket(domain.TicketStatusNew), nil, service.AssigneeSpec{
		Type: domain.AssigneeTypeUser,
		User: viewer,
	}, manager(), false, now)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidAssignee, apperrors.Code(err))
}

func TestUnassignOnlyWhileNewOrAssigned(t *testing.T) {
	active := activeAssignment()

	released, err := assignments().Unassign(newTicket(domain.TicketStatusAssigned), active, manager())
	require.NoError(t, err)
	assert.Same(t, active, released)

	_, err = assignments().Unassign(newTicket(domain.TicketStatusInProgress), active, manager())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.Code(err))
}

func TestUnassignWithoutActiveRejected(t *testing.T) {
	_, err := assignments().Unassign(newTicket(domain.TicketStatusNew), nil, manager())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.Code(err))
}
