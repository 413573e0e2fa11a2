package hub

import (
	"testing"

	"letshare-server/internal/model"
)

func TestValidateRoomName(t *testing.T) {
	valid := []string{"operators", "directors", "order:123", "city:Moscow", "master:7", "a"}
	for _, name := range valid {
		if err := ValidateRoomName(name); err != nil {
			t.Errorf("ValidateRoomName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "city:Саратов", "room with spaces", "room/slash"}
	for _, name := range invalid {
		if err := ValidateRoomName(name); err != ErrInvalidRoomName {
			t.Errorf("ValidateRoomName(%q) = %v, want ErrInvalidRoomName", name, err)
		}
	}
}

func TestCheckJoinACLDirectorsRoom(t *testing.T) {
	director := model.AuthUser{UserID: 1, Role: model.RoleDirector}
	operator := model.AuthUser{UserID: 2, Role: model.RoleOperator}

	if err := checkJoinACL(director, "directors"); err != nil {
		t.Errorf("director should be able to join directors: %v", err)
	}
	if err := checkJoinACL(operator, "directors"); err != ErrForbiddenRoom {
		t.Errorf("operator joining directors = %v, want ErrForbiddenRoom", err)
	}
}

func TestCheckJoinACLOperatorsRoomIsOpen(t *testing.T) {
	director := model.AuthUser{UserID: 1, Role: model.RoleDirector}
	if err := checkJoinACL(director, "operators"); err != nil {
		t.Errorf("operators room should be open to any authenticated user: %v", err)
	}
}

func TestCheckJoinACLSubjectRoomsOwnIdentity(t *testing.T) {
	operator := model.AuthUser{UserID: 5, Role: model.RoleOperator}
	if err := checkJoinACL(operator, "operator:5"); err != nil {
		t.Errorf("user should join their own operator:<id> room: %v", err)
	}
	if err := checkJoinACL(operator, "user:5"); err != nil {
		t.Errorf("user should join their own user:<id> room: %v", err)
	}
}

func TestCheckJoinACLSubjectRoomsOtherIdentityRequiresDirector(t *testing.T) {
	operator := model.AuthUser{UserID: 5, Role: model.RoleOperator}
	if err := checkJoinACL(operator, "operator:6"); err != ErrForbiddenRoom {
		t.Errorf("operator joining another operator's room = %v, want ErrForbiddenRoom", err)
	}

	director := model.AuthUser{UserID: 1, Role: model.RoleDirector}
	if err := checkJoinACL(director, "operator:6"); err != nil {
		t.Errorf("director should be able to join another subject's room: %v", err)
	}
}

func TestCheckJoinACLOrderAndCityRoomsAreOpen(t *testing.T) {
	operator := model.AuthUser{UserID: 5, Role: model.RoleOperator}
	if err := checkJoinACL(operator, "order:999"); err != nil {
		t.Errorf("order rooms should be open: %v", err)
	}
	if err := checkJoinACL(operator, "city:Moscow"); err != nil {
		t.Errorf("city rooms should be open: %v", err)
	}
}
