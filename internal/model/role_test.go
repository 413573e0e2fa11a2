package model_test

import (
	"testing"

	"letshare-server/internal/model"
)

func TestNormalizeRole(t *testing.T) {
	cases := map[string]model.Role{
		"  Operator ":        model.RoleOperator,
		"DIRECTOR":           model.RoleDirector,
		"callcentre_operator": model.RoleCallcentreOperator,
	}
	for in, want := range cases {
		if got := model.NormalizeRole(in); got != want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAutoJoinRooms(t *testing.T) {
	cases := []struct {
		role  model.Role
		rooms []string
	}{
		{model.RoleOperator, []string{"operator", "operators"}},
		{model.RoleCallcentreOperator, []string{"callcentre_operator", "operators"}},
		{model.RoleDirector, []string{"director", "directors"}},
	}
	for _, c := range cases {
		got := c.role.AutoJoinRooms()
		if len(got) != len(c.rooms) {
			t.Fatalf("role %q: got %v, want %v", c.role, got, c.rooms)
		}
		for i := range got {
			if got[i] != c.rooms[i] {
				t.Errorf("role %q: got %v, want %v", c.role, got, c.rooms)
			}
		}
	}
}

func TestIsOperator(t *testing.T) {
	if !model.RoleOperator.IsOperator() {
		t.Error("expected RoleOperator.IsOperator() == true")
	}
	if !model.RoleCallcentreOperator.IsOperator() {
		t.Error("expected RoleCallcentreOperator.IsOperator() == true")
	}
	if model.RoleDirector.IsOperator() {
		t.Error("expected RoleDirector.IsOperator() == false")
	}
}

func TestMayActAsDirector(t *testing.T) {
	if !model.RoleDirector.MayActAsDirector() {
		t.Error("expected director to act as director")
	}
	if model.RoleOperator.MayActAsDirector() {
		t.Error("expected operator not to act as director")
	}
}
