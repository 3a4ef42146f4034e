package actor

import (
	"errors"
	"testing"
)

func TestActor_RequireBackoffice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		actor   Actor
		wantErr bool
	}{
		{name: "admin", actor: Actor{ID: "1", Role: RoleAdmin}},
		{name: "staff", actor: Actor{ID: "2", Role: RoleStaff}},
		{name: "applicant", actor: Actor{ID: "3", Role: RoleApplicant}, wantErr: true},
		{name: "company", actor: Actor{ID: "4", Role: RoleCompany}, wantErr: true},
		{name: "anonymous staff", actor: Actor{Role: RoleStaff}, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.actor.RequireBackoffice()
			if tc.wantErr && !errors.Is(err, ErrPermissionDenied) {
				t.Fatalf("expected ErrPermissionDenied, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestActor_RequireAdmin(t *testing.T) {
	t.Parallel()

	if err := (Actor{ID: "1", Role: RoleAdmin}).RequireAdmin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Actor{ID: "2", Role: RoleStaff}).RequireAdmin(); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestRole_IsValid(t *testing.T) {
	t.Parallel()

	if !RoleApplicant.IsValid() {
		t.Fatalf("expected applicant role to be valid")
	}
	if Role("GUEST").IsValid() {
		t.Fatalf("expected unknown role to be invalid")
	}
}
