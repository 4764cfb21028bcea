package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"examgate.org/internal/authz"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func TestGetUserBase(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select email_verified, status from users").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"email_verified", "status"}).AddRow(true, "suspended"))

	base, err := store.GetUserBase(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserBase: %v", err)
	}
	if !base.EmailVerified || base.Status != authz.StatusSuspended {
		t.Fatalf("unexpected base: %+v", base)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetUserBaseVanishedRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select email_verified, status from users").
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"email_verified", "status"}))

	if _, err := store.GetUserBase(context.Background(), "gone"); !errors.Is(err, authz.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserRolesFiltersActive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select r.name from roles").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("editor").AddRow("grader"))

	roles, err := store.GetUserRoles(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserRoles: %v", err)
	}
	if len(roles) != 2 || roles[0] != "editor" || roles[1] != "grader" {
		t.Fatalf("unexpected roles: %v", roles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetUserPermissionsUnionsRoleAndDirectGrants(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("union").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("exam.publish").AddRow("exam.read"))

	keys, err := store.GetUserPermissions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserPermissions: %v", err)
	}
	if len(keys) != 2 || keys[0] != "exam.publish" || keys[1] != "exam.read" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestGrantQueriesPropagateErrors(t *testing.T) {
	store, mock := newMockStore(t)
	dbErr := errors.New("connection reset")

	mock.ExpectQuery("select r.name from roles").WithArgs("u1").WillReturnError(dbErr)
	if _, err := store.GetUserRoles(context.Background(), "u1"); !errors.Is(err, dbErr) {
		t.Fatalf("expected db error, got %v", err)
	}

	mock.ExpectQuery("union").WithArgs("u1").WillReturnError(dbErr)
	if _, err := store.GetUserPermissions(context.Background(), "u1"); !errors.Is(err, dbErr) {
		t.Fatalf("expected db error, got %v", err)
	}
}
