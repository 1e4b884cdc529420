package mongo

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
)

func userDoc(id primitive.ObjectID, attempts int, lockedUntil *time.Time) bson.D {
	doc := bson.D{
		{Key: "_id", Value: id},
		{Key: "username", Value: "jdoe"},
		{Key: "password_hash", Value: "hash"},
		{Key: "role", Value: "manager"},
		{Key: "permissions", Value: bson.D{{Key: "can_approve_leave", Value: true}}},
		{Key: "is_active", Value: true},
		{Key: "failed_login_attempts", Value: attempts},
	}
	if lockedUntil != nil {
		doc = append(doc, bson.E{Key: "account_locked_until", Value: *lockedUntil})
	}
	return doc
}

func TestUserRepository_FindByUsername(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "hrms.users", mtest.FirstBatch, userDoc(id, 2, nil)))

		repo := NewUserRepository(mt.DB)
		u, err := repo.FindByUsername(t.Context(), "jdoe")
		if err != nil {
			mt.Fatalf("FindByUsername: %v", err)
		}
		if u.ID != id.Hex() || u.Role != domain.RoleManager || !u.Permissions.CanApproveLeave {
			mt.Fatalf("unexpected user: %+v", u)
		}
		if u.FailedLoginAttempts != 2 {
			mt.Fatalf("expected 2 failed attempts, got %d", u.FailedLoginAttempts)
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "hrms.users", mtest.FirstBatch))

		repo := NewUserRepository(mt.DB)
		if _, err := repo.FindByUsername(t.Context(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
			mt.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserRepository_FindByID_MalformedID(t *testing.T) {
	repo := &UserRepository{}
	if _, err := repo.FindByID(t.Context(), "not-an-object-id"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.Update(t.Context(), "nope", ports.CredentialUpdate{}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		repo := NewUserRepository(mt.DB)
		u, err := repo.Create(t.Context(), &domain.User{Username: "jdoe", Role: domain.RoleEmployee, IsActive: true})
		if err != nil {
			mt.Fatalf("Create: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(u.ID); err != nil {
			mt.Fatalf("expected generated object id, got %q", u.ID)
		}
	})

	mt.Run("duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		repo := NewUserRepository(mt.DB)
		if _, err := repo.Create(t.Context(), &domain.User{Username: "jdoe"}); !errors.Is(err, domain.ErrUserExists) {
			mt.Fatalf("expected ErrUserExists, got %v", err)
		}
	})
}

func TestUserRepository_RegisterFailedLogin(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns updated record", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		lock := time.Date(2025, 1, 1, 12, 15, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: userDoc(id, 5, &lock)},
		))

		repo := NewUserRepository(mt.DB)
		u, err := repo.RegisterFailedLogin(t.Context(), id.Hex(), 5, lock)
		if err != nil {
			mt.Fatalf("RegisterFailedLogin: %v", err)
		}
		if u.FailedLoginAttempts != 5 || u.AccountLockedUntil == nil || !u.AccountLockedUntil.Equal(lock) {
			mt.Fatalf("unexpected lockout state: %+v", u)
		}
	})

	mt.Run("missing user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		repo := NewUserRepository(mt.DB)
		_, err := repo.RegisterFailedLogin(t.Context(), primitive.NewObjectID().Hex(), 5, time.Now())
		if !errors.Is(err, domain.ErrUserNotFound) {
			mt.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}

// evalStages applies the $set stages of an update pipeline to doc, covering
// the operators the lockout pipeline uses.
func evalStages(t *testing.T, pipeline bson.Raw, doc map[string]any) map[string]any {
	t.Helper()
	stages, err := pipeline.Values()
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	for _, stage := range stages {
		fields, err := stage.Document().Lookup("$set").Document().Elements()
		if err != nil {
			t.Fatalf("stage: %v", err)
		}
		next := make(map[string]any, len(doc))
		for k, v := range doc {
			next[k] = v
		}
		for _, f := range fields {
			next[f.Key()] = evalExpr(t, f.Value(), doc)
		}
		doc = next
	}
	return doc
}

func evalExpr(t *testing.T, v bson.RawValue, doc map[string]any) any {
	t.Helper()
	switch v.Type {
	case bson.TypeString:
		if s := v.StringValue(); strings.HasPrefix(s, "$") {
			return doc[s[1:]]
		}
		return v.StringValue()
	case bson.TypeInt32, bson.TypeInt64:
		return v.AsInt64()
	case bson.TypeDateTime:
		return v.Time().UTC()
	case bson.TypeNull:
		return nil
	case bson.TypeEmbeddedDocument:
		op := v.Document().Index(0)
		args, err := op.Value().Array().Values()
		if err != nil {
			t.Fatalf("%s args: %v", op.Key(), err)
		}
		switch op.Key() {
		case "$ifNull":
			if got := evalExpr(t, args[0], doc); got != nil {
				return got
			}
			return evalExpr(t, args[1], doc)
		case "$add":
			var sum int64
			for _, a := range args {
				sum += evalExpr(t, a, doc).(int64)
			}
			return sum
		case "$gte":
			return evalExpr(t, args[0], doc).(int64) >= evalExpr(t, args[1], doc).(int64)
		case "$cond":
			if evalExpr(t, args[0], doc).(bool) {
				return evalExpr(t, args[1], doc)
			}
			return evalExpr(t, args[2], doc)
		}
		t.Fatalf("unsupported operator %s", op.Key())
	}
	t.Fatalf("unsupported value type %s", v.Type)
	return nil
}

func TestUserRepository_RegisterFailedLogin_Pipeline(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	lock := time.Date(2025, 1, 1, 12, 15, 0, 0, time.UTC)
	earlier := lock.Add(-time.Hour)

	cases := []struct {
		name       string
		stored     map[string]any
		wantCount  int64
		wantLocked any
	}{
		{"fifth failure arms the lock", map[string]any{"failed_login_attempts": int64(4)}, 5, lock},
		{"fourth failure leaves it unset", map[string]any{"failed_login_attempts": int64(3)}, 4, nil},
		{"first failure on a fresh record", map[string]any{}, 1, nil},
		{"below threshold keeps an existing lock", map[string]any{"failed_login_attempts": int64(1), "account_locked_until": earlier}, 2, earlier},
		{"past threshold re-arms", map[string]any{"failed_login_attempts": int64(7), "account_locked_until": earlier}, 8, lock},
	}

	for _, tc := range cases {
		mt.Run(tc.name, func(mt *mtest.T) {
			id := primitive.NewObjectID()
			mt.AddMockResponses(mtest.CreateSuccessResponse(
				bson.E{Key: "value", Value: userDoc(id, 0, nil)},
			))

			repo := NewUserRepository(mt.DB)
			if _, err := repo.RegisterFailedLogin(t.Context(), id.Hex(), 5, lock); err != nil {
				mt.Fatalf("RegisterFailedLogin: %v", err)
			}

			started := mt.GetStartedEvent()
			if started == nil || started.CommandName != "findAndModify" {
				mt.Fatalf("expected findAndModify, got %+v", started)
			}
			if got := started.Command.Lookup("query", "_id").ObjectID(); got != id {
				mt.Fatalf("filter targets %s, want %s", got.Hex(), id.Hex())
			}
			update, ok := started.Command.Lookup("update").ArrayOK()
			if !ok {
				mt.Fatalf("update must be a pipeline, got %s", started.Command.Lookup("update").Type)
			}

			got := evalStages(mt.T, update, tc.stored)
			if got["failed_login_attempts"] != tc.wantCount {
				mt.Fatalf("failed_login_attempts = %v, want %d", got["failed_login_attempts"], tc.wantCount)
			}
			locked, _ := got["account_locked_until"].(time.Time)
			switch want := tc.wantLocked.(type) {
			case nil:
				if got["account_locked_until"] != nil {
					mt.Fatalf("account_locked_until = %v, want unset", got["account_locked_until"])
				}
			case time.Time:
				if !locked.Equal(want) {
					mt.Fatalf("account_locked_until = %v, want %v", got["account_locked_until"], want)
				}
			}
		})
	}
}

func TestUserRepository_Update_ResetLockout(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("clears lock", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: userDoc(id, 0, nil)},
		))

		now := time.Now()
		repo := NewUserRepository(mt.DB)
		u, err := repo.Update(t.Context(), id.Hex(), ports.CredentialUpdate{ResetLockout: true, LastLoginAt: &now})
		if err != nil {
			mt.Fatalf("Update: %v", err)
		}
		if u.FailedLoginAttempts != 0 || u.AccountLockedUntil != nil {
			mt.Fatalf("expected lockout cleared: %+v", u)
		}
	})
}
