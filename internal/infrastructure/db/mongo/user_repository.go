package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
)

const usersCollection = "users"

type UserRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection), now: time.Now}
}

type mongoPermissions struct {
	CanApproveLeave         bool `bson:"can_approve_leave"`
	CanApproveReimbursement bool `bson:"can_approve_reimbursement"`
	CanManageSchedule       bool `bson:"can_manage_schedule"`
	CanViewReports          bool `bson:"can_view_reports"`
}

type mongoUser struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	EmployeeID          string             `bson:"employee_id,omitempty"`
	Username            string             `bson:"username"`
	Email               string             `bson:"email,omitempty"`
	FirstName           string             `bson:"first_name,omitempty"`
	LastName            string             `bson:"last_name,omitempty"`
	PasswordHash        string             `bson:"password_hash"`
	Role                string             `bson:"role"`
	Permissions         mongoPermissions   `bson:"permissions"`
	AllowedIPs          []string           `bson:"allowed_ips,omitempty"`
	IsActive            bool               `bson:"is_active"`
	FailedLoginAttempts int                `bson:"failed_login_attempts"`
	AccountLockedUntil  *time.Time         `bson:"account_locked_until,omitempty"`
	PasswordChangedAt   *time.Time         `bson:"password_changed_at,omitempty"`
	LastLoginAt         *time.Time         `bson:"last_login_at,omitempty"`
	CreatedAt           time.Time          `bson:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at"`
}

// EnsureIndexes creates the unique indexes the repository relies on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	unique := func(field string, sparse bool) mongo.IndexModel {
		opts := options.Index().SetUnique(true).SetName(field + "_unique")
		if sparse {
			opts.SetSparse(true)
		}
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: opts}
	}
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique("username", false),
		unique("email", true),
		unique("employee_id", true),
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	doc := toMongoUser(user)
	doc.ID = primitive.NilObjectID

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// Update applies upd in a single atomic findAndModify and returns the
// resulting record.
func (r *UserRepository) Update(ctx context.Context, id string, upd ports.CredentialUpdate) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	set := bson.M{"updated_at": r.now().UTC()}
	unset := bson.M{}
	if upd.ResetLockout {
		set["failed_login_attempts"] = 0
		unset["account_locked_until"] = ""
	}
	if upd.LastLoginAt != nil {
		set["last_login_at"] = upd.LastLoginAt.UTC()
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}
	if upd.PasswordChangedAt != nil {
		set["password_changed_at"] = upd.PasswordChangedAt.UTC()
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, update)
}

// RegisterFailedLogin increments the failure counter and arms the lock in one
// server-side pipeline, so concurrent failures are never lost.
func (r *UserRepository) RegisterFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "failed_login_attempts", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$failed_login_attempts", 0}}}, 1,
			}}}},
			{Key: "updated_at", Value: r.now().UTC()},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "account_locked_until", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gte", Value: bson.A{"$failed_login_attempts", maxAttempts}}},
				lockUntil.UTC(),
				"$account_locked_until",
			}}}},
		}}},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, pipeline)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, filter bson.M, update any) (*domain.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mu mongoUser
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return mu.toDomain(), nil
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		EmployeeID:   u.EmployeeID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Permissions: mongoPermissions{
			CanApproveLeave:         u.Permissions.CanApproveLeave,
			CanApproveReimbursement: u.Permissions.CanApproveReimbursement,
			CanManageSchedule:       u.Permissions.CanManageSchedule,
			CanViewReports:          u.Permissions.CanViewReports,
		},
		AllowedIPs:          u.AllowedIPs,
		IsActive:            u.IsActive,
		FailedLoginAttempts: u.FailedLoginAttempts,
		AccountLockedUntil:  utcPtr(u.AccountLockedUntil),
		PasswordChangedAt:   utcPtr(u.PasswordChangedAt),
		LastLoginAt:         utcPtr(u.LastLoginAt),
		CreatedAt:           u.CreatedAt.UTC(),
		UpdatedAt:           u.UpdatedAt.UTC(),
	}
}

func (mu mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:           mu.ID.Hex(),
		EmployeeID:   mu.EmployeeID,
		Username:     mu.Username,
		Email:        mu.Email,
		FirstName:    mu.FirstName,
		LastName:     mu.LastName,
		PasswordHash: mu.PasswordHash,
		Role:         domain.Role(mu.Role),
		Permissions: domain.Permissions{
			CanApproveLeave:         mu.Permissions.CanApproveLeave,
			CanApproveReimbursement: mu.Permissions.CanApproveReimbursement,
			CanManageSchedule:       mu.Permissions.CanManageSchedule,
			CanViewReports:          mu.Permissions.CanViewReports,
		},
		AllowedIPs:          mu.AllowedIPs,
		IsActive:            mu.IsActive,
		FailedLoginAttempts: mu.FailedLoginAttempts,
		AccountLockedUntil:  utcPtr(mu.AccountLockedUntil),
		PasswordChangedAt:   utcPtr(mu.PasswordChangedAt),
		LastLoginAt:         utcPtr(mu.LastLoginAt),
		CreatedAt:           mu.CreatedAt.UTC(),
		UpdatedAt:           mu.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
