package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipehub/metrics"
	"recipehub/models"
	"recipehub/mq"
	"recipehub/querybuilder"
	"recipehub/validation"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

var hidePassword = bson.M{"password": 0}

// FollowResult carries both users after a follow or unfollow.
type FollowResult struct {
	FollowedUser *models.User `json:"followedUser"`
	FollowerUser *models.User `json:"followerUser"`
}

// PartialFollowError reports a follow or unfollow whose first counter
// update was applied and whose second was not.
type PartialFollowError struct {
	Applied string
	Err     error
}

func (e *PartialFollowError) Error() string {
	return fmt.Sprintf("%s was already applied: %v", e.Applied, e.Err)
}

func (e *PartialFollowError) Unwrap() error { return e.Err }

type Service struct {
	coll         *mongo.Collection
	events       mq.Emitter
	defaultLimit int64
	hashCost     int
	now          func() time.Time
}

func NewService(coll *mongo.Collection, events mq.Emitter, defaultLimit int64) *Service {
	if events == nil {
		events = mq.Nop{}
	}
	return &Service{
		coll:         coll,
		events:       events,
		defaultLimit: defaultLimit,
		hashCost:     bcrypt.DefaultCost,
		now:          time.Now,
	}
}

func duplicateEmail() error {
	return models.NewValidationError("Email already exists", []validation.FieldError{
		{Field: "email", Tag: "unique", Message: "email already exists"},
	})
}

func (s *Service) Create(ctx context.Context, in models.CreateUserInput) (*models.User, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         in.Name,
		Email:        in.Email,
		Password:     string(hashed),
		Role:         models.RoleUser,
		ProfilePhoto: in.ProfilePhoto,
		Bio:          in.Bio,
		IsPremium:    in.IsPremium,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateEmail()
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	user.Password = ""
	s.events.Emit(ctx, mq.Event{Type: mq.UserCreated, EntityID: user.ID.Hex(), ActorID: user.ID.Hex()})
	return user, nil
}

// List runs the listing query over users. Passwords are never returned.
func (s *Service) List(ctx context.Context, query map[string]any) ([]models.User, querybuilder.Meta, error) {
	qb := querybuilder.New(s.coll, query,
		querybuilder.WithHidden("password"),
		querybuilder.WithDefaultLimit(s.defaultLimit),
	).
		Search(models.UserSearchableFields).
		Filter().
		Sort().
		Paginate().
		Fields()

	users, err := querybuilder.All[models.User](ctx, qb)
	if err != nil {
		return nil, querybuilder.Meta{}, fmt.Errorf("list users: %w", err)
	}
	meta, err := qb.CountTotal(ctx)
	if err != nil {
		return nil, querybuilder.Meta{}, fmt.Errorf("count users: %w", err)
	}
	return users, meta, nil
}

func (s *Service) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(hidePassword)).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// findAndUpdate applies update to one user and returns the new document.
func (s *Service) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(hidePassword)

	var user models.User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateEmail()
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

func (s *Service) incCounter(ctx context.Context, id primitive.ObjectID, field string, delta int) (*models.User, error) {
	return s.findAndUpdate(ctx, id, bson.M{"$inc": bson.M{field: delta}})
}

// adjustFollow applies delta to followersCount on following, then to
// followingCount on follower. The two writes are independent.
func (s *Service) adjustFollow(ctx context.Context, action string, followerID, followingID primitive.ObjectID, delta int) (*FollowResult, error) {
	followed, err := s.incCounter(ctx, followingID, "followersCount", delta)
	if err != nil {
		metrics.UserFollows.WithLabelValues(action, "error").Inc()
		return nil, err
	}

	follower, err := s.incCounter(ctx, followerID, "followingCount", delta)
	if err != nil {
		metrics.UserFollows.WithLabelValues(action, "partial").Inc()
		log.Warn().Err(err).
			Str("action", action).
			Str("followerId", followerID.Hex()).
			Str("followingId", followingID.Hex()).
			Msg("follow counters left inconsistent")
		partial := &PartialFollowError{
			Applied: fmt.Sprintf("followersCount change on user %s", followingID.Hex()),
			Err:     err,
		}
		return nil, models.NewPartialWriteError(
			fmt.Sprintf("Partial %s: %s was already applied", action, partial.Applied), partial)
	}

	metrics.UserFollows.WithLabelValues(action, "ok").Inc()
	return &FollowResult{FollowedUser: followed, FollowerUser: follower}, nil
}

func (s *Service) Follow(ctx context.Context, followerID, followingID primitive.ObjectID) (*FollowResult, error) {
	res, err := s.adjustFollow(ctx, "follow", followerID, followingID, 1)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, mq.Event{
		Type:     mq.UserFollowed,
		EntityID: followingID.Hex(),
		ActorID:  followerID.Hex(),
		TargetID: followingID.Hex(),
	})
	return res, nil
}

// Unfollow decrements both counters. Counters are not floored at zero.
func (s *Service) Unfollow(ctx context.Context, followerID, followingID primitive.ObjectID) (*FollowResult, error) {
	res, err := s.adjustFollow(ctx, "unfollow", followerID, followingID, -1)
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, mq.Event{
		Type:     mq.UserUnfollowed,
		EntityID: followingID.Hex(),
		ActorID:  followerID.Hex(),
		TargetID: followingID.Hex(),
	})
	return res, nil
}

func (s *Service) Block(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{
		"isBlocked": true,
		"updatedAt": s.now().UTC(),
	}})
}

func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in models.UpdateUserInput) (*models.User, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": s.now().UTC()}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.Email != nil {
		set["email"] = *in.Email
	}
	if in.ProfilePhoto != nil {
		set["profilePhoto"] = *in.ProfilePhoto
	}
	if in.Bio != nil {
		set["bio"] = *in.Bio
	}
	if in.IsPremium != nil {
		set["isPremium"] = *in.IsPremium
	}
	if in.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		set["password"] = string(hashed)
	}

	return s.findAndUpdate(ctx, id, bson.M{"$set": set})
}

// Delete removes the user record. Their recipes are kept.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	opts := options.FindOneAndDelete().SetProjection(hidePassword)
	err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return &user, nil
}

var errBadCredentials = models.NewUnauthorizedError("Invalid email or password")

// Authenticate checks email and password. Blocked users are refused.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	if user.IsBlocked {
		return nil, models.NewForbiddenError("User is blocked")
	}

	user.Password = ""
	return &user, nil
}
