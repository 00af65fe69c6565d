package recipes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipehub/metrics"
	"recipehub/models"
	"recipehub/mq"
	"recipehub/utils"
	"recipehub/validation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Service holds the recipe aggregate operations. Mutations of ratings and
// comments load the whole recipe and replace it. The last writer wins.
type Service struct {
	coll   *mongo.Collection
	events mq.Emitter
	media  MediaSettings
	now    func() time.Time
}

func NewService(coll *mongo.Collection, events mq.Emitter, media MediaSettings) *Service {
	if events == nil {
		events = mq.Nop{}
	}
	return &Service{coll: coll, events: events, media: media, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in models.CreateRecipeInput) (*models.Recipe, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	userID, err := utils.BodyID("userId", in.UserID)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		ID:           primitive.NewObjectID(),
		Title:        in.Title,
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
		Image:        in.Image,
		Category:     in.Category,
		UserID:       userID,
		CreatedAt:    s.now().UTC(),
	}
	recipe.Normalize()

	if _, err := s.coll.InsertOne(ctx, recipe); err != nil {
		return nil, fmt.Errorf("insert recipe: %w", err)
	}

	s.events.Emit(ctx, mq.Event{Type: mq.RecipeCreated, EntityID: recipe.ID.Hex(), ActorID: userID.Hex()})
	return recipe, nil
}

// List returns every recipe, most upvoted first.
func (s *Service) List(ctx context.Context) ([]models.RecipeView, error) {
	return s.resolve(ctx, bson.M{}, bson.D{{Key: "upvotes", Value: -1}, {Key: "createdAt", Value: -1}})
}

// ListByUser returns the recipes of one author, newest first.
func (s *Service) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.RecipeView, error) {
	return s.resolve(ctx, bson.M{"userId": userID}, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Service) GetByID(ctx context.Context, id primitive.ObjectID) (*models.RecipeView, error) {
	views, err := s.resolve(ctx, bson.M{"_id": id}, nil)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, models.ErrRecipeNotFound
	}
	return &views[0], nil
}

func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in models.UpdateRecipeInput) (*models.Recipe, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	set := bson.M{}
	if in.Title != nil {
		set["title"] = *in.Title
	}
	if in.Ingredients != nil {
		set["ingredients"] = *in.Ingredients
	}
	if in.Instructions != nil {
		set["instructions"] = *in.Instructions
	}
	if in.Image != nil {
		set["image"] = *in.Image
	}
	if in.Category != nil {
		set["category"] = *in.Category
	}
	if in.UserID != nil {
		userID, err := utils.BodyID("userId", *in.UserID)
		if err != nil {
			return nil, err
		}
		set["userId"] = userID
	}
	if len(set) == 0 {
		return nil, models.NewValidationError("No fields to update", nil)
	}

	recipe, err := s.findAndUpdate(ctx, id, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, mq.Event{Type: mq.RecipeUpdated, EntityID: id.Hex()})
	return recipe, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&recipe)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete recipe: %w", err)
	}

	s.events.Emit(ctx, mq.Event{Type: mq.RecipeDeleted, EntityID: id.Hex(), ActorID: recipe.UserID.Hex()})
	return &recipe, nil
}

func (s *Service) Upvote(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	return s.vote(ctx, id, "upvotes", "up")
}

func (s *Service) Downvote(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	return s.vote(ctx, id, "downvotes", "down")
}

// vote increments a counter by one. Repeated votes are all counted.
func (s *Service) vote(ctx context.Context, id primitive.ObjectID, field, direction string) (*models.Recipe, error) {
	recipe, err := s.findAndUpdate(ctx, id, bson.M{"$inc": bson.M{field: 1}})
	if err != nil {
		return nil, err
	}
	metrics.RecipeVotes.WithLabelValues(direction).Inc()
	return recipe, nil
}

func (s *Service) Rate(ctx context.Context, id primitive.ObjectID, in models.RateInput) (*models.Recipe, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	userID, err := utils.BodyID("userId", in.UserID)
	if err != nil {
		return nil, err
	}

	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	recipe.Rate(userID, in.Rating)
	if err := s.replace(ctx, recipe); err != nil {
		return nil, err
	}

	metrics.RecipeRatings.Inc()
	s.events.Emit(ctx, mq.Event{
		Type:     mq.RecipeRated,
		EntityID: id.Hex(),
		ActorID:  userID.Hex(),
		TargetID: recipe.UserID.Hex(),
	})
	return recipe, nil
}

func (s *Service) AddComment(ctx context.Context, id primitive.ObjectID, in models.CommentInput) (*models.Recipe, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	userID, err := utils.BodyID("userId", in.UserID)
	if err != nil {
		return nil, err
	}

	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	recipe.AddComment(userID, in.Comment, s.now().UTC())
	if err := s.replace(ctx, recipe); err != nil {
		return nil, err
	}

	metrics.RecipeComments.WithLabelValues("added").Inc()
	s.events.Emit(ctx, mq.Event{
		Type:     mq.CommentAdded,
		EntityID: id.Hex(),
		ActorID:  userID.Hex(),
		TargetID: recipe.UserID.Hex(),
	})
	return recipe, nil
}

// EditComment replaces the text of a comment written by the requester.
func (s *Service) EditComment(ctx context.Context, id primitive.ObjectID, commentID string, in models.EditCommentInput) (*models.Recipe, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	requester, err := utils.BodyID("userId", in.UserID)
	if err != nil {
		return nil, err
	}

	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := recipe.EditComment(commentID, requester, in.UpdatedComment, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.replace(ctx, recipe); err != nil {
		return nil, err
	}

	metrics.RecipeComments.WithLabelValues("edited").Inc()
	return recipe, nil
}

// DeleteComment removes a comment written by the requester.
func (s *Service) DeleteComment(ctx context.Context, id primitive.ObjectID, commentID string, in models.DeleteCommentInput) (*models.Recipe, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	requester, err := utils.BodyID("userId", in.UserID)
	if err != nil {
		return nil, err
	}

	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := recipe.RemoveComment(commentID, requester); err != nil {
		return nil, err
	}
	if err := s.replace(ctx, recipe); err != nil {
		return nil, err
	}

	metrics.RecipeComments.WithLabelValues("deleted").Inc()
	return recipe, nil
}

func (s *Service) load(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&recipe)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recipe: %w", err)
	}
	recipe.Normalize()
	return &recipe, nil
}

func (s *Service) replace(ctx context.Context, recipe *models.Recipe) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": recipe.ID}, recipe)
	if err != nil {
		return fmt.Errorf("save recipe: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrRecipeNotFound
	}
	return nil
}

func (s *Service) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Recipe, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var recipe models.Recipe
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&recipe)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}
	recipe.Normalize()
	return &recipe, nil
}
