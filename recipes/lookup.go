package recipes

import (
	"context"
	"fmt"

	"recipehub/db"
	"recipehub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// resolvedRecipe is the shape produced by resolvePipeline.
type resolvedRecipe struct {
	models.Recipe  `bson:",inline"`
	Author         *models.User  `bson:"author,omitempty"`
	CommentAuthors []models.User `bson:"commentAuthors"`
}

// resolvePipeline joins the recipe author and every comment author.
// Password hashes never leave the database.
func resolvePipeline(match bson.M, sort bson.D) mongo.Pipeline {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	if len(sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})
	}
	return append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         db.UsersCollection,
			"localField":   "userId",
			"foreignField": "_id",
			"as":           "author",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$author",
			"preserveNullAndEmptyArrays": true,
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         db.UsersCollection,
			"localField":   "comments.userId",
			"foreignField": "_id",
			"as":           "commentAuthors",
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"author.password":         0,
			"commentAuthors.password": 0,
		}}},
	)
}

func (s *Service) resolve(ctx context.Context, match bson.M, sort bson.D) ([]models.RecipeView, error) {
	cursor, err := s.coll.Aggregate(ctx, resolvePipeline(match, sort))
	if err != nil {
		return nil, fmt.Errorf("aggregate recipes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []resolvedRecipe
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}

	views := make([]models.RecipeView, 0, len(docs))
	for i := range docs {
		views = append(views, docs[i].view())
	}
	return views, nil
}

func (d *resolvedRecipe) view() models.RecipeView {
	d.Recipe.Normalize()

	authors := make(map[primitive.ObjectID]*models.User, len(d.CommentAuthors))
	for i := range d.CommentAuthors {
		authors[d.CommentAuthors[i].ID] = &d.CommentAuthors[i]
	}

	comments := make([]models.CommentView, 0, len(d.Recipe.Comments))
	for _, c := range d.Recipe.Comments {
		comments = append(comments, models.CommentView{Comment: c, Author: authors[c.UserID]})
	}

	return models.RecipeView{Recipe: d.Recipe, Author: d.Author, Comments: comments}
}
