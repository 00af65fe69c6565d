package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Rating struct {
	UserID primitive.ObjectID `json:"userId" bson:"userId"`
	Rating int                `json:"rating" bson:"rating"`
}

type Comment struct {
	ID        string             `json:"id" bson:"id"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Comment   string             `json:"comment" bson:"comment"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type Recipe struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title         string             `json:"title" bson:"title"`
	Ingredients   []string           `json:"ingredients" bson:"ingredients"`
	Instructions  string             `json:"instructions" bson:"instructions"`
	Image         *string            `json:"image" bson:"image"`
	Category      string             `json:"category,omitempty" bson:"category,omitempty"`
	UserID        primitive.ObjectID `json:"userId" bson:"userId"`
	Upvotes       int                `json:"upvotes" bson:"upvotes"`
	Downvotes     int                `json:"downvotes" bson:"downvotes"`
	Ratings       []Rating           `json:"ratings" bson:"ratings"`
	Comments      []Comment          `json:"comments" bson:"comments"`
	AverageRating *float64           `json:"averageRating" bson:"averageRating"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
}

// CommentView is a comment with its author resolved.
type CommentView struct {
	Comment
	Author *User `json:"author"`
}

// RecipeView is a recipe with its author and comment authors resolved.
type RecipeView struct {
	Recipe
	Author   *User         `json:"author"`
	Comments []CommentView `json:"comments"`
}

// Normalize replaces nil slices so documents always carry arrays.
func (r *Recipe) Normalize() {
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Ratings == nil {
		r.Ratings = []Rating{}
	}
	if r.Comments == nil {
		r.Comments = []Comment{}
	}
}

// Rate records userID's rating, replacing any earlier rating by the same
// user, and recomputes AverageRating.
func (r *Recipe) Rate(userID primitive.ObjectID, value int) {
	replaced := false
	for i := range r.Ratings {
		if r.Ratings[i].UserID == userID {
			r.Ratings[i].Rating = value
			replaced = true
			break
		}
	}
	if !replaced {
		r.Ratings = append(r.Ratings, Rating{UserID: userID, Rating: value})
	}
	r.AverageRating = averageOf(r.Ratings)
}

func averageOf(ratings []Rating) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	total := 0
	for _, rt := range ratings {
		total += rt.Rating
	}
	avg := float64(total) / float64(len(ratings))
	return &avg
}

// AddComment appends a new comment with a fresh id and returns it.
func (r *Recipe) AddComment(userID primitive.ObjectID, text string, now time.Time) Comment {
	c := Comment{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    userID,
		Comment:   text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.Comments = append(r.Comments, c)
	return c
}

func (r *Recipe) commentIndex(commentID string) int {
	for i := range r.Comments {
		if r.Comments[i].ID == commentID {
			return i
		}
	}
	return -1
}

// EditComment replaces the text of commentID if userID wrote it.
func (r *Recipe) EditComment(commentID string, userID primitive.ObjectID, text string, now time.Time) error {
	i := r.commentIndex(commentID)
	if i < 0 {
		return ErrCommentNotFound
	}
	if r.Comments[i].UserID != userID {
		return ErrCommentEditForbidden
	}
	r.Comments[i].Comment = text
	r.Comments[i].UpdatedAt = now
	return nil
}

// RemoveComment deletes commentID if userID wrote it, keeping the order of
// the remaining comments.
func (r *Recipe) RemoveComment(commentID string, userID primitive.ObjectID) error {
	i := r.commentIndex(commentID)
	if i < 0 {
		return ErrCommentNotFound
	}
	if r.Comments[i].UserID != userID {
		return ErrCommentDeleteForbidden
	}
	r.Comments = append(r.Comments[:i], r.Comments[i+1:]...)
	return nil
}

type CreateRecipeInput struct {
	Title        string   `json:"title" validate:"required"`
	Ingredients  []string `json:"ingredients" validate:"required,min=1,dive,required"`
	Instructions string   `json:"instructions" validate:"required"`
	Image        *string  `json:"image" validate:"omitempty,imageurl"`
	Category     string   `json:"category"`
	UserID       string   `json:"userId" validate:"required,mongodb"`
}

type UpdateRecipeInput struct {
	Title        *string   `json:"title" validate:"omitempty,min=1"`
	Ingredients  *[]string `json:"ingredients" validate:"omitempty,min=1,dive,required"`
	Instructions *string   `json:"instructions" validate:"omitempty,min=1"`
	Image        *string   `json:"image" validate:"omitempty,imageurl"`
	Category     *string   `json:"category"`
	UserID       *string   `json:"userId" validate:"omitempty,mongodb"`
}

type RateInput struct {
	UserID string `json:"userId" validate:"required,mongodb"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

type CommentInput struct {
	UserID  string `json:"userId" validate:"required,mongodb"`
	Comment string `json:"comment" validate:"required"`
}

type EditCommentInput struct {
	UpdatedComment string `json:"updatedComment" validate:"required"`
	UserID         string `json:"userId" validate:"required,mongodb"`
}

type DeleteCommentInput struct {
	UserID string `json:"userId" validate:"required,mongodb"`
}
