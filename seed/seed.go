// Package seed fills a development database with generated users and
// recipes. It is not used by the server.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recipehub/db"
	"recipehub/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

var categories = []string{"breakfast", "lunch", "dinner", "dessert", "snack"}

type Options struct {
	Users   int
	Recipes int
	Clean   bool
	// MaxDays spreads createdAt over the last MaxDays days.
	MaxDays int
}

type Seeder struct {
	store *db.Store
	faker *gofakeit.Faker
	now   func() time.Time
	hash  string
}

// NewSeeder fixes the generator with seed for reproducible data. Zero picks
// a random seed.
func NewSeeder(store *db.Store, seed int64) (*Seeder, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Seeder{store: store, faker: gofakeit.New(seed), now: time.Now, hash: string(hashed)}, nil
}

func (s *Seeder) createdAt(maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(s.faker.IntRange(0, maxDays*24*60)) * time.Minute
	return s.now().UTC().Add(-back).Truncate(time.Millisecond)
}

// BuildUsers generates n users. The first one is an admin.
func (s *Seeder) BuildUsers(n, maxDays int) []models.User {
	out := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		role := models.RoleUser
		if i == 0 {
			role = models.RoleAdmin
		}
		created := s.createdAt(maxDays)
		out = append(out, models.User{
			ID:           primitive.NewObjectID(),
			Name:         s.faker.Name(),
			Email:        fmt.Sprintf("%s.%d@example.com", strings.ToLower(s.faker.Username()), i),
			Password:     s.hash,
			Role:         role,
			ProfilePhoto: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
			Bio:          s.faker.Sentence(10),
			IsPremium:    s.faker.Bool(),
			CreatedAt:    created,
			UpdatedAt:    created,
		})
	}
	return out
}

func (s *Seeder) dish(category string) string {
	switch category {
	case "breakfast":
		return s.faker.Breakfast()
	case "lunch":
		return s.faker.Lunch()
	case "dinner":
		return s.faker.Dinner()
	case "dessert":
		return s.faker.Dessert()
	default:
		return s.faker.Snack()
	}
}

// BuildRecipes generates n recipes authored, rated and commented on by users.
// Ratings and comments go through the recipe's own mutation rules.
func (s *Seeder) BuildRecipes(users []models.User, n, maxDays int) []models.Recipe {
	if len(users) == 0 {
		return nil
	}
	out := make([]models.Recipe, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.faker.IntRange(0, len(users)-1)]
		category := categories[s.faker.IntRange(0, len(categories)-1)]

		ingredients := make([]string, s.faker.IntRange(3, 8))
		for j := range ingredients {
			if j%2 == 0 {
				ingredients[j] = s.faker.Vegetable()
			} else {
				ingredients[j] = s.faker.Fruit()
			}
		}

		image := fmt.Sprintf("https://picsum.photos/seed/%s/800/600", s.faker.UUID())
		r := models.Recipe{
			ID:           primitive.NewObjectID(),
			Title:        s.dish(category),
			Ingredients:  ingredients,
			Instructions: s.faker.Paragraph(1, 4, 12, "\n"),
			Image:        &image,
			Category:     category,
			UserID:       author.ID,
			Upvotes:      s.faker.IntRange(0, 50),
			Downvotes:    s.faker.IntRange(0, 10),
			CreatedAt:    s.createdAt(maxDays),
		}
		r.Normalize()

		for k := s.faker.IntRange(0, len(users)); k > 0; k-- {
			rater := users[s.faker.IntRange(0, len(users)-1)]
			r.Rate(rater.ID, s.faker.IntRange(1, 5))
		}
		comments := s.faker.IntRange(0, 4)
		for k := 1; k <= comments; k++ {
			commenter := users[s.faker.IntRange(0, len(users)-1)]
			r.AddComment(commenter.ID, s.faker.Sentence(8), r.CreatedAt.Add(time.Duration(k)*time.Hour))
		}
		out = append(out, r)
	}
	return out
}

// Run optionally clears both collections, then inserts generated data.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	if opts.Clean {
		if _, err := s.store.Recipes.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("clear recipes: %w", err)
		}
		if _, err := s.store.Users.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		log.Info().Msg("cleared users and recipes")
	}

	users := s.BuildUsers(opts.Users, opts.MaxDays)
	if len(users) == 0 {
		return nil
	}
	userDocs := make([]any, len(users))
	for i := range users {
		userDocs[i] = users[i]
	}
	if _, err := s.store.Users.InsertMany(ctx, userDocs); err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	log.Info().Int("count", len(users)).Msg("seeded users")

	recipes := s.BuildRecipes(users, opts.Recipes, opts.MaxDays)
	if len(recipes) == 0 {
		return nil
	}
	recipeDocs := make([]any, len(recipes))
	for i := range recipes {
		recipeDocs[i] = recipes[i]
	}
	if _, err := s.store.Recipes.InsertMany(ctx, recipeDocs); err != nil {
		return fmt.Errorf("insert recipes: %w", err)
	}
	log.Info().Int("count", len(recipes)).Msg("seeded recipes")
	return nil
}
