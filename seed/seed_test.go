package seed

import (
	"context"
	"testing"

	"recipehub/db"
	"recipehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"golang.org/x/crypto/bcrypt"
)

func TestBuildUsers(t *testing.T) {
	s, err := NewSeeder(nil, 42)
	require.NoError(t, err)

	users := s.BuildUsers(25, 30)
	require.Len(t, users, 25)
	assert.Equal(t, models.RoleAdmin, users[0].Role)

	emails := map[string]bool{}
	for _, u := range users {
		assert.False(t, emails[u.Email], "duplicate email %s", u.Email)
		emails[u.Email] = true
		assert.NotEmpty(t, u.Name)
	}
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[1].Password), []byte(DefaultPassword)))
}

func TestBuildRecipesKeepsInvariants(t *testing.T) {
	s, err := NewSeeder(nil, 7)
	require.NoError(t, err)

	users := s.BuildUsers(10, 30)
	recipes := s.BuildRecipes(users, 40, 30)
	require.Len(t, recipes, 40)

	for _, r := range recipes {
		assert.NotEmpty(t, r.Title)
		assert.NotEmpty(t, r.Ingredients)

		raters := map[string]bool{}
		sum := 0
		for _, rt := range r.Ratings {
			assert.False(t, raters[rt.UserID.Hex()], "user rated twice")
			raters[rt.UserID.Hex()] = true
			assert.GreaterOrEqual(t, rt.Rating, 1)
			assert.LessOrEqual(t, rt.Rating, 5)
			sum += rt.Rating
		}
		if len(r.Ratings) == 0 {
			assert.Nil(t, r.AverageRating)
		} else {
			require.NotNil(t, r.AverageRating)
			assert.InDelta(t, float64(sum)/float64(len(r.Ratings)), *r.AverageRating, 1e-9)
		}

		ids := map[string]bool{}
		for _, c := range r.Comments {
			assert.False(t, ids[c.ID], "duplicate comment id")
			ids[c.ID] = true
		}
	}

	assert.Nil(t, s.BuildRecipes(nil, 5, 30))
}

func TestRun(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("clean then insert", func(mt *mtest.T) {
		s, err := NewSeeder(db.NewStore(mt.DB), 1)
		require.NoError(mt, err)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 4}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 6}),
		)

		require.NoError(mt, s.Run(context.Background(), Options{Users: 4, Recipes: 6, Clean: true}))

		var commands []string
		for evt := mt.GetStartedEvent(); evt != nil; evt = mt.GetStartedEvent() {
			commands = append(commands, evt.CommandName)
		}
		assert.Equal(mt, []string{"delete", "delete", "insert", "insert"}, commands)
	})

	mt.Run("nothing to insert", func(mt *mtest.T) {
		s, err := NewSeeder(db.NewStore(mt.DB), 1)
		require.NoError(mt, err)

		require.NoError(mt, s.Run(context.Background(), Options{}))
		assert.Nil(mt, mt.GetStartedEvent())
	})
}
