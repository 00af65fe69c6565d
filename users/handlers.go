package users

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"recipehub/models"
	"recipehub/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityReader returns the most recent activity entries of a user.
type ActivityReader interface {
	Recent(ctx context.Context, userID string, n int64) ([]json.RawMessage, error)
}

type Handler struct {
	svc      *Service
	activity ActivityReader
}

// NewHandler builds the user handlers. activity may be nil.
func NewHandler(svc *Service, activity ActivityReader) *Handler {
	return &Handler{svc: svc, activity: activity}
}

// Register handles POST /users
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in models.CreateUserInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Create(ctx, in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusCreated, user, "User Created Successfully")
}

// List handles GET /users
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	users, meta, err := h.svc.List(ctx, utils.QueryMap(r))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	utils.SendPaginated(w, http.StatusOK, users, meta, "Users Retrieved Successfully")
}

// Get handles GET /users/:id
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := utils.PathID(ps, "id", models.ErrUserNotFound)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	user, err := h.svc.GetByID(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, user, "User Retrieved Successfully")
}

// Update handles PUT /users/:id. Users may only edit themselves.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := utils.PathID(ps, "id", models.ErrUserNotFound)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if utils.GetUserIDFromRequest(r) != id.Hex() {
		utils.WriteError(w, r, models.NewForbiddenError("You can only update your own profile"))
		return
	}

	var in models.UpdateUserInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Update(ctx, id, in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, user, "User Updated Successfully")
}

// Delete handles DELETE /users/:id for the user or an admin.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := utils.PathID(ps, "id", models.ErrUserNotFound)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if utils.GetUserIDFromRequest(r) != id.Hex() && utils.GetRoleFromRequest(r) != models.RoleAdmin {
		utils.WriteError(w, r, models.NewForbiddenError("You can only delete your own account"))
		return
	}

	user, err := h.svc.Delete(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, user, "User Deleted Successfully")
}

// Block handles PATCH /users/:id/block
func (h *Handler) Block(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := utils.PathID(ps, "id", models.ErrUserNotFound)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Block(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, user, "User Blocked Successfully")
}

// followTarget reads {followingId} and the follower id from the token.
func followTarget(r *http.Request) (follower, following primitive.ObjectID, err error) {
	var in models.FollowInput
	if err = utils.DecodeJSON(r, &in); err != nil {
		return
	}
	if following, err = utils.BodyID("followingId", in.FollowingID); err != nil {
		return
	}
	follower, err = utils.BodyID("userId", utils.GetUserIDFromRequest(r))
	if err != nil {
		err = models.NewUnauthorizedError("Invalid token")
	}
	return
}

// Follow handles POST /users/follow
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	follower, following, err := followTarget(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Follow(ctx, follower, following)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, res, "User followed successfully")
}

// Unfollow handles POST /users/unfollow
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	follower, following, err := followTarget(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Unfollow(ctx, follower, following)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, map[string]*models.User{
		"unfollowedUser": res.FollowedUser,
		"unfollowerUser": res.FollowerUser,
	}, "User unfollowed successfully")
}

// Activity handles GET /users/:id/activity?limit=n
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := utils.PathID(ps, "id", models.ErrUserNotFound)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	items := []json.RawMessage{}
	if h.activity != nil {
		limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
		if err != nil || limit <= 0 {
			limit = 20
		}
		items, err = h.activity.Recent(ctx, id.Hex(), limit)
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		if items == nil {
			items = []json.RawMessage{}
		}
	}
	utils.SendResponse(w, http.StatusOK, items, "Activity Retrieved Successfully")
}
