package recipes

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"recipehub/models"
	"recipehub/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func recipeID(ps httprouter.Params) (primitive.ObjectID, error) {
	return utils.PathID(ps, "id", models.ErrRecipeNotFound)
}

// Create handles POST /recipes
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in models.CreateRecipeInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if in.UserID == "" {
		in.UserID = utils.GetUserIDFromRequest(r)
	}

	recipe, err := h.svc.Create(ctx, in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusCreated, recipe, "Recipe created successfully")
}

// List handles GET /recipes
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	recipes, err := h.svc.List(ctx)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipes, "Recipes retrieved successfully")
}

// ListByUser handles GET /users/:id/recipes
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := utils.PathID(ps, "id", models.ErrUserNotFound)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	recipes, err := h.svc.ListByUser(ctx, userID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipes, "Recipes retrieved successfully")
}

// Get handles GET /recipes/:id
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	recipe, err := h.svc.GetByID(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipe, "Recipe retrieved successfully")
}

// Update handles PUT /recipes/:id
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var in models.UpdateRecipeInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	recipe, err := h.svc.Update(ctx, id, in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipe, "Recipe updated successfully")
}

// Delete handles DELETE /recipes/:id
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	recipe, err := h.svc.Delete(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipe, "Recipe deleted successfully")
}

// Upvote handles POST /recipes/:id/upvote
func (h *Handler) Upvote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.vote(w, r, ps, h.svc.Upvote, "Recipe upvoted successfully")
}

// Downvote handles POST /recipes/:id/downvote
func (h *Handler) Downvote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.vote(w, r, ps, h.svc.Downvote, "Recipe downvoted successfully")
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request, ps httprouter.Params,
	apply func(context.Context, primitive.ObjectID) (*models.Recipe, error), message string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	recipe, err := apply(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipe, message)
}

// Rate handles POST /recipes/:id/rate
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var in models.RateInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	recipe, err := h.svc.Rate(ctx, id, in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipe, "Recipe rated successfully")
}

// AddComment handles POST /recipes/:id/comment
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var in models.CommentInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	recipe, err := h.svc.AddComment(ctx, id, in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipe, "Comment added successfully")
}

// EditComment handles PUT /recipes/:id/comment/:commentId
func (h *Handler) EditComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var in models.EditCommentInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	recipe, err := h.svc.EditComment(ctx, id, ps.ByName("commentId"), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipe, "Comment updated successfully")
}

// DeleteComment handles DELETE /recipes/:id/comment/:commentId
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var in models.DeleteCommentInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	recipe, err := h.svc.DeleteComment(ctx, id, ps.ByName("commentId"), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipe, "Comment deleted successfully")
}

// UploadImage handles POST /recipes/:id/image (multipart field "image")
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		utils.WriteError(w, r, models.NewValidationError("Invalid multipart form", err.Error()))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.WriteError(w, r, models.NewValidationError("image file is required", nil))
		return
	}

	recipe, err := h.svc.SetImage(ctx, id, file, header)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, recipe, "Recipe image updated successfully")
}

// QRCode handles GET /recipes/:id/qr
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	png, err := h.svc.QRCode(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ExportPDF handles GET /recipes/:id/pdf
func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, err := recipeID(ps)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	doc, err := h.svc.ExportPDF(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=recipe-"+id.Hex()+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
