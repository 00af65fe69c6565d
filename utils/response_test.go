package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipehub/globals"
	"recipehub/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSendResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	SendResponse(rec, http.StatusCreated, map[string]string{"title": "Soup"}, "Recipe created")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 201, body["statusCode"])
	assert.Equal(t, "Recipe created", body["message"])
	assert.NotContains(t, body, "meta")
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/recipes/x", nil)

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", models.ErrRecipeNotFound, http.StatusNotFound, "Recipe not found"},
		{"forbidden", models.ErrCommentEditForbidden, http.StatusForbidden, "User not authorized to edit this comment"},
		{"validation", models.NewValidationError("title is required", nil), http.StatusBadRequest, "title is required"},
		{"plain error is sanitized", errors.New("connection reset by peer"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
			assert.Nil(t, body["data"])
		})
	}
}

func TestQueryMap(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users?page=2&role=user&role=admin", nil)
	q := QueryMap(req)
	assert.Equal(t, "2", q["page"])
	assert.Equal(t, []string{"user", "admin"}, q["role"])
}

func TestPathID(t *testing.T) {
	ps := httprouter.Params{{Key: "id", Value: "nope"}}
	_, err := PathID(ps, "id", models.ErrRecipeNotFound)
	assert.ErrorIs(t, err, models.ErrRecipeNotFound)

	ps = httprouter.Params{{Key: "id", Value: "507f1f77bcf86cd799439011"}}
	id, err := PathID(ps, "id", models.ErrRecipeNotFound)
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", id.Hex())

	_, err = BodyID("userId", "bad")
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))
}

func TestGetUserIDFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", GetUserIDFromRequest(req))

	req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, "abc"))
	assert.Equal(t, "abc", GetUserIDFromRequest(req))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_photo.png", SanitizeFilename("../../my photo.png"))
	assert.Equal(t, "file", SanitizeFilename(""))
}
