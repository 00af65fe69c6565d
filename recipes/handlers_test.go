package recipes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recipehub/globals"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     json.RawMessage `json:"errors"`
}

func decode(t testing.TB, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func idParams(id string) httprouter.Params {
	return httprouter.Params{{Key: "id", Value: id}}
}

func TestHandlers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("malformed id is not found", func(mt *mtest.T) {
		h := NewHandler(newTestService(mt, &recordingEmitter{}, MediaSettings{}))
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/recipes/zzz", nil), idParams("zzz"))

		assert.Equal(mt, http.StatusNotFound, rec.Code)
		env := decode(mt, rec)
		assert.False(mt, env.Success)
		assert.Equal(mt, "Recipe not found", env.Message)
		assert.Equal(mt, "null", string(env.Data))
	})

	mt.Run("create defaults author to caller", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		h := NewHandler(newTestService(mt, &recordingEmitter{}, MediaSettings{}))
		caller := primitive.NewObjectID().Hex()

		req := httptest.NewRequest(http.MethodPost, "/recipes",
			strings.NewReader(`{"title":"Soup","ingredients":["water"],"instructions":"boil"}`))
		req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, caller))
		rec := httptest.NewRecorder()
		h.Create(rec, req, nil)

		require.Equal(mt, http.StatusCreated, rec.Code)
		assert.Contains(mt, string(decode(mt, rec).Data), caller)
	})

	mt.Run("create validation details", func(mt *mtest.T) {
		h := NewHandler(newTestService(mt, &recordingEmitter{}, MediaSettings{}))
		req := httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader(`{"title":""}`))
		rec := httptest.NewRecorder()
		h.Create(rec, req, nil)

		assert.Equal(mt, http.StatusBadRequest, rec.Code)
		assert.Contains(mt, string(decode(mt, rec).Errors), "title")
	})

	mt.Run("edit comment forbidden", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		author := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			recipeDoc(id, primitive.NewObjectID(), nil, commentFixture{"c1", author, "hi"})))
		h := NewHandler(newTestService(mt, &recordingEmitter{}, MediaSettings{}))

		body := `{"updatedComment":"x","userId":"` + primitive.NewObjectID().Hex() + `"}`
		req := httptest.NewRequest(http.MethodPut, "/recipes/"+id.Hex()+"/comment/c1", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.EditComment(rec, req, httprouter.Params{{Key: "id", Value: id.Hex()}, {Key: "commentId", Value: "c1"}})

		assert.Equal(mt, http.StatusForbidden, rec.Code)
		assert.Equal(mt, "User not authorized to edit this comment", decode(mt, rec).Message)
	})

	mt.Run("qr content type", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, recipeDoc(id, primitive.NewObjectID(), nil)))
		h := NewHandler(newTestService(mt, &recordingEmitter{}, MediaSettings{PublicBaseURL: "http://localhost:4000"}))

		rec := httptest.NewRecorder()
		h.QRCode(rec, httptest.NewRequest(http.MethodGet, "/recipes/"+id.Hex()+"/qr", nil), idParams(id.Hex()))

		assert.Equal(mt, http.StatusOK, rec.Code)
		assert.Equal(mt, "image/png", rec.Header().Get("Content-Type"))
	})

	mt.Run("image without file", func(mt *mtest.T) {
		h := NewHandler(newTestService(mt, &recordingEmitter{}, MediaSettings{}))
		id := primitive.NewObjectID().Hex()

		req := httptest.NewRequest(http.MethodPost, "/recipes/"+id+"/image", strings.NewReader("not multipart"))
		rec := httptest.NewRecorder()
		h.UploadImage(rec, req, idParams(id))

		assert.Equal(mt, http.StatusBadRequest, rec.Code)
	})
}
