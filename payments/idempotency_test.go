package payments

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func countingHandler(calls *int) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}
}

func checkoutRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/payments/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotency(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no key passes through", func(mt *mtest.T) {
		calls := 0
		h := NewIdempotency(mt.Coll, time.Hour).Wrap(countingHandler(&calls))
		rec := httptest.NewRecorder()
		h(rec, checkoutRequest("", `{"priceId":"p"}`), nil)

		assert.Equal(mt, 1, calls)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("first request stores the response", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		calls := 0
		h := NewIdempotency(mt.Coll, time.Hour).Wrap(countingHandler(&calls))
		rec := httptest.NewRecorder()
		h(rec, checkoutRequest("k1", `{"priceId":"p"}`), nil)

		assert.Equal(mt, 1, calls)
		assert.Equal(mt, http.StatusOK, rec.Code)
		assert.Equal(mt, "insert", mt.GetStartedEvent().CommandName)
		assert.Equal(mt, "update", mt.GetStartedEvent().CommandName)
	})

	mt.Run("repeat replays", func(mt *mtest.T) {
		req := checkoutRequest("k2", `{"priceId":"p"}`)
		stored := bson.D{
			{Key: "key", Value: "k2"},
			{Key: "requestHash", Value: requestHash(req, []byte(`{"priceId":"p"}`), "")},
			{Key: "response", Value: bson.D{
				{Key: "status", Value: 200},
				{Key: "body", Value: `{"success":true,"data":{"id":"cs_1"}}`},
			}},
		}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stored),
		)

		calls := 0
		h := NewIdempotency(mt.Coll, time.Hour).Wrap(countingHandler(&calls))
		rec := httptest.NewRecorder()
		h(rec, req, nil)

		assert.Equal(mt, 0, calls)
		assert.Equal(mt, http.StatusOK, rec.Code)
		assert.Equal(mt, "true", rec.Header().Get("Idempotent-Replayed"))
		assert.JSONEq(mt, `{"success":true,"data":{"id":"cs_1"}}`, rec.Body.String())
	})

	mt.Run("repeat while first is running conflicts", func(mt *mtest.T) {
		req := checkoutRequest("k4", `{"priceId":"p"}`)
		stored := bson.D{
			{Key: "key", Value: "k4"},
			{Key: "requestHash", Value: requestHash(req, []byte(`{"priceId":"p"}`), "")},
		}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stored),
		)

		calls := 0
		h := NewIdempotency(mt.Coll, time.Hour).Wrap(countingHandler(&calls))
		rec := httptest.NewRecorder()
		h(rec, req, nil)

		assert.Equal(mt, 0, calls)
		assert.Equal(mt, http.StatusConflict, rec.Code)
		assert.Equal(mt, "1", rec.Header().Get("Retry-After"))
		assert.Contains(mt, rec.Body.String(), "still in progress")
	})

	mt.Run("different body conflicts", func(mt *mtest.T) {
		stored := bson.D{
			{Key: "key", Value: "k3"},
			{Key: "requestHash", Value: "something-else"},
		}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stored),
		)

		calls := 0
		h := NewIdempotency(mt.Coll, time.Hour).Wrap(countingHandler(&calls))
		rec := httptest.NewRecorder()
		h(rec, checkoutRequest("k3", `{"priceId":"other"}`), nil)

		assert.Equal(mt, 0, calls)
		assert.Equal(mt, http.StatusConflict, rec.Code)
	})
}
