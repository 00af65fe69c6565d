package payments

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"recipehub/models"
	"recipehub/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxIdempotentBody = 1 << 20

type CachedResponse struct {
	Status int    `bson:"status"`
	Body   string `bson:"body"`
}

type IdempotencyRecord struct {
	Key         string          `bson:"key"`
	Method      string          `bson:"method"`
	Path        string          `bson:"path"`
	UserID      string          `bson:"userId"`
	RequestHash string          `bson:"requestHash"`
	Response    *CachedResponse `bson:"response,omitempty"`
	CreatedAt   time.Time       `bson:"createdAt"`
	ExpiresAt   time.Time       `bson:"expiresAt"`
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
type Idempotency struct {
	coll *mongo.Collection
	ttl  time.Duration
}

func NewIdempotency(coll *mongo.Collection, ttl time.Duration) *Idempotency {
	return &Idempotency{coll: coll, ttl: ttl}
}

// EnsureIndexes creates the unique key and TTL indexes.
func (i *Idempotency) EnsureIndexes(ctx context.Context) error {
	idxs := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	}
	_, err := i.coll.Indexes().CreateMany(ctx, idxs)
	return err
}

func requestHash(r *http.Request, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Wrap passes requests without an Idempotency-Key straight through. The
// first request with a key runs next and stores its response. A repeat
// with the same body replays that response, and a repeat with a different
// body, or while the first is still running, is rejected with 409.
func (i *Idempotency) Wrap(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			next(w, r, ps)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody))
		if err != nil {
			utils.WriteError(w, r, models.NewValidationError("Failed to read request body", nil))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		userID := utils.GetUserIDFromRequest(r)
		hash := requestHash(r, body, userID)
		now := time.Now()
		ctx := r.Context()

		_, err = i.coll.InsertOne(ctx, IdempotencyRecord{
			Key:         key,
			Method:      r.Method,
			Path:        r.URL.Path,
			UserID:      userID,
			RequestHash: hash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(i.ttl),
		})
		if err == nil {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next(cw, r, ps)

			cached := CachedResponse{Status: cw.status, Body: cw.buf.String()}
			if _, err := i.coll.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"response": cached}}); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to store idempotent response")
			}
			return
		}

		if !mongo.IsDuplicateKeyError(err) {
			utils.WriteError(w, r, err)
			return
		}

		var existing IdempotencyRecord
		if err := i.coll.FindOne(ctx, bson.M{"key": key}).Decode(&existing); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				// expired between the insert and the lookup
				next(w, r, ps)
				return
			}
			utils.WriteError(w, r, err)
			return
		}

		if existing.RequestHash != hash {
			utils.RespondWithError(w, http.StatusConflict, "Idempotency-Key reused with a different request")
			return
		}

		if existing.Response != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(existing.Response.Status)
			_, _ = w.Write([]byte(existing.Response.Body))
			return
		}

		w.Header().Set("Retry-After", "1")
		utils.RespondWithError(w, http.StatusConflict, "A request with this Idempotency-Key is still in progress")
	}
}
