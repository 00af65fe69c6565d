package utils

import (
	"net/http"

	"recipehub/globals"
	"recipehub/models"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QueryMap flattens the URL query. Repeated keys keep every value.
func QueryMap(r *http.Request) map[string]any {
	q := r.URL.Query()
	out := make(map[string]any, len(q))
	for k, v := range q {
		if len(v) == 1 {
			out[k] = v[0]
			continue
		}
		out[k] = v
	}
	return out
}

// PathID parses an id route parameter. A malformed id yields notFound.
func PathID(ps httprouter.Params, name string, notFound error) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(ps.ByName(name))
	if err != nil {
		return primitive.NilObjectID, notFound
	}
	return id, nil
}

// BodyID parses an id taken from a request body.
func BodyID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.NewValidationError(field+" must be a valid id", nil)
	}
	return id, nil
}

func GetUserIDFromRequest(r *http.Request) string {
	requestingUserID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok {
		return ""
	}
	return requestingUserID
}

func GetRoleFromRequest(r *http.Request) string {
	role, _ := r.Context().Value(globals.RoleKey).(string)
	return role
}
