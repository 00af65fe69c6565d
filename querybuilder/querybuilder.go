// Package querybuilder turns list-endpoint query parameters into a MongoDB
// find request.
//
// Stages may be called in any order and any number of times:
//
//	qb := querybuilder.New(coll, query, querybuilder.WithHidden("password")).
//		Search([]string{"name", "email"}).
//		Filter().
//		Sort().
//		Paginate().
//		Fields()
//	users, err := querybuilder.All[models.User](ctx, qb)
//	meta, err := qb.CountTotal(ctx)
//
// Nothing is sent to the server until Find, All or CountTotal runs.
package querybuilder

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultLimit = 10
	DefaultSort  = "-createdAt"
)

var reserved = map[string]bool{
	"fields":     true,
	"page":       true,
	"limit":      true,
	"sort":       true,
	"searchTerm": true,
}

var comparisonOps = map[string]string{
	"gt":  "$gt",
	"gte": "$gte",
	"lt":  "$lt",
	"lte": "$lte",
	"ne":  "$ne",
}

// key[op]
var opKey = regexp.MustCompile(`^([^\[\]]+)\[([a-z]+)\]$`)

// Meta describes one page of a listing.
type Meta struct {
	Page      int64 `json:"page"`
	Limit     int64 `json:"limit"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

type Option func(*QueryBuilder)

// WithHidden names attributes that are never returned.
func WithHidden(fields ...string) Option {
	return func(qb *QueryBuilder) { qb.hidden = append(qb.hidden, fields...) }
}

func WithDefaultLimit(n int64) Option {
	return func(qb *QueryBuilder) {
		if n > 0 {
			qb.defaultLimit = n
		}
	}
}

func WithDefaultSort(sort string) Option {
	return func(qb *QueryBuilder) { qb.defaultSort = sort }
}

type QueryBuilder struct {
	coll         *mongo.Collection
	query        map[string]any
	hidden       []string
	defaultLimit int64
	defaultSort  string

	filter     bson.M
	search     bson.M
	projection bson.M
	sort       bson.D
	page       int64
	limit      int64
	paginated  bool
}

// New keeps a copy of query. Values are strings or string slices, as
// produced by utils.QueryMap.
func New(coll *mongo.Collection, query map[string]any, opts ...Option) *QueryBuilder {
	q := make(map[string]any, len(query))
	for k, v := range query {
		q[k] = v
	}
	qb := &QueryBuilder{
		coll:         coll,
		query:        q,
		defaultLimit: DefaultLimit,
		defaultSort:  DefaultSort,
	}
	for _, opt := range opts {
		opt(qb)
	}
	return qb
}

func (qb *QueryBuilder) str(key string) (string, bool) {
	switch v := qb.query[key].(type) {
	case string:
		return strings.TrimSpace(v), true
	case []string:
		if len(v) > 0 {
			return strings.TrimSpace(v[0]), true
		}
	}
	return "", false
}

// isHidden also matches paths below a hidden field, like password.x.
func (qb *QueryBuilder) isHidden(field string) bool {
	for _, h := range qb.hidden {
		if field == h || strings.HasPrefix(field, h+".") {
			return true
		}
	}
	return false
}

// usable reports whether a client supplied field name may reach the
// server. Operator names are never field names.
func (qb *QueryBuilder) usable(field string) bool {
	return field != "" && !strings.Contains(field, "$") && !qb.isHidden(field)
}

// Search matches searchTerm case-insensitively against any of fields.
func (qb *QueryBuilder) Search(fields []string) *QueryBuilder {
	qb.search = nil
	term, ok := qb.str("searchTerm")
	if !ok || term == "" || len(fields) == 0 {
		return qb
	}

	pattern := regexp.QuoteMeta(term)
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: primitive.Regex{Pattern: pattern, Options: "i"}})
	}
	qb.search = bson.M{"$or": or}
	return qb
}

// Filter turns every non-reserved key into a condition.
func (qb *QueryBuilder) Filter() *QueryBuilder {
	filter := bson.M{}
	for key, raw := range qb.query {
		if reserved[key] || strings.Contains(key, "$") {
			continue
		}

		if m := opKey.FindStringSubmatch(key); m != nil {
			field, op := m[1], m[2]
			if !qb.usable(field) {
				continue
			}
			val, _ := firstString(raw)
			cond, _ := filter[field].(bson.M)
			if cond == nil {
				cond = bson.M{}
			}
			switch {
			case op == "in":
				cond["$in"] = coerceAll(splitList(raw))
			case comparisonOps[op] != "":
				cond[comparisonOps[op]] = coerceComparable(val)
			default:
				continue
			}
			filter[field] = cond
			continue
		}

		if !qb.usable(key) {
			continue
		}
		switch v := raw.(type) {
		case []string:
			if len(v) == 1 {
				filter[key] = exactMatch(v[0])
			} else {
				filter[key] = bson.M{"$in": coerceAll(v)}
			}
		case string:
			filter[key] = exactMatch(v)
		default:
			filter[key] = v
		}
	}
	qb.filter = filter
	return qb
}

// Sort reads a comma separated list where a leading - means descending.
func (qb *QueryBuilder) Sort() *QueryBuilder {
	spec, ok := qb.str("sort")
	if !ok || spec == "" {
		spec = qb.defaultSort
	}
	qb.sort = nil
	for _, e := range parseSort(spec) {
		if qb.usable(e.Key) {
			qb.sort = append(qb.sort, e)
		}
	}
	return qb
}

// Paginate reads page and limit. limit=0 or limit=all returns everything.
func (qb *QueryBuilder) Paginate() *QueryBuilder {
	qb.page, qb.limit, qb.paginated = qb.pageAndLimit()
	return qb
}

func (qb *QueryBuilder) pageAndLimit() (page, limit int64, paginated bool) {
	page = 1
	if s, ok := qb.str("page"); ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 1 {
			page = n
		}
	}

	limit = qb.defaultLimit
	if s, ok := qb.str("limit"); ok {
		if strings.EqualFold(s, "all") || s == "0" {
			return 1, 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	if page-1 > math.MaxInt64/limit {
		page = 1
	}
	return page, limit, true
}

// Fields restricts the projection to the comma separated fields list.
func (qb *QueryBuilder) Fields() *QueryBuilder {
	qb.projection = nil
	spec, ok := qb.str("fields")
	if !ok || spec == "" {
		return qb
	}

	include := bson.M{}
	exclude := bson.M{}
	for _, f := range splitFields(spec) {
		if strings.HasPrefix(f, "-") {
			if name := strings.TrimPrefix(f, "-"); name != "" && !strings.Contains(name, "$") {
				exclude[name] = 0
			}
			continue
		}
		if qb.usable(f) {
			include[f] = 1
		}
	}
	switch {
	case len(include) > 0:
		qb.projection = include
	case len(exclude) > 0:
		for _, h := range qb.hidden {
			exclude[h] = 0
		}
		qb.projection = exclude
	}
	return qb
}

// Query is the AND of the filter and search stages.
func (qb *QueryBuilder) Query() bson.M {
	parts := make(bson.A, 0, 2)
	if len(qb.filter) > 0 {
		parts = append(parts, qb.filter)
	}
	if len(qb.search) > 0 {
		parts = append(parts, qb.search)
	}
	switch len(parts) {
	case 0:
		return bson.M{}
	case 1:
		return parts[0].(bson.M)
	}
	return bson.M{"$and": parts}
}

// FindOptions carries sort, skip, limit and projection.
func (qb *QueryBuilder) FindOptions() *options.FindOptions {
	opts := options.Find()
	if len(qb.sort) > 0 {
		opts.SetSort(qb.sort)
	}
	if qb.paginated {
		opts.SetSkip((qb.page - 1) * qb.limit)
		opts.SetLimit(qb.limit)
	}

	if qb.projection != nil {
		opts.SetProjection(qb.projection)
	} else if len(qb.hidden) > 0 {
		exclude := bson.M{}
		for _, h := range qb.hidden {
			exclude[h] = 0
		}
		opts.SetProjection(exclude)
	}
	return opts
}

func (qb *QueryBuilder) Find(ctx context.Context) (*mongo.Cursor, error) {
	return qb.coll.Find(ctx, qb.Query(), qb.FindOptions())
}

// All runs the query and decodes every document into T.
func All[T any](ctx context.Context, qb *QueryBuilder) ([]T, error) {
	cursor, err := qb.Find(ctx)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CountTotal counts every document matching Query and reports paging.
func (qb *QueryBuilder) CountTotal(ctx context.Context) (Meta, error) {
	total, err := qb.coll.CountDocuments(ctx, qb.Query())
	if err != nil {
		return Meta{}, err
	}
	return qb.meta(total), nil
}

func (qb *QueryBuilder) meta(total int64) Meta {
	page, limit, paginated := qb.pageAndLimit()
	if !paginated {
		pages := int64(0)
		if total > 0 {
			pages = 1
		}
		return Meta{Page: 1, Limit: total, Total: total, TotalPage: pages}
	}
	return Meta{
		Page:      page,
		Limit:     limit,
		Total:     total,
		TotalPage: int64(math.Ceil(float64(total) / float64(limit))),
	}
}

func parseSort(spec string) bson.D {
	var sort bson.D
	for _, f := range splitFields(spec) {
		dir := 1
		if strings.HasPrefix(f, "-") {
			dir = -1
			f = f[1:]
		} else {
			f = strings.TrimPrefix(f, "+")
		}
		if f != "" {
			sort = append(sort, bson.E{Key: f, Value: dir})
		}
	}
	return sort
}

func splitFields(spec string) []string {
	return strings.FieldsFunc(spec, func(r rune) bool { return r == ',' || r == ' ' })
}

func firstString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []string:
		if len(t) > 0 {
			return t[0], true
		}
	}
	return "", false
}

func splitList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = []string{t}
	case []string:
		raw = t
	}
	var out []string
	for _, r := range raw {
		for _, s := range strings.Split(r, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// exactMatch matches the raw string or its typed form.
func exactMatch(s string) any {
	if typed, ok := coerce(s); ok {
		return bson.M{"$in": bson.A{s, typed}}
	}
	return s
}

func coerceAll(values []string) bson.A {
	out := bson.A{}
	for _, v := range values {
		out = append(out, v)
		if typed, ok := coerce(v); ok {
			out = append(out, typed)
		}
	}
	return out
}

// coerce converts numbers, booleans and object ids.
func coerce(s string) (any, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if s == "true" || s == "false" {
		return s == "true", true
	}
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return oid, true
	}
	return nil, false
}

// coerceComparable prefers numbers, then RFC3339 times, then the string.
func coerceComparable(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return s
}
