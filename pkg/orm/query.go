package orm

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/dorm/pkg/database"
)

// Query is a thin chainable wrapper over a gorm session that can read
// through one of the configured caches.
type Query struct {
	ctx    context.Context
	db     *gorm.DB
	engine *Engine
	cache  string
}

// Query starts a query on the database alias ("" means default).
func (e *Engine) Query(ctx context.Context, alias string) (*Query, error) {
	if alias == "" {
		alias = database.DefaultAlias
	}
	db, err := e.DB(alias)
	if err != nil {
		return nil, err
	}
	return &Query{ctx: ctx, db: db.WithContext(ctx), engine: e, cache: database.DefaultAlias}, nil
}

func (q *Query) with(db *gorm.DB) *Query {
	c := *q
	c.db = db
	return &c
}

func (q *Query) Model(v any) *Query {
	return q.with(q.db.Model(v))
}

func (q *Query) Where(query any, args ...any) *Query {
	return q.with(q.db.Where(query, args...))
}

func (q *Query) Order(v any) *Query {
	return q.with(q.db.Order(v))
}

func (q *Query) Limit(n int) *Query {
	return q.with(q.db.Limit(n))
}

// UsingCache selects the CACHES alias Cache reads through.
func (q *Query) UsingCache(alias string) *Query {
	c := *q
	c.cache = alias
	return &c
}

func (q *Query) Get(dest any) error {
	return q.db.Find(dest).Error
}

func (q *Query) First(dest any) error {
	return q.db.First(dest).Error
}

func (q *Query) Count() (int64, error) {
	var n int64
	err := q.db.Count(&n).Error
	return n, err
}

// Cache loads dest from the cache under key, or runs the query and stores
// the result for ttl (0 means the cache's TIMEOUT).
func (q *Query) Cache(key string, ttl time.Duration, dest any) error {
	store, err := q.engine.Cache(q.cache)
	if err != nil {
		return err
	}
	if hit, err := store.Get(q.ctx, key, dest); err == nil && hit {
		return nil
	}

	if err := q.db.Find(dest).Error; err != nil {
		return err
	}
	return store.Set(q.ctx, key, dest, ttl)
}

// Forget drops key from the query's cache.
func (q *Query) Forget(key string) error {
	store, err := q.engine.Cache(q.cache)
	if err != nil {
		return err
	}
	return store.Delete(q.ctx, key)
}
