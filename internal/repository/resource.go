// Package repository fronts the upstream REST API with a cache. Reads are
// served from the cache when possible; misses and writes go through the
// error handler so failures are retried, reported and announced in one
// place.
package repository

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"grievance/internal/cache"
	"grievance/internal/domain"
	"grievance/internal/handler"
	"grievance/internal/metrics"
	"grievance/internal/shared"
)

// API is the subset of the HTTP client the repositories call.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Entity is a resource addressable by id.
type Entity interface {
	EntityID() string
}

// Deps are shared by every repository. When Redis is set values are cached
// there under Namespace, otherwise in Memory.
type Deps struct {
	API       API
	Handler   *handler.Handler
	Memory    *cache.Memory
	Redis     redis.UniversalClient
	Namespace string
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func storeFor[V any](d Deps) cache.Store[V] {
	if d.Redis != nil {
		return cache.NewRedis[V](d.Redis, d.Namespace, d.Metrics)
	}
	return cache.Typed[V](d.Memory)
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Spec describes one REST collection.
type Spec struct {
	Name      string // plural, e.g. "complaints"
	Singular  string // e.g. "complaint"
	Path      string // collection path with trailing slash
	ListTTL   time.Duration
	EntityTTL time.Duration
}

// Resource is the cached CRUD core shared by the concrete repositories.
type Resource[T Entity] struct {
	spec  Spec
	api   API
	h     *handler.Handler
	lists cache.Store[domain.Page[T]]
	items cache.Store[T]
	log   *slog.Logger
}

// NewResource creates a Resource for spec.
func NewResource[T Entity](d Deps, spec Spec) *Resource[T] {
	if d.Memory == nil && d.Redis == nil {
		d.Memory = cache.NewMemory(cache.WithMetrics(d.Metrics))
	}
	return &Resource[T]{
		spec:  spec,
		api:   d.API,
		h:     d.Handler,
		lists: storeFor[domain.Page[T]](d),
		items: storeFor[T](d),
		log:   d.logger().With(slog.String("resource", spec.Name)),
	}
}

// ListPrefix is the key prefix of every cached listing.
func (r *Resource[T]) ListPrefix() string { return r.spec.Name + "_" }

// EntityKey is the cache key of one entity.
func (r *Resource[T]) EntityKey(id string) string { return r.spec.Singular + "_" + id }

// ListKey is the cache key of a listing. Query parameters are sorted so
// equal queries share an entry.
func (r *Resource[T]) ListKey(q url.Values) string { return r.ListPrefix() + q.Encode() }

func (r *Resource[T]) itemPath(id string, action ...string) string {
	p := r.spec.Path + url.PathEscape(id) + "/"
	for _, a := range action {
		p += a + "/"
	}
	return p
}

func (r *Resource[T]) opts(op string, retryable bool, kv ...any) handler.AsyncOptions {
	data := map[string]any{"operation": r.spec.Name + "." + op}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			data[k] = kv[i+1]
		}
	}
	o := handler.AsyncOptions{Context: data}
	if !retryable {
		o.Retryable = handler.Bool(false)
	}
	return o
}

// List returns one page of the collection.
func (r *Resource[T]) List(ctx context.Context, q url.Values) (domain.Page[T], error) {
	path := r.spec.Path
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	return cached(ctx, r.log, r.lists, r.ListKey(q), r.spec.ListTTL, func(ctx context.Context) (domain.Page[T], error) {
		return handler.Do(ctx, r.h, func(ctx context.Context) (domain.Page[T], error) {
			var page domain.Page[T]
			err := r.api.Get(ctx, path, &page)
			return page, err
		}, r.opts("list", true, "query", q.Encode()))
	})
}

// Get returns one entity.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	if err := r.checkID(ctx, id); err != nil {
		var zero T
		return zero, err
	}
	v, err := cached(ctx, r.log, r.items, r.EntityKey(id), r.spec.EntityTTL, func(ctx context.Context) (T, error) {
		return handler.Do(ctx, r.h, func(ctx context.Context) (T, error) {
			var v T
			err := r.api.Get(ctx, r.itemPath(id), &v)
			return v, err
		}, r.opts("get", true, "id", id))
	})
	r.gone(ctx, id, err)
	return v, err
}

// Create posts body to the collection. POST is not idempotent, so it is
// never retried.
func (r *Resource[T]) Create(ctx context.Context, body any) (T, error) {
	v, err := handler.Do(ctx, r.h, func(ctx context.Context) (T, error) {
		var v T
		err := r.api.Post(ctx, r.spec.Path, body, &v)
		return v, err
	}, r.opts("create", false))
	if err != nil {
		return v, err
	}
	r.stored(ctx, v)
	return v, nil
}

// Update patches one entity.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) (T, error) {
	if err := r.checkID(ctx, id); err != nil {
		var zero T
		return zero, err
	}
	v, err := handler.Do(ctx, r.h, func(ctx context.Context) (T, error) {
		var v T
		err := r.api.Patch(ctx, r.itemPath(id), body, &v)
		return v, err
	}, r.opts("update", true, "id", id))
	if err != nil {
		r.gone(ctx, id, err)
		return v, err
	}
	r.stored(ctx, v)
	return v, nil
}

// Action posts body to a sub-resource of one entity, e.g.
// /complaints/7/status/, and stores the returned entity. Not retried.
func (r *Resource[T]) Action(ctx context.Context, id, action string, body any) (T, error) {
	if err := r.checkID(ctx, id); err != nil {
		var zero T
		return zero, err
	}
	v, err := handler.Do(ctx, r.h, func(ctx context.Context) (T, error) {
		var v T
		err := r.api.Post(ctx, r.itemPath(id, action), body, &v)
		return v, err
	}, r.opts(action, false, "id", id))
	if err != nil {
		r.gone(ctx, id, err)
		return v, err
	}
	r.stored(ctx, v)
	return v, nil
}

// Remove deletes one entity.
func (r *Resource[T]) Remove(ctx context.Context, id string) error {
	if err := r.checkID(ctx, id); err != nil {
		return err
	}
	err := r.h.HandleAsync(ctx, func(ctx context.Context) error {
		return r.api.Delete(ctx, r.itemPath(id), nil)
	}, r.opts("delete", true, "id", id))
	if err != nil {
		r.gone(ctx, id, err)
		return err
	}
	r.Invalidate(ctx, id)
	return nil
}

// Invalidate drops every cached listing and the entity under id.
func (r *Resource[T]) Invalidate(ctx context.Context, id string) {
	r.invalidateLists(ctx)
	if id == "" {
		return
	}
	if err := r.items.Delete(ctx, r.EntityKey(id)); err != nil {
		r.log.WarnContext(ctx, "cache delete failed", slog.String("key", r.EntityKey(id)), slog.Any("err", err))
	}
}

// gone drops cached copies of an entity the API no longer knows.
func (r *Resource[T]) gone(ctx context.Context, id string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		r.Invalidate(ctx, id)
	}
}

func (r *Resource[T]) checkID(ctx context.Context, id string) error {
	if strings.TrimSpace(id) != "" {
		return nil
	}
	return r.h.HandleError(ctx, shared.NewInputError("id", "is required"),
		handler.WithValue("operation", r.spec.Name))
}

// stored runs after a successful write: listings are stale, the returned
// entity is fresh.
func (r *Resource[T]) stored(ctx context.Context, v T) {
	r.invalidateLists(ctx)
	id := v.EntityID()
	if id == "" {
		return
	}
	if err := r.items.Set(ctx, r.EntityKey(id), v, r.spec.EntityTTL); err != nil {
		r.log.WarnContext(ctx, "cache set failed", slog.String("key", r.EntityKey(id)), slog.Any("err", err))
	}
}

func (r *Resource[T]) invalidateLists(ctx context.Context) {
	if err := r.lists.Clear(ctx, r.ListPrefix()); err != nil {
		r.log.WarnContext(ctx, "cache clear failed", slog.String("prefix", r.ListPrefix()), slog.Any("err", err))
	}
}

// cached serves key from store or calls fetch and stores its result. A
// failing cache degrades to a miss.
func cached[V any](ctx context.Context, log *slog.Logger, store cache.Store[V], key string, ttl time.Duration, fetch func(context.Context) (V, error)) (V, error) {
	v, ok, err := store.Get(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "cache get failed", slog.String("key", key), slog.Any("err", err))
	}
	if ok {
		return v, nil
	}
	v, err = fetch(ctx)
	if err != nil {
		return v, err
	}
	if err := store.Set(ctx, key, v, ttl); err != nil {
		log.WarnContext(ctx, "cache set failed", slog.String("key", key), slog.Any("err", err))
	}
	return v, nil
}
