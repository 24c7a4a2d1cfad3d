// context.go propagates ambient user, context data, tags and request descriptors
// through context.Context so handlers deep in a call tree can enrich notices.

package faultline

import "context"

// Context key types (unexported to avoid collisions)
type userKey struct{}
type contextDataKey struct{}
type tagsKey struct{}
type requestKey struct{}

// WithUser returns a context carrying the affected user.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user set by WithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userKey{}).(User)
	return user, ok
}

// WithContext returns a context whose notice context data is the existing data merged
// with data. Keys in data win.
func WithContext(ctx context.Context, data map[string]any) context.Context {
	merged := make(map[string]any)
	if existing, ok := ContextFromContext(ctx); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range data {
		merged[k] = v
	}
	return context.WithValue(ctx, contextDataKey{}, merged)
}

// ContextFromContext returns a copy of the data accumulated by WithContext.
func ContextFromContext(ctx context.Context) (map[string]any, bool) {
	data, ok := ctx.Value(contextDataKey{}).(map[string]any)
	if !ok {
		return nil, false
	}
	return cloneMap(data), true
}

// WithTags returns a context with tags appended to any already present.
func WithTags(ctx context.Context, tags ...string) context.Context {
	existing, _ := TagsFromContext(ctx)
	return context.WithValue(ctx, tagsKey{}, append(existing, tags...))
}

// TagsFromContext returns a copy of the tags set by WithTags.
func TagsFromContext(ctx context.Context) ([]string, bool) {
	tags, ok := ctx.Value(tagsKey{}).([]string)
	if !ok {
		return nil, false
	}
	return append([]string(nil), tags...), true
}

// WithRequest returns a context carrying the request being served.
func WithRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

// RequestFromContext returns the request set by WithRequest.
func RequestFromContext(ctx context.Context) (*Request, bool) {
	req, ok := ctx.Value(requestKey{}).(*Request)
	return req, ok && req != nil
}

// ClearContext returns a context with all faultline values removed.
func ClearContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, userKey{}, nil)
	ctx = context.WithValue(ctx, contextDataKey{}, nil)
	ctx = context.WithValue(ctx, tagsKey{}, nil)
	return context.WithValue(ctx, requestKey{}, nil)
}
