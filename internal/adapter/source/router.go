package source

import (
	"context"
	"fmt"
	"strings"

	"mcq-worker/internal/domain"
)

// Router picks a DocumentSource by reference scheme: http(s) URLs go to the
// HTTP source, everything else to object storage.
type Router struct {
	http    domain.DocumentSource
	storage domain.DocumentSource
}

// NewRouter accepts a nil storage source when object storage is not
// configured.
func NewRouter(httpSource, storage domain.DocumentSource) *Router {
	return &Router{http: httpSource, storage: storage}
}

func (r *Router) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return r.http.Fetch(ctx, ref)
	}
	if r.storage == nil {
		return nil, fmt.Errorf("no document source for reference %q", ref)
	}
	return r.storage.Fetch(ctx, ref)
}
