package server

import (
	"net/http"
	"strings"
)

var _ Router = (*LoopbackRouter)(nil)

// LoopbackRouter dispatches requests arriving on the callback listener.
//
// Routes are registered as method patterns on an [http.ServeMux], so a POST to the callback
// path is answered with 405 by the mux itself. Middleware wraps the whole mux: requests that
// match no route (a browser asking for /favicon.ico) still pass through it.
type LoopbackRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	routes      []string
}

func NewLoopbackRouter() *LoopbackRouter {
	return &LoopbackRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first one added is the outermost.
func (r *LoopbackRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method on the exact path.
func (r *LoopbackRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(strings.ToUpper(method)+" "+path, handler)
	r.routes = append(r.routes, path)
}

// Handler registers every route of handler for GET, the only method a redirect uses.
func (r *LoopbackRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.Handle(http.MethodGet, route, handler)
	}
}

// Routes lists the registered paths in registration order.
func (r *LoopbackRouter) Routes() []string {
	return append([]string(nil), r.routes...)
}

func (r *LoopbackRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.mux
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}
	h.ServeHTTP(w, req)
}
