package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter 构建只读API路由
func NewRouter(h *Handler, corsOrigins []string) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/api/fruits", h.GetFruits).Methods("GET")
	r.HandleFunc("/api/fruits/{id}", h.GetFruit).Methods("GET")
	r.HandleFunc("/api/sensors/latest", h.GetLatestReadings).Methods("GET")
	r.HandleFunc("/api/sensors/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/api/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/ws", h.ServeWS)

	r.Use(corsMiddleware(corsOrigins))

	return r
}

// corsMiddleware 只放行配置中的来源
func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
