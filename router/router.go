package router

import (
	"net/http"

	"noteflow/internal/auth"
	"noteflow/internal/collab"
	"noteflow/middleware"
	"noteflow/socket"

	"github.com/gorilla/mux"
)

// Setup wires the websocket endpoint behind the handshake authenticator.
// The REST note CRUD surface lives in a separate service; this process
// exposes only the collaboration layer.
func Setup(hub *socket.Hub, sync *socket.Synchronizer, verifier *auth.Verifier, users collab.UserStore) http.Handler {
	r := mux.NewRouter()

	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		user, ok := middleware.UserFrom(req.Context())
		if !ok {
			http.Error(w, "no credential provided", http.StatusUnauthorized)
			return
		}
		socket.ServeWs(hub, sync, w, req, *user)
	})
	r.Handle("/ws", middleware.Auth(verifier, users)(wsHandler))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return middleware.CORSMiddleware(r)
}
