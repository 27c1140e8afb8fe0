package ws

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/service"
	"buswatch.io/buswatch/internal/hub/registry"
	"buswatch.io/buswatch/internal/pkg/metrics"
	"buswatch.io/buswatch/pkg/log"
	"buswatch.io/buswatch/pkg/options"
)

// Server upgrades HTTP requests into tracked WebSocket connections. The
// bearer token is checked exactly once, before the upgrade; handshakes
// without a valid token never reach the message protocol.
type Server struct {
	verifier core.TokenVerifier
	svc      *service.Service
	reg      *registry.Registry
	opts     *options.GatewayOptions

	upgrader websocket.Upgrader
	log      log.Logger
}

// NewServer creates the gateway handler. Mount it at opts.Path.
func NewServer(verifier core.TokenVerifier, svc *service.Service, reg *registry.Registry, opts *options.GatewayOptions) *Server {
	return &Server{
		verifier: verifier,
		svc:      svc,
		reg:      reg,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.WithName("gateway"),
	}
}

// bearerToken extracts the credential from the Authorization header, or
// from the token query parameter for clients that cannot set headers on a
// WebSocket handshake.
func bearerToken(r *http.Request) string {
	// A non-Bearer Authorization header (a proxy's Basic auth, say) does
	// not shadow the query parameter.
	if tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return tok
	}
	return r.URL.Query().Get("token")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	identity, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"reason":  "Unauthenticated",
			"message": "invalid or missing bearer token",
		})
		return
	}

	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "err", err.Error())
		return
	}

	conn := newConn(uuid.NewString(), identity, sock, s.svc, s.reg, s.opts, s.log)
	metrics.ConnectionsActive.Inc()
	s.log.Info("connection opened", "conn", conn.id, "subject", identity.SubjectID, "role", identity.Role)

	go conn.writePump()
	conn.readLoop(r.Context())
}
