package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
	"buswatch.io/buswatch/internal/hub/core/service"
	"buswatch.io/buswatch/pkg/log"
	pkgmqtt "buswatch.io/buswatch/pkg/mqtt"
	"buswatch.io/buswatch/pkg/mqtt/topic"
)

// report is the ingress payload on the bridge's report topics. MQTT has no
// per-connection handshake credential in our deployment, so every report
// carries the publisher's bearer token.
type report struct {
	Token string `json:"token"`
	model.LocationClaim
}

// Server is the MQTT ingress bridge. Telemetry units that speak MQTT
// publish position reports to transit/v1/report/{vehicleId}; accepted
// updates run the same pipeline as WebSocket publishes.
type Server struct {
	client   pkgmqtt.Client
	topics   *topic.Builder
	verifier core.TokenVerifier
	svc      *service.Service
	log      log.Logger
}

// NewServer creates the ingress bridge on a not-yet-started client.
func NewServer(client pkgmqtt.Client, topics *topic.Builder, verifier core.TokenVerifier, svc *service.Service) *Server {
	return &Server{
		client:   client,
		topics:   topics,
		verifier: verifier,
		svc:      svc,
		log:      log.WithName("mqtt-ingress"),
	}
}

// Start connects to the broker and subscribes to the report topics. Blocks
// until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		s.log.Info("Disconnecting MQTT client...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
	}()

	s.log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	s.log.Info("MQTT connected")

	filter := s.topics.ReportWildcard()
	if err := s.client.Subscribe(ctx, filter, 1, s.handleReport); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", filter, err)
	}

	<-ctx.Done()
	return nil
}

func (s *Server) handleReport(ctx context.Context, t string, payload []byte) {
	var rep report
	if err := json.Unmarshal(payload, &rep); err != nil {
		s.log.Warn("Dropping malformed report", "topic", t)
		return
	}

	// The vehicle id segment of the topic is authoritative when the
	// payload omits one; a mismatch is rejected outright.
	topicID := lastSegment(t)
	switch {
	case rep.VehicleID == "":
		rep.VehicleID = topicID
	case rep.VehicleID != topicID:
		s.log.Warn("Report vehicle id does not match topic", "topic", t, "vehicleID", rep.VehicleID)
		return
	}

	identity, err := s.verifier.Verify(ctx, rep.Token)
	if err != nil {
		s.log.Warn("Rejecting report with invalid token", "topic", t)
		return
	}

	if _, err := s.svc.Publish(ctx, identity, &rep.LocationClaim); err != nil {
		s.log.Warn("Report rejected", "topic", t, "reason", core.ReasonOf(err), "err", err.Error())
	}
}

func lastSegment(t string) string {
	if i := strings.LastIndexByte(t, '/'); i >= 0 {
		return t[i+1:]
	}
	return t
}
