package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*GatewayOptions)(nil)

// GatewayOptions tunes the WebSocket connection gateway.
type GatewayOptions struct {
	// Path is the URL path of the WebSocket endpoint.
	Path string `json:"path" mapstructure:"path"`

	// SendBuffer is the per-connection outbound queue length. A subscriber
	// whose queue is full is dropped rather than allowed to block fan-out.
	SendBuffer int `json:"send-buffer" mapstructure:"send-buffer"`

	// MaxMessageBytes caps inbound frame size.
	MaxMessageBytes int64 `json:"max-message-bytes" mapstructure:"max-message-bytes"`

	// WriteTimeout bounds a single outbound frame write.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// PingInterval is the keepalive ping period. The pong deadline is
	// derived from it.
	PingInterval time.Duration `json:"ping-interval" mapstructure:"ping-interval"`
}

// NewGatewayOptions creates a GatewayOptions object with default parameters.
func NewGatewayOptions() *GatewayOptions {
	return &GatewayOptions{
		Path:            "/ws",
		SendBuffer:      64,
		MaxMessageBytes: 4 * 1024,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *GatewayOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.SendBuffer < 1 {
		errs = append(errs, fmt.Errorf("gateway.send-buffer must be >= 1, got %d", o.SendBuffer))
	}
	if o.PingInterval <= 0 {
		errs = append(errs, fmt.Errorf("gateway.ping-interval must be positive, got %s", o.PingInterval))
	}

	return errs
}

// AddFlags adds flags for GatewayOptions to the specified FlagSet.
func (o *GatewayOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, "gateway.path", o.Path, "URL path of the WebSocket endpoint.")
	fs.IntVar(&o.SendBuffer, "gateway.send-buffer", o.SendBuffer, "Per-connection outbound queue length.")
	fs.Int64Var(&o.MaxMessageBytes, "gateway.max-message-bytes", o.MaxMessageBytes, "Maximum inbound frame size in bytes.")
	fs.DurationVar(&o.WriteTimeout, "gateway.write-timeout", o.WriteTimeout, "Timeout for a single outbound frame write.")
	fs.DurationVar(&o.PingInterval, "gateway.ping-interval", o.PingInterval, "Keepalive ping period.")
}
