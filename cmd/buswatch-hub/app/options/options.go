package options

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"

	"buswatch.io/buswatch/internal/hub/server"
	"buswatch.io/buswatch/pkg/log"
	"buswatch.io/buswatch/pkg/options"
)

// HubOptions aggregates every flag group of the hub binary.
type HubOptions struct {
	HttpOptions    *options.HttpOptions    `json:"http" mapstructure:"http"`
	GatewayOptions *options.GatewayOptions `json:"gateway" mapstructure:"gateway"`
	MqttOptions    *options.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	RedisOptions   *options.RedisOptions   `json:"redis" mapstructure:"redis"`
	AuthOptions    *options.AuthOptions    `json:"auth" mapstructure:"auth"`
	S3Options      *options.S3Options      `json:"s3" mapstructure:"s3"`
	Log            *log.Options            `json:"log" mapstructure:"log"`
}

// NewHubOptions creates a HubOptions with default values.
func NewHubOptions() *HubOptions {
	return &HubOptions{
		HttpOptions:    options.NewHttpOptions(),
		GatewayOptions: options.NewGatewayOptions(),
		MqttOptions:    options.NewMqttOptions(),
		RedisOptions:   options.NewRedisOptions(),
		AuthOptions:    options.NewAuthOptions(),
		S3Options:      options.NewS3Options(),
		Log:            log.NewOptions(),
	}
}

// AddFlags registers every flag group on the command's flag set.
func (o *HubOptions) AddFlags(fs *pflag.FlagSet) {
	o.HttpOptions.AddFlags(fs)
	o.GatewayOptions.AddFlags(fs)
	o.MqttOptions.AddFlags(fs)
	o.RedisOptions.AddFlags(fs)
	o.AuthOptions.AddFlags(fs)
	o.S3Options.AddFlags(fs)
	o.Log.AddFlags(fs)
}

func (o *HubOptions) Complete() error {
	return nil
}

// Validate aggregates validation across all flag groups.
func (o *HubOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GatewayOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.AuthOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) > 0 {
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// Config assembles the server configuration from the validated options.
func (o *HubOptions) Config() (*server.Config, error) {
	return &server.Config{
		HttpOptions:    o.HttpOptions,
		GatewayOptions: o.GatewayOptions,
		MqttOptions:    o.MqttOptions,
		RedisOptions:   o.RedisOptions,
		AuthOptions:    o.AuthOptions,
		S3Options:      o.S3Options,
	}, nil
}
