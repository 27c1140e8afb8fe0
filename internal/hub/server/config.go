package server

import "buswatch.io/buswatch/pkg/options"

// Config aggregates the runtime options of every hub subsystem.
type Config struct {
	HttpOptions    *options.HttpOptions
	GatewayOptions *options.GatewayOptions
	MqttOptions    *options.MqttOptions
	RedisOptions   *options.RedisOptions
	AuthOptions    *options.AuthOptions
	S3Options      *options.S3Options
}
