package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*AuthOptions)(nil)

// AuthOptions contains configuration for the bearer-token verifier used at
// connection establishment.
type AuthOptions struct {
	// JWTSecret is the HMAC secret used to verify bearer tokens.
	JWTSecret string `json:"jwt-secret" mapstructure:"jwt-secret"`

	// Leeway tolerates small clock skew when checking exp/nbf claims.
	Leeway time.Duration `json:"leeway" mapstructure:"leeway"`
}

// NewAuthOptions creates an AuthOptions object with default parameters.
func NewAuthOptions() *AuthOptions {
	return &AuthOptions{
		Leeway: 30 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *AuthOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt-secret is required"))
	}

	return errs
}

// AddFlags adds flags for AuthOptions to the specified FlagSet.
func (o *AuthOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.JWTSecret, "auth.jwt-secret", o.JWTSecret, "HMAC secret for verifying bearer tokens.")
	fs.DurationVar(&o.Leeway, "auth.leeway", o.Leeway, "Clock skew tolerance for token expiry checks.")
}
