package hostedwallet

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/walletmux/walletmux/pkg/walletsdk"
)

// Config carries the collaborators a hosted-wallet connector needs. The SDK
// is supplied as a factory so nothing is constructed until first use.
type Config struct {
	// Factory builds the wallet SDK instance. Called at most once per
	// connector.
	Factory walletsdk.Factory

	// Logger is required.
	Logger *logrus.Logger
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Factory == nil {
		return errors.New("hostedwallet: Factory is required")
	}
	if c.Logger == nil {
		return errors.New("hostedwallet: Logger is required")
	}
	return nil
}
