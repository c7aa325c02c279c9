// Package autoload initializes the global logger from LOG_* env variables as
// a side effect of being imported.
package autoload

import (
	configx "github.com/hotelpassarim/concierge/pkg/config"
	logx "github.com/hotelpassarim/concierge/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*cfg)
}
