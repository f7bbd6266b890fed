// Package autoload initializes the global logger from LOG_* variables when
// imported.
package autoload

import (
	configx "github.com/tanpawarit/autocredit-bot/pkg/config"
	logx "github.com/tanpawarit/autocredit-bot/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
