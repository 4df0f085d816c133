// Package state defines shared program state.
package state

import (
	"time"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mobiparse/config"
)

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Start         time.Time
	Cfg           *config.Config
	Log           *zap.Logger
	RestoreStdLog func()
}

// NewLocalEnv creates LocalEnv and initializes it.
func NewLocalEnv() *LocalEnv {
	return &LocalEnv{Start: time.Now()}
}

// urfave/cli shares state between "app" and "command" only through flags, so
// environment travels as a hidden GenericFlag value.
const FlagName = "$-localenv-$"

// Get returns environment attached to the application by main.
func Get(ctx *cli.Context) *LocalEnv {
	return ctx.Generic(FlagName).(*LocalEnv)
}

// Set implements cli.Generic, value is never parsed from command line.
func (e *LocalEnv) Set(value string) error {
	panic("localenv value should never be set directly")
}

// String implements cli.Generic.
func (e *LocalEnv) String() string {
	return "local-env"
}
