package editor

import (
	"go.uber.org/fx"

	"github.com/dsmirnov/retouch/internal/config"
)

// Params for creating an edit client
type Params struct {
	fx.In

	Config *config.Config
}

// Result of creating an edit client
type ModuleResult struct {
	fx.Out

	Client *Client
}

// New creates the edit client from configuration
func New(p Params) (ModuleResult, error) {
	client := NewClient(
		p.Config.APIKey,
		p.Config.BaseURL,
		p.Config.Model,
		WithDirective(p.Config.Prompts.Directive),
		WithRetryPolicy(DefaultRetryPolicy(p.Config.MaxAttempts)),
		WithTimeout(p.Config.EditTimeout),
	)

	return ModuleResult{Client: client}, nil
}

// Module provides the edit client
func Module() fx.Option {
	return fx.Module(
		"editor",
		fx.Provide(
			New,
		),
	)
}
