// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// Globals holds flags shared by every command.
type Globals struct {
	Config  string `help:"Config file path" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Run      RunCmd      `cmd:"" help:"Run an interactive analysis session"`
	Create   CreateCmd   `cmd:"" help:"Create a session and stop at the first approval gate"`
	Resume   ResumeCmd   `cmd:"" help:"Apply an approval decision to a suspended session"`
	State    StateCmd    `cmd:"" help:"Show a session's state"`
	Sessions SessionsCmd `cmd:"" help:"List persisted sessions"`
	Serve    ServeCmd    `cmd:"" help:"Run the HTTP API server"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// RunCmd drives a session interactively, prompting at each gate.
type RunCmd struct {
	URL         string `arg:"" help:"Company URL to analyze"`
	Query       string `short:"q" help:"Initial analysis query"`
	UserID      string `help:"User id for preference recall"`
	ContextFile string `help:"YAML file with user context to seed the session" type:"path"`
}

// CreateCmd creates a session without entering the interactive loop.
type CreateCmd struct {
	URL         string `arg:"" help:"Company URL to analyze"`
	Query       string `short:"q" help:"Initial analysis query"`
	UserID      string `help:"User id for preference recall"`
	ContextFile string `help:"YAML file with user context to seed the session" type:"path"`
}

// ResumeCmd applies one approval decision.
type ResumeCmd struct {
	Session string `arg:"" help:"Session id"`
	Action  string `arg:"" enum:"approve,modify,reject" help:"Gate decision (approve, modify, reject)"`
	Message string `short:"m" help:"Feedback to record with the decision"`
}

// StateCmd prints a session state summary.
type StateCmd struct {
	Session string `arg:"" help:"Session id"`
	Full    bool   `help:"Dump the full state document as JSON"`
}

// SessionsCmd lists persisted session ids.
type SessionsCmd struct{}

// ServeCmd runs the HTTP API.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config)"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
