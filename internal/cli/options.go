// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

// =============================================================================
// ROOT OPTIONS
// =============================================================================

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	ConfigPath string `short:"c" long:"config" description:"config file path (TOML or YAML)"`
	Model      string `short:"m" long:"model" description:"Mistral model name or short alias"`
	APIURL     string `long:"api-url" description:"document service URL"`
	LogFile    string `long:"log-file" description:"log file path"`
	Debug      bool   `short:"d" long:"debug" description:"enable debug logging"`
	Version    bool   `short:"v" long:"version" description:"print version and exit"`

	TUI      TUICmd      `command:"tui" description:"Full-screen chat (default)"`
	Chat     ChatCmd     `command:"chat" description:"Line-mode chat with input history"`
	Ask      AskCmd      `command:"ask" description:"Ask one question and print the answer"`
	Resource ResourceCmd `command:"resource" description:"Inspect or delete uploaded documents"`
	Settings ConfigCmd   `command:"config" description:"Show or change configuration"`
}

// bind gives every command access to the shared application state.
func (o *Options) bind(app *App) {
	o.TUI.app = app
	o.Chat.app = app
	o.Ask.app = app
	o.Resource.Info.app = app
	o.Resource.Delete.app = app
	o.Settings.Show.app = app
	o.Settings.Get.app = app
	o.Settings.Set.app = app
	o.Settings.Path.app = app
}

// =============================================================================
// COMMANDS
// =============================================================================

// TUICmd starts the full-screen chat.
type TUICmd struct {
	app *App
}

// ChatCmd starts the line-mode chat.
type ChatCmd struct {
	PDF string `long:"pdf" description:"attach a PDF before the first question"`

	app *App
}

// AskCmd answers a single question.
type AskCmd struct {
	PDF      string `long:"pdf" description:"answer from this PDF"`
	Markdown bool   `long:"markdown" description:"render the answer as markdown when stdout is a terminal"`
	JSON     bool   `long:"json" description:"print the answer and sources as JSON"`

	Args struct {
		Question []string `positional-arg-name:"question" required:"1"`
	} `positional-args:"yes"`

	app *App
}

// ResourceCmd groups document commands.
type ResourceCmd struct {
	Info   ResourceInfoCmd   `command:"info" description:"Show metadata for an uploaded document"`
	Delete ResourceDeleteCmd `command:"delete" description:"Delete an uploaded document"`
}

// ResourceInfoCmd prints document metadata.
type ResourceInfoCmd struct {
	JSON bool `long:"json" description:"print as JSON"`

	Args struct {
		ID string `positional-arg-name:"resource-id" required:"yes"`
	} `positional-args:"yes"`

	app *App
}

// ResourceDeleteCmd deletes a document.
type ResourceDeleteCmd struct {
	Args struct {
		ID string `positional-arg-name:"resource-id" required:"yes"`
	} `positional-args:"yes"`

	app *App
}

// ConfigCmd groups configuration commands.
type ConfigCmd struct {
	Show ConfigShowCmd `command:"show" description:"Print the effective configuration"`
	Get  ConfigGetCmd  `command:"get" description:"Print one setting"`
	Set  ConfigSetCmd  `command:"set" description:"Change one setting in the config file"`
	Path ConfigPathCmd `command:"path" description:"Print config and log file locations"`
}

// ConfigShowCmd prints the effective configuration.
type ConfigShowCmd struct {
	Keys bool `long:"keys" description:"list the setting names instead"`

	app *App
}

// ConfigGetCmd prints one setting.
type ConfigGetCmd struct {
	Args struct {
		Key string `positional-arg-name:"key" required:"yes"`
	} `positional-args:"yes"`

	app *App
}

// ConfigSetCmd changes one setting.
type ConfigSetCmd struct {
	Args struct {
		Key   string `positional-arg-name:"key" required:"yes"`
		Value string `positional-arg-name:"value" required:"yes"`
	} `positional-args:"yes"`

	app *App
}

// ConfigPathCmd prints file locations.
type ConfigPathCmd struct {
	app *App
}
