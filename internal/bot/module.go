package bot

import "github.com/bwmarrin/discordgo"

// InteractionHandler handles a slash command invocation and responds through r.
type InteractionHandler func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error

// AutocompleteHandler answers an autocomplete request for a command option.
// Autocomplete responses carry choices only, so there is no Responder.
type AutocompleteHandler func(s *discordgo.Session, i *discordgo.InteractionCreate)

// EventHandler is any function matching one of discordgo's handler signatures,
// e.g. func(s *discordgo.Session, e *discordgo.VoiceStateUpdate).
type EventHandler any

// ModuleDependencies is what the bot hands a module during Init.
// The session is already open, so State.User is populated.
type ModuleDependencies struct {
	Session *discordgo.Session
}

// Module defines the interface that all bot modules must implement.
type Module interface {
	// Name returns the unique identifier for this module.
	Name() string

	// Commands returns the slash commands that this module provides.
	Commands() []*discordgo.ApplicationCommand

	// CommandHandlers maps command names to their handlers.
	// Only called after Init.
	CommandHandlers() map[string]InteractionHandler

	// EventHandlers returns gateway event handlers for this module.
	EventHandlers() []EventHandler

	// Init initializes the module with the provided dependencies.
	Init(deps ModuleDependencies) error

	// Shutdown releases the module's resources. It may run after a failed Init.
	Shutdown() error
}

// ConfigurableModule is implemented by modules that read configuration.
// LoadConfig runs before the Discord connection is opened, so a bad
// environment fails fast.
type ConfigurableModule interface {
	LoadConfig() error
}

// AutocompleteModule is implemented by modules whose commands have
// autocompleted options.
type AutocompleteModule interface {
	// AutocompleteHandlers maps command names to their autocomplete handlers.
	// Only called after Init.
	AutocompleteHandlers() map[string]AutocompleteHandler
}
