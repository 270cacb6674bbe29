package bot

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// ErrDuplicateCommand is returned when two modules handle the same command name.
var ErrDuplicateCommand = errors.New("duplicate command handler")

// Bot manages the Discord bot lifecycle and module coordination.
type Bot struct {
	config       *Config
	session      *discordgo.Session
	modules      []Module
	handlers     map[string]InteractionHandler
	autocomplete map[string]AutocompleteHandler
}

// NewBot creates a new Bot instance with the given configuration.
func NewBot(cfg *Config) *Bot {
	return &Bot{
		config:       cfg,
		modules:      make([]Module, 0),
		handlers:     make(map[string]InteractionHandler),
		autocomplete: make(map[string]AutocompleteHandler),
	}
}

// LoadModules loads modules from the global registry.
func (b *Bot) LoadModules() {
	b.modules = Modules()
}

// Start connects to Discord, initializes modules, and registers commands.
func (b *Bot) Start() error {
	// Load module configuration before touching Discord
	if err := b.loadModuleConfigs(); err != nil {
		return err
	}

	// Create Discord session
	session, err := discordgo.New("Bot " + b.config.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	b.session = session

	// Open connection; modules need the bot user from the ready state
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	// Initialize modules
	if err := b.initModules(); err != nil {
		return fmt.Errorf("failed to initialize modules: %w", err)
	}

	// Build handler map
	if err := b.buildHandlerMap(); err != nil {
		return err
	}

	// Register interaction handler
	b.session.AddHandler(b.handleInteraction)

	// Register module event handlers
	b.registerEventHandlers()

	// Register commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	slog.Info("started bot",
		"user_id", b.session.State.User.ID,
		"username", b.session.State.User.Username,
	)

	return nil
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() error {
	var errs []error

	// Shutdown modules
	for _, mod := range b.modules {
		if err := mod.Shutdown(); err != nil {
			slog.Warn("failed to shutdown module", "module", mod.Name(), "error", err)
			errs = append(errs, err)
		}
	}

	// Close Discord session
	if b.session != nil {
		if err := b.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Discord session: %w", err))
		}
	}

	return errors.Join(errs...)
}

// loadModuleConfigs calls LoadConfig on every module that has configuration.
func (b *Bot) loadModuleConfigs() error {
	for _, mod := range b.modules {
		configurable, ok := mod.(ConfigurableModule)
		if !ok {
			continue
		}
		if err := configurable.LoadConfig(); err != nil {
			return fmt.Errorf("failed to load %s module config: %w", mod.Name(), err)
		}
	}
	return nil
}

// initModules initializes all loaded modules.
func (b *Bot) initModules() error {
	deps := ModuleDependencies{
		Session: b.session,
	}

	for _, mod := range b.modules {
		if err := mod.Init(deps); err != nil {
			return fmt.Errorf("failed to initialize %s module: %w", mod.Name(), err)
		}
		slog.Debug("initialized module", "module", mod.Name())
	}

	slog.Info("initialized modules", "modules", moduleNames(b.modules))

	return nil
}

// buildHandlerMap builds the command name to handler mappings.
// A command name claimed by two modules is an error.
func (b *Bot) buildHandlerMap() error {
	owners := make(map[string]string)
	for _, mod := range b.modules {
		for name, handler := range mod.CommandHandlers() {
			if owner, dup := owners[name]; dup {
				return fmt.Errorf("%w: %q claimed by %s and %s", ErrDuplicateCommand, name, owner, mod.Name())
			}
			owners[name] = mod.Name()
			b.handlers[name] = handler
		}

		if ac, ok := mod.(AutocompleteModule); ok {
			for name, handler := range ac.AutocompleteHandlers() {
				b.autocomplete[name] = handler
			}
		}
	}
	return nil
}

// registerEventHandlers registers all module event handlers with the session.
func (b *Bot) registerEventHandlers() {
	for _, mod := range b.modules {
		for _, handler := range mod.EventHandlers() {
			b.session.AddHandler(handler)
		}
	}
}

// collectCommands gathers all commands from loaded modules.
func (b *Bot) collectCommands() []*discordgo.ApplicationCommand {
	var commands []*discordgo.ApplicationCommand
	for _, mod := range b.modules {
		commands = append(commands, mod.Commands()...)
	}
	return commands
}

// registerCommands replaces the application's commands with those of the loaded modules.
// With COMMAND_GUILD_ID set they are registered to that guild only, which applies instantly.
func (b *Bot) registerCommands() error {
	commands := b.collectCommands()

	registered, err := b.session.ApplicationCommandBulkOverwrite(
		b.session.State.User.ID,
		b.config.CommandGuildID, // Empty string registers commands globally
		commands,
	)
	if err != nil {
		return err
	}

	for _, cmd := range registered {
		slog.Debug("registered command", "command", cmd.Name, "guild", b.config.CommandGuildID)
	}

	return nil
}

// Embed colors for responses.
const (
	colorYellow = 0xFFFF00
	colorRed    = 0xFF0000
)

// handleInteraction routes incoming interactions to the appropriate handler.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(s, i)
		return
	default:
		return
	}

	responder := NewDiscordResponder(s, i.Interaction)

	cmdName := i.ApplicationCommandData().Name
	handler, ok := b.handlers[cmdName]
	if !ok {
		slog.Warn("found no handler for command", "command", cmdName)
		respondWithEmbed(responder, "Unknown Command", "This command is not recognized.", colorYellow)
		return
	}

	if err := handler(s, i, responder); err != nil {
		slog.Error("failed to handle command", "command", cmdName, "error", err)
		respondWithEmbed(responder, "Error", "An error occurred while processing your command.",
			colorRed)
	}
}

func (b *Bot) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cmdName := i.ApplicationCommandData().Name
	handler, ok := b.autocomplete[cmdName]
	if !ok {
		slog.Debug("found no autocomplete handler for command", "command", cmdName)
		return
	}
	handler(s, i)
}

// respondWithEmbed sends an embed response to an interaction.
func respondWithEmbed(r Responder, title, description string, color int) {
	err := r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       title,
					Description: description,
					Color:       color,
				},
			},
		},
	})
	if err != nil {
		slog.Error("failed to send embed response", "error", err)
	}
}
