package radio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"github.com/sglre6355/sgrradio/internal/bot"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/session"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/usecases"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
	"github.com/sglre6355/sgrradio/internal/modules/radio/infrastructure"
	"github.com/sglre6355/sgrradio/internal/modules/radio/presentation/discord"
)

const (
	userAgent = "sgrradio"

	// initTimeout bounds loading stations and connecting to Redis during Init.
	initTimeout = 30 * time.Second
)

func init() {
	bot.Register(&RadioModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*RadioModule)(nil)
	_ bot.AutocompleteModule = (*RadioModule)(nil)
)

// store persists stations and autoplay bindings.
type store interface {
	domain.StationStore
	domain.AutoplayStore
}

// backend is the audio path selected by RADIO_BACKEND.
type backend struct {
	transport ports.VoiceTransport
	streams   ports.StreamProvider
	volume    ports.VolumeController
	events    discord.VoiceEventSink
	close     func()
}

// RadioModule provides per-guild internet radio.
type RadioModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers

	backend     *backend
	redisClient *redis.Client
	supervisor  *session.Supervisor
	autoplay    *usecases.AutoplayService

	// Event-driven components
	eventBus            *infrastructure.ChannelEventBus
	notificationHandler *application.NotificationEventHandler

	// Context for background loops
	ctx    context.Context
	cancel context.CancelFunc
}

// Name returns the module name.
func (m *RadioModule) Name() string {
	return "radio"
}

// Commands returns the slash commands for this module.
func (m *RadioModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *RadioModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"station": m.commandHandlers.HandleStation,
		"radio":   m.commandHandlers.HandleRadio,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *RadioModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.eventHandlers.HandleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.eventHandlers.HandleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.GuildDelete) {
			m.eventHandlers.HandleGuildDelete(s, event)
		},
	}
}

// AutocompleteHandlers returns the autocomplete handlers for this module.
func (m *RadioModule) AutocompleteHandlers() map[string]bot.AutocompleteHandler {
	return map[string]bot.AutocompleteHandler{
		"station": m.autocomplete.HandleStationName,
		"radio":   m.autocomplete.HandleStationName,
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *RadioModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *RadioModule) Init(deps bot.ModuleDependencies) (err error) {
	if deps.Session == nil {
		return errors.New("radio module requires a Discord session")
	}
	if m.config == nil {
		return errors.New("radio module configuration not loaded")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	defer func() {
		if err != nil {
			_ = m.Shutdown()
		}
	}()

	ctx, cancel := context.WithTimeout(m.ctx, initTimeout)
	defer cancel()

	// Create event bus (sessions publish lifecycle events on it)
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	b, err := m.initBackend(ctx, deps.Session)
	if err != nil {
		return err
	}
	m.backend = b

	st, err := m.initStore(ctx)
	if err != nil {
		return err
	}

	// Stations
	registry := infrastructure.NewMemoryStationRegistry()
	stations := usecases.NewStationService(registry, st)
	if err := m.loadStations(ctx, stations); err != nil {
		return err
	}

	// Sessions and services
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session.State)
	m.supervisor = session.NewSupervisor(
		m.config.SessionConfig(),
		registry,
		b.transport,
		b.streams,
		m.eventBus,
	)
	m.autoplay = usecases.NewAutoplayService(
		st,
		registry,
		m.supervisor,
		voiceState,
		m.config.AutoplayInterval,
		m.config.AutoplayRate,
	)
	playback := usecases.NewPlaybackService(m.supervisor, voiceState, b.volume, st, m.autoplay)

	// Create application event handlers
	m.notificationHandler = application.NewNotificationEventHandler(
		infrastructure.NewNotifier(deps.Session),
		m.eventBus,
	)
	if err := m.notificationHandler.Start(); err != nil {
		return err
	}

	// Create presentation handlers
	m.commandHandlers = discord.NewCommandHandlers(stations, playback, m.autoplay)
	m.autocomplete = discord.NewAutocompleteHandler(stations)
	m.eventHandlers = discord.NewEventHandlers(b.events, m.supervisor)

	go m.supervisor.Run(m.ctx)
	go m.autoplay.Run(m.ctx)

	slog.Info("radio module initialized", "backend", m.config.Backend, "persistent", m.redisClient != nil)

	return nil
}

func (m *RadioModule) initBackend(ctx context.Context, s *discordgo.Session) (*backend, error) {
	switch m.config.Backend {
	case BackendNative:
		transport, err := infrastructure.NewDiscordVoiceTransport(s, infrastructure.DefaultSendTimeout)
		if err != nil {
			return nil, err
		}
		return &backend{
			transport: transport,
			streams:   infrastructure.NewOggStreamProvider(nil, m.config.OggStreamConfig()),
			events:    transport,
			close:     func() {},
		}, nil

	default:
		adapter, err := infrastructure.NewLavalinkAdapter(ctx, s, m.config.LavalinkConfig())
		if err != nil {
			return nil, err
		}
		return &backend{
			transport: adapter,
			streams:   adapter.StreamProvider(),
			volume:    adapter,
			events:    adapter,
			close:     adapter.Close,
		}, nil
	}
}

func (m *RadioModule) initStore(ctx context.Context) (store, error) {
	if m.config.RedisAddr == "" {
		slog.Warn("REDIS_ADDR not set, stations and autoplay will not survive restarts")
		return infrastructure.NewMemoryStore(), nil
	}

	client := redis.NewClient(infrastructure.RedisOptions(
		m.config.RedisAddr,
		m.config.RedisPassword,
		m.config.RedisDB,
	))
	redisStore, err := infrastructure.NewRedisStore(ctx, client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	m.redisClient = client
	return redisStore, nil
}

// loadStations restores persisted stations, then adds seeds the guilds do not have yet.
func (m *RadioModule) loadStations(ctx context.Context, stations *usecases.StationService) error {
	loaded, err := stations.LoadFromStore(ctx)
	if err != nil {
		return err
	}

	seeded := 0
	if m.config.StationsFile != "" {
		seeds, err := infrastructure.LoadStationsFile(m.config.StationsFile, time.Now())
		if err != nil {
			return err
		}
		seeded, err = stations.Seed(ctx, seeds)
		if err != nil {
			slog.Warn("failed to seed some stations", "file", m.config.StationsFile, "error", err)
		}
	}

	slog.Info("loaded stations", "persisted", loaded, "seeded", seeded)
	return nil
}

// Shutdown cleans up module resources.
func (m *RadioModule) Shutdown() error {
	var errs []error

	// Stop the autoplay watchdog first so it cannot restart sessions being shut down
	if m.cancel != nil {
		m.cancel()
	}

	if m.supervisor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.TeardownTimeout+5*time.Second)
		if err := m.supervisor.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down sessions: %w", err))
		}
		cancel()
	}

	// Close event bus
	if m.eventBus != nil {
		m.eventBus.Close()
	}

	// Close audio backend
	if m.backend != nil {
		m.backend.close()
	}

	if m.redisClient != nil {
		if err := m.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis client: %w", err))
		}
	}

	return errors.Join(errs...)
}
