package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/sglre6355/sgrradio/internal/modules/radio/application/ports"
	"github.com/sglre6355/sgrradio/internal/modules/radio/domain"
)

var _ ports.SessionDispatcher = (*Supervisor)(nil)

// Supervisor routes commands to per-guild sessions, creating them on demand
// and dropping them once they terminate or sit idle for too long.
type Supervisor struct {
	cfg       Config
	stations  domain.StationRegistry
	transport ports.VoiceTransport
	streams   ports.StreamProvider
	publisher ports.EventPublisher

	now   func() time.Time
	after afterFunc

	mu       sync.RWMutex
	sessions map[snowflake.ID]*GuildSession
}

// NewSupervisor creates a new Supervisor.
func NewSupervisor(
	cfg Config,
	stations domain.StationRegistry,
	transport ports.VoiceTransport,
	streams ports.StreamProvider,
	publisher ports.EventPublisher,
) *Supervisor {
	return &Supervisor{
		cfg:       cfg.withDefaults(),
		stations:  stations,
		transport: transport,
		streams:   streams,
		publisher: publisher,
		now:       time.Now,
		after:     realAfterFunc,
		sessions:  make(map[snowflake.ID]*GuildSession),
	}
}

// Dispatch hands a command to the guild's session.
//
// Station names are resolved before the command is queued, so an unknown
// station fails here with domain.ErrUnknownStation and never reaches the
// session. Play, SwitchStation and Skip return as soon as they are queued.
// Stop and Shutdown wait for teardown and fail with domain.ErrTeardownTimeout
// if it does not finish within the configured timeout.
func (s *Supervisor) Dispatch(ctx context.Context, guildID snowflake.ID, cmd domain.Command) error {
	msg := commandMsg{id: uuid.NewString(), cmd: cmd}
	log := slog.With("guild", guildID, "command", cmd.String(), "command_id", msg.id)

	switch c := cmd.(type) {
	case domain.Play:
		if c.ChannelID == 0 {
			return domain.ErrNoChannel
		}
		station, err := s.resolve(guildID, c.StationName)
		if err != nil {
			return err
		}
		msg.station = &station

	case domain.SwitchStation:
		station, err := s.resolve(guildID, c.StationName)
		if err != nil {
			return err
		}
		if st := s.Status(guildID); st.State == domain.StateIdle && st.ChannelID == 0 {
			return domain.ErrNoChannel
		}
		msg.station = &station
	}

	if domain.IsTerminal(cmd) {
		if _, ok := s.lookup(guildID); !ok {
			return nil
		}
		msg.done = make(chan error, 1)
	}

	s.route(guildID, msg)
	log.Debug("dispatched command")

	if msg.done == nil {
		return nil
	}

	timer := time.NewTimer(s.cfg.TeardownTimeout)
	defer timer.Stop()

	select {
	case err := <-msg.done:
		return err
	case <-timer.C:
		log.Warn("timed out waiting for session teardown")
		return domain.ErrTeardownTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the guild's session, or an idle status if the
// guild has none.
func (s *Supervisor) Status(guildID snowflake.ID) domain.SessionStatus {
	if sess, ok := s.lookup(guildID); ok {
		return sess.Status()
	}
	return domain.IdleStatus(guildID)
}

// Len returns the number of live sessions.
func (s *Supervisor) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run sweeps idle sessions until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ReapIdle(); n > 0 {
				slog.Debug("reaped idle sessions", "count", n)
			}
		}
	}
}

// ReapIdle drops sessions that have been idle for longer than the configured
// threshold and returns how many were dropped.
func (s *Supervisor) ReapIdle() int {
	cutoff := s.now().Add(-s.cfg.IdleReapAfter)

	s.mu.RLock()
	candidates := make([]*GuildSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.RUnlock()

	reaped := 0
	for _, sess := range candidates {
		if sess.retireIfIdle(cutoff) {
			s.remove(sess)
			reaped++
		}
	}
	return reaped
}

// Shutdown terminates every session and waits for their teardown.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	guildIDs := make([]snowflake.ID, 0, len(s.sessions))
	for id := range s.sessions {
		guildIDs = append(guildIDs, id)
	}
	s.mu.RUnlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, guildID := range guildIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Dispatch(ctx, guildID, domain.Shutdown{}); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("failed to shut down session for guild %d: %w", guildID, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (s *Supervisor) resolve(guildID snowflake.ID, name string) (domain.Station, error) {
	station, err := s.stations.Get(guildID, name)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Station{}, fmt.Errorf("%w: %q", domain.ErrUnknownStation, name)
	}
	if err != nil {
		return domain.Station{}, fmt.Errorf("failed to look up station: %w", err)
	}
	return station, nil
}

func (s *Supervisor) lookup(guildID snowflake.ID) (*GuildSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[guildID]
	return sess, ok
}

// route queues msg on the guild's session, replacing sessions that have
// already shut down.
func (s *Supervisor) route(guildID snowflake.ID, msg commandMsg) {
	for {
		sess := s.getOrCreate(guildID)
		if sess.enqueue(msg) {
			return
		}
		s.remove(sess)
	}
}

func (s *Supervisor) getOrCreate(guildID snowflake.ID) *GuildSession {
	if sess, ok := s.lookup(guildID); ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[guildID]; ok {
		return sess
	}
	sess := newGuildSession(
		guildID,
		s.cfg,
		s.transport,
		s.streams,
		s.publisher,
		s.now,
		s.after,
		s.onSessionExit,
	)
	s.sessions[guildID] = sess
	slog.Debug("created guild session", "guild", guildID)
	return sess
}

func (s *Supervisor) remove(sess *GuildSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sess.guildID] == sess {
		delete(s.sessions, sess.guildID)
	}
}

func (s *Supervisor) onSessionExit(sess *GuildSession, leftovers []commandMsg) {
	s.remove(sess)
	for _, msg := range leftovers {
		s.route(sess.guildID, msg)
	}
}
