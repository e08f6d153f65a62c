package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"termguess/internal/config"
	"termguess/internal/constants"
	"termguess/internal/domain"
	"termguess/internal/repository"
	"termguess/pkg/scoring"

	"github.com/rs/zerolog"
)

// RoomService owns the room and game state machine. Every mutation of a
// room happens with that room locked; the player directory is only touched
// from inside a room's critical section so membership and the player's
// current room change together.
type RoomService struct {
	rooms   *repository.RoomRepository
	players *repository.PlayerRepository
	conns   Connections
	terms   TermGenerator
	answers QuestionAnswerer
	ratings *RatingService
	cfg     *config.Config
	logger  zerolog.Logger
}

func NewRoomService(
	rooms *repository.RoomRepository,
	players *repository.PlayerRepository,
	conns Connections,
	terms TermGenerator,
	answers QuestionAnswerer,
	ratings *RatingService,
	cfg *config.Config,
	logger zerolog.Logger,
) *RoomService {
	return &RoomService{
		rooms:   rooms,
		players: players,
		conns:   conns,
		terms:   terms,
		answers: answers,
		ratings: ratings,
		cfg:     cfg,
		logger:  logger,
	}
}

// lockRoom returns the room locked. Closed rooms are reported as missing.
func (s *RoomService) lockRoom(code string) (*domain.Room, error) {
	room, err := s.rooms.Get(code)
	if err != nil {
		return nil, err
	}
	room.Lock()
	if room.Closed() {
		room.Unlock()
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (s *RoomService) checkConnection(playerID, connID string) error {
	if connID == "" {
		return nil
	}
	owner, ok := s.conns.Owner(connID)
	if !ok || owner != playerID {
		return domain.ErrConnectionNotFound
	}
	return nil
}

func (s *RoomService) attach(code, playerID, connID string) {
	if connID == "" {
		return
	}
	if err := s.conns.Attach(code, connID); err != nil {
		s.logger.Warn().Err(err).Str("room_code", code).Str("player_id", playerID).Msg("failed to attach connection")
	}
}

// CreateRoom opens a custom room with playerID as host and sole member.
// A maxPlayers of zero selects the default capacity.
func (s *RoomService) CreateRoom(ctx context.Context, playerID string, maxPlayers int, connID string) (string, error) {
	if maxPlayers == 0 {
		maxPlayers = constants.DefaultMaxPlayers
	}
	if maxPlayers < 1 {
		return "", domain.ErrInvalidArgument
	}
	if err := s.checkConnection(playerID, connID); err != nil {
		return "", err
	}

	room, err := s.rooms.Create(domain.RoomKindCustom, maxPlayers, s.cfg.CustomTimeLimit)
	if err != nil {
		return "", err
	}
	defer room.Unlock()

	if err := s.players.ClaimRoom(playerID, room.Code); err != nil {
		s.discard(room)
		return "", err
	}
	room.AddMember(playerID)
	room.HostID = playerID
	s.attach(room.Code, playerID, connID)

	s.logger.Info().
		Str("room_code", room.Code).
		Str("host", playerID).
		Int("max_players", maxPlayers).
		Msg("room created")
	return room.Code, nil
}

// discard removes a locked room from the index and marks it closed.
func (s *RoomService) discard(room *domain.Room) {
	s.rooms.Delete(room.Code)
	room.Close()
	s.conns.CloseRoom(room.Code)
}

// JoinRoom admits playerID into the room. A member whose connection is not
// attached to the room is re-attached instead; that is the reconnect path.
func (s *RoomService) JoinRoom(ctx context.Context, code, playerID, connID string) error {
	if err := s.checkConnection(playerID, connID); err != nil {
		return err
	}

	room, err := s.lockRoom(code)
	if err != nil {
		return err
	}
	defer room.Unlock()

	player, err := s.players.Get(playerID)
	if err != nil {
		return err
	}

	if player.CurrentRoom == code && room.HasMember(playerID) {
		if connID == "" || s.conns.PlayerAttached(code, playerID) {
			return domain.ErrAlreadyInRoom
		}
		s.attach(code, playerID, connID)
		s.ensureStats(room, player)
		s.conns.Broadcast(code, domain.Event{Type: domain.EventPlayerJoined, RoomCode: code, PlayerID: playerID})

		s.logger.Info().Str("room_code", code).Str("player_id", playerID).Msg("player reconnected")
		return nil
	}

	if player.CurrentRoom != "" {
		return domain.ErrAlreadyInRoom
	}
	// ranked rooms only ever hold the pair the scheduler placed there
	if room.Kind == domain.RoomKindRanked || room.Full() {
		return domain.ErrRoomFull
	}
	if err := s.players.ClaimRoom(playerID, code); err != nil {
		return err
	}

	room.AddMember(playerID)
	s.attach(code, playerID, connID)
	s.ensureStats(room, player)
	s.conns.Broadcast(code, domain.Event{Type: domain.EventPlayerJoined, RoomCode: code, PlayerID: playerID})

	s.logger.Info().Str("room_code", code).Str("player_id", playerID).Int("members", len(room.Members)).Msg("player joined room")
	return nil
}

// ensureStats gives a player joining a running game an empty stats entry,
// keeping whatever a reconnecting player already accumulated.
func (s *RoomService) ensureStats(room *domain.Room, player domain.Player) {
	if !room.Game.InProgress() {
		return
	}
	if _, ok := room.Game.PlayerStats[player.ID]; !ok {
		room.Game.PlayerStats[player.ID] = domain.NewPlayerStats(player.Username, nil)
	}
}

// LeaveRoom removes playerID from the room. The last member out closes the
// room. Abandoning a ranked game in progress costs the leaver rating.
func (s *RoomService) LeaveRoom(ctx context.Context, code, playerID string) error {
	room, err := s.lockRoom(code)
	if err != nil {
		return err
	}

	if !room.HasMember(playerID) {
		room.Unlock()
		return domain.ErrNotInRoom
	}

	penalize := room.Kind == domain.RoomKindRanked && room.Game.InProgress()

	room.RemoveMember(playerID)
	s.players.ReleaseRoom(playerID, code)
	s.conns.DetachPlayer(code, playerID)

	if len(room.Members) == 0 {
		s.discard(room)
		s.logger.Info().Str("room_code", code).Msg("room closed, last player left")
	} else {
		if room.HostID == playerID {
			room.ReassignHost()
			s.logger.Info().Str("room_code", code).Str("host", room.HostID).Msg("host reassigned")
		}
		if room.Kind == domain.RoomKindCustom && !room.HasMember(room.HostID) {
			panic(fmt.Sprintf("room %s: host %q is not a member after leave", code, room.HostID))
		}
		s.conns.Broadcast(code, domain.Event{Type: domain.EventPlayerLeft, RoomCode: code, PlayerID: playerID})
	}
	room.Unlock()

	s.logger.Info().Str("room_code", code).Str("player_id", playerID).Msg("player left room")

	if penalize {
		// failures are logged by the rating service and never undo the leave
		_ = s.ratings.Penalize(context.WithoutCancel(ctx), code, playerID)
	}
	return nil
}

func (s *RoomService) ListMembers(ctx context.Context, code string) ([]domain.PlayerSanitized, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return nil, err
	}
	ids := room.MemberIDs()
	room.Unlock()

	players := s.players.GetMany(ids)
	out := make([]domain.PlayerSanitized, len(players))
	for i, p := range players {
		out[i] = p.Sanitized()
	}
	return out, nil
}

// GetHost returns the host's id, empty for ranked rooms.
func (s *RoomService) GetHost(ctx context.Context, code string) (string, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return "", err
	}
	defer room.Unlock()

	return room.HostID, nil
}

// StartGame begins a new round in a custom room. The room is unlocked
// while the secret term is generated; concurrent starts are rejected
// meanwhile.
func (s *RoomService) StartGame(ctx context.Context, code, requesterID, category string) error {
	category = strings.TrimSpace(category)

	room, err := s.lockRoom(code)
	if err != nil {
		return err
	}
	if room.HostID == "" || room.HostID != requesterID {
		room.Unlock()
		return domain.ErrNotHost
	}
	if room.Game.InProgress() || room.Game.Starting() {
		room.Unlock()
		return domain.ErrGameAlreadyInProgress
	}
	if category == "" {
		room.Unlock()
		return domain.ErrInvalidArgument
	}
	room.Game.SetStarting(true)
	room.Unlock()

	genCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	term, genErr := s.terms.GenerateSecretTerm(genCtx, category)
	cancel()

	room.Lock()
	defer room.Unlock()

	room.Game.SetStarting(false)
	if room.Closed() {
		return domain.ErrRoomNotFound
	}
	if genErr != nil {
		s.logger.Error().Err(genErr).Str("room_code", code).Str("category", category).Msg("term generation failed")
		return fmt.Errorf("%w: %w", domain.ErrTermGenerationFailed, genErr)
	}
	term = strings.TrimSpace(term)
	if term == "" {
		s.logger.Warn().Str("room_code", code).Str("category", category).Msg("term generator returned nothing")
		return domain.ErrTermGenerationFailed
	}

	stats := make(map[string]*domain.PlayerStats, len(room.Members))
	for _, p := range s.players.GetMany(room.MemberIDs()) {
		stats[p.ID] = domain.NewPlayerStats(p.Username, nil)
	}
	s.beginGame(room, category, term, stats)

	s.logger.Info().Str("room_code", code).Str("category", category).Msg("game started")
	return nil
}

// beginGame moves a locked room into the in-progress state and arms its
// end timer.
func (s *RoomService) beginGame(room *domain.Room, category, term string, stats map[string]*domain.PlayerStats) {
	g := &room.Game
	g.Winner = ""
	g.Category = category
	g.SecretTerm = term
	g.PlayerStats = stats
	g.StartedAt = time.Now()
	g.State = domain.GameStateInProgress
	g.Round++

	round := g.Round
	g.ScheduleEnd(g.TimeLimit, func() { s.expire(room, round) })

	s.conns.Broadcast(room.Code, domain.Event{Type: domain.EventGameStart, RoomCode: room.Code})
}

// expire ends a game that ran out of time. A timer left over from an
// earlier round does nothing.
func (s *RoomService) expire(room *domain.Room, round uint64) {
	room.Lock()
	defer room.Unlock()

	if room.Closed() || !room.Game.InProgress() || room.Game.Round != round {
		return
	}
	s.endGame(room, "")
	s.logger.Info().Str("room_code", room.Code).Msg("game timed out")
}

// endGame settles a locked room's game and returns the members who lost a
// ranked game, or nil when no rating change applies.
func (s *RoomService) endGame(room *domain.Room, winner string) []string {
	g := &room.Game
	g.CancelEnd()
	g.Winner = winner
	g.State = domain.GameStateIdle

	s.conns.Broadcast(room.Code, domain.Event{Type: domain.EventGameEnd, RoomCode: room.Code, PlayerID: winner})

	if room.Kind != domain.RoomKindRanked || winner == "" {
		return nil
	}
	losers := make([]string, 0, len(room.Members))
	for _, id := range room.MemberIDs() {
		if id != winner {
			losers = append(losers, id)
		}
	}
	return losers
}

// RecordGuess scores a guess against the secret term. An exact match wins
// the game.
func (s *RoomService) RecordGuess(ctx context.Context, code, playerID, guess string) (float64, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return 0, err
	}
	if !room.HasMember(playerID) {
		room.Unlock()
		return 0, domain.ErrNotInRoom
	}
	if !room.Game.InProgress() {
		room.Unlock()
		return 0, domain.ErrGameNotInProgress
	}

	stats := s.statsFor(room, playerID)
	stats.Guesses = append(stats.Guesses, guess)

	proximity := scoring.Proximity(guess, room.Game.SecretTerm)
	var losers []string
	won := proximity == 1
	if won {
		losers = s.endGame(room, playerID)
	}
	kind := room.Kind
	room.Unlock()

	if won {
		s.logger.Info().Str("room_code", code).Str("winner", playerID).Msg("secret term guessed")
		if kind == domain.RoomKindRanked {
			// the result stands even when ratings cannot be written
			_ = s.ratings.ApplyResult(context.WithoutCancel(ctx), code, playerID, losers)
		}
	}
	return proximity, nil
}

func (s *RoomService) statsFor(room *domain.Room, playerID string) *domain.PlayerStats {
	stats, ok := room.Game.PlayerStats[playerID]
	if !ok {
		username := ""
		if p, err := s.players.Get(playerID); err == nil {
			username = p.Username
		}
		stats = domain.NewPlayerStats(username, nil)
		room.Game.PlayerStats[playerID] = stats
	}
	return stats
}

// RecordQuestion asks the answerer about the secret term and keeps the
// exchange in the player's stats.
func (s *RoomService) RecordQuestion(ctx context.Context, code, playerID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.ErrInvalidArgument
	}

	room, err := s.lockRoom(code)
	if err != nil {
		return "", err
	}
	if !room.HasMember(playerID) {
		room.Unlock()
		return "", domain.ErrNotInRoom
	}
	if !room.Game.InProgress() {
		room.Unlock()
		return "", domain.ErrGameNotInProgress
	}
	secret, category, round := room.Game.SecretTerm, room.Game.Category, room.Game.Round
	room.Unlock()

	askCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	answer, askErr := s.answers.AnswerQuestion(askCtx, secret, category, question)
	cancel()

	if askErr != nil {
		s.logger.Error().Err(askErr).Str("room_code", code).Msg("question answering failed")
		return "", fmt.Errorf("%w: %w", domain.ErrNoAnswer, askErr)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", domain.ErrNoAnswer
	}

	room, err = s.lockRoom(code)
	if err != nil {
		return "", err
	}
	defer room.Unlock()

	if room.Game.Round != round {
		return "", domain.ErrGameNotInProgress
	}
	stats := s.statsFor(room, playerID)
	stats.Interactions = append(stats.Interactions, domain.Interaction{Question: question, Answer: answer})
	return answer, nil
}

func (s *RoomService) TimeLeft(ctx context.Context, code string) (time.Duration, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return 0, err
	}
	defer room.Unlock()

	if !room.Game.InProgress() {
		return 0, domain.ErrGameNotInProgress
	}
	return room.Game.TimeLeft(time.Now()), nil
}

func (s *RoomService) Category(ctx context.Context, code string) (string, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return "", err
	}
	defer room.Unlock()

	if !room.Game.InProgress() {
		return "", domain.ErrGameNotInProgress
	}
	return room.Game.Category, nil
}

// SecretTerm is only revealed once a game has ended.
func (s *RoomService) SecretTerm(ctx context.Context, code string) (string, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return "", err
	}
	defer room.Unlock()

	if room.Game.InProgress() || room.Game.Round == 0 {
		return "", domain.ErrGameNotEnded
	}
	return room.Game.SecretTerm, nil
}

// Winner returns the last game's winner, empty when it timed out.
func (s *RoomService) Winner(ctx context.Context, code string) (string, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return "", err
	}
	defer room.Unlock()

	if room.Game.InProgress() || room.Game.Round == 0 {
		return "", domain.ErrGameNotEnded
	}
	return room.Game.Winner, nil
}

func (s *RoomService) PlayerStats(ctx context.Context, code string) (map[string]domain.PlayerStats, error) {
	room, err := s.lockRoom(code)
	if err != nil {
		return nil, err
	}
	defer room.Unlock()

	if room.Game.InProgress() || room.Game.Round == 0 {
		return nil, domain.ErrGameNotEnded
	}
	out := make(map[string]domain.PlayerStats, len(room.Game.PlayerStats))
	for id, stats := range room.Game.PlayerStats {
		out[id] = stats.Clone()
	}
	return out, nil
}

// RankedPair is two players the scheduler matched, with the connection
// each one queued from.
type RankedPair struct {
	First, Second domain.MatchmakingEntry
}

// CreateRankedRoom opens a ranked room for a matched pair and starts its
// game immediately. It fails without side effects when either player can
// no longer be placed: a dead connection or a room claimed elsewhere.
func (s *RoomService) CreateRankedRoom(ctx context.Context, pair RankedPair, category, term string, ratings map[string]int) (string, error) {
	entries := []domain.MatchmakingEntry{pair.First, pair.Second}
	for _, e := range entries {
		if err := s.checkConnection(e.PlayerID, e.ConnectionID); err != nil || e.ConnectionID == "" {
			return "", fmt.Errorf("player %s: %w", e.PlayerID, domain.ErrConnectionNotFound)
		}
	}

	room, err := s.rooms.Create(domain.RoomKindRanked, constants.RankedRoomCapacity, s.cfg.RankedTimeLimit)
	if err != nil {
		return "", err
	}
	defer room.Unlock()

	for i, e := range entries {
		if err := s.players.ClaimRoom(e.PlayerID, room.Code); err != nil {
			for _, prev := range entries[:i] {
				s.players.ReleaseRoom(prev.PlayerID, room.Code)
			}
			s.discard(room)
			return "", fmt.Errorf("player %s: %w", e.PlayerID, err)
		}
	}

	for _, e := range entries {
		if err := s.conns.Attach(room.Code, e.ConnectionID); err != nil {
			for _, placed := range entries {
				s.players.ReleaseRoom(placed.PlayerID, room.Code)
			}
			s.discard(room)
			return "", fmt.Errorf("player %s: %w", e.PlayerID, err)
		}
	}

	stats := make(map[string]*domain.PlayerStats, len(entries))
	for _, e := range entries {
		room.AddMember(e.PlayerID)

		username := ""
		if p, err := s.players.Get(e.PlayerID); err == nil {
			username = p.Username
		}
		var snapshot *int
		if r, ok := ratings[e.PlayerID]; ok {
			snapshot = &r
		}
		stats[e.PlayerID] = domain.NewPlayerStats(username, snapshot)
	}
	s.beginGame(room, category, term, stats)

	s.logger.Info().
		Str("room_code", room.Code).
		Str("first", pair.First.PlayerID).
		Str("second", pair.Second.PlayerID).
		Str("category", category).
		Msg("ranked game started")
	return room.Code, nil
}
