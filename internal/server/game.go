package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"termguess/internal/config"
	"termguess/internal/constants"
	"termguess/internal/domain"
	"termguess/internal/middleware"
	"termguess/internal/service"
	"termguess/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

type GameServer struct {
	players     *service.PlayerService
	rooms       *service.RoomService
	matchmaking *service.MatchmakingService
	ratings     *service.RatingService
	hub         *ws.Hub
	cfg         *config.Config
	logger      zerolog.Logger
	upgrader    websocket.Upgrader
}

func NewGameServer(
	players *service.PlayerService,
	rooms *service.RoomService,
	matchmaking *service.MatchmakingService,
	ratings *service.RatingService,
	hub *ws.Hub,
	cfg *config.Config,
	logger zerolog.Logger,
) *GameServer {
	return &GameServer{
		players:     players,
		rooms:       rooms,
		matchmaking: matchmaking,
		ratings:     ratings,
		hub:         hub,
		cfg:         cfg,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Routes builds the router. Identity is resolved by middleware.Identity,
// which the caller wraps around the returned handler.
func (s *GameServer) Routes() *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		zerolog.Ctx(r.Context()).Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panicked")
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"})
	}

	mux.GET("/healthz", s.serveHealthCheck)
	mux.GET("/version", s.serveVersion)
	mux.GET("/ws", s.serveWS)

	mux.POST("/api/player/sign-in", s.handle(s.signIn))
	mux.POST("/api/player/sign-out", s.authed(s.signOut))
	mux.GET("/api/player", s.authed(s.getPlayer))

	mux.POST("/api/rooms", s.authed(s.createRoom))
	mux.POST("/api/rooms/:code/join", s.authed(s.joinRoom))
	mux.POST("/api/rooms/:code/leave", s.authed(s.leaveRoom))
	mux.GET("/api/rooms/:code/players", s.authed(s.listMembers))
	mux.GET("/api/rooms/:code/host", s.authed(s.getHost))
	mux.GET("/api/rooms/:code/qr", s.serveQR)

	mux.POST("/api/rooms/:code/game/start", s.authed(s.startGame))
	mux.POST("/api/rooms/:code/game/ask", s.authed(s.ask))
	mux.POST("/api/rooms/:code/game/guess", s.authed(s.guess))
	mux.GET("/api/rooms/:code/game/time-left", s.authed(s.timeLeft))
	mux.GET("/api/rooms/:code/game/category", s.authed(s.category))
	mux.GET("/api/rooms/:code/game/secret-term", s.authed(s.secretTerm))
	mux.GET("/api/rooms/:code/game/winner", s.authed(s.winner))
	mux.GET("/api/rooms/:code/game/player-stats", s.authed(s.playerStats))

	mux.POST("/api/matchmaking/join", s.authed(s.joinMatchmaking))
	mux.POST("/api/matchmaking/leave", s.authed(s.leaveMatchmaking))

	mux.GET("/api/rankings", s.handle(s.rankings))
	mux.GET("/api/rank", s.authed(s.rank))

	return mux
}

type handlerFunc func(r *http.Request, ps httprouter.Params) (any, error)

type authedHandlerFunc func(r *http.Request, ps httprouter.Params, playerID string) (any, error)

func (s *GameServer) handle(fn handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBytes)

		result, err := fn(r, ps)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if result == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *GameServer) authed(fn authedHandlerFunc) httprouter.Handle {
	return s.handle(func(r *http.Request, ps httprouter.Params) (any, error) {
		playerID := middleware.GetPlayerID(r.Context())
		if playerID == "" {
			return nil, domain.ErrUnauthenticated
		}
		return fn(r, ps, playerID)
	})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case domain.KindUpstreamFailure:
		return http.StatusBadGateway
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *GameServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}

	status := statusFor(de.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("code", de.Code).Str("path", r.URL.Path).Msg("request rejected")
	}
	writeJSON(w, status, errorBody{Code: de.Code, Message: de.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads an optional JSON body into v. An empty body leaves v as is.
func decode(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.ErrInvalidArgument
	}
	return nil
}

type playerResponse struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	CurrentRoom *string `json:"currentRoom"`
}

func toPlayerResponse(p domain.Player) playerResponse {
	return playerResponse{ID: p.ID, Username: p.Username, CurrentRoom: optional(p.CurrentRoom)}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *GameServer) signIn(r *http.Request, _ httprouter.Params) (any, error) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}

	player, err := s.players.SignIn(r.Context(), middleware.GetPlayerID(r.Context()), req.Username)
	if err != nil {
		return nil, err
	}
	return toPlayerResponse(player), nil
}

func (s *GameServer) signOut(r *http.Request, _ httprouter.Params, playerID string) (any, error) {
	return nil, s.players.SignOut(r.Context(), playerID)
}

func (s *GameServer) getPlayer(r *http.Request, _ httprouter.Params, playerID string) (any, error) {
	player, err := s.players.Get(r.Context(), playerID)
	if err != nil {
		return nil, err
	}
	return toPlayerResponse(player), nil
}

func (s *GameServer) createRoom(r *http.Request, _ httprouter.Params, playerID string) (any, error) {
	var req struct {
		MaxPlayers   int    `json:"maxPlayers"`
		ConnectionID string `json:"connectionId"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}

	code, err := s.rooms.CreateRoom(r.Context(), playerID, req.MaxPlayers, req.ConnectionID)
	if err != nil {
		return nil, err
	}
	return map[string]string{"roomCode": code}, nil
}

func (s *GameServer) joinRoom(r *http.Request, ps httprouter.Params, playerID string) (any, error) {
	var req struct {
		ConnectionID string `json:"connectionId"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, s.rooms.JoinRoom(r.Context(), ps.ByName("code"), playerID, req.ConnectionID)
}

func (s *GameServer) leaveRoom(r *http.Request, ps httprouter.Params, playerID string) (any, error) {
	return nil, s.rooms.LeaveRoom(r.Context(), ps.ByName("code"), playerID)
}

func (s *GameServer) listMembers(r *http.Request, ps httprouter.Params, _ string) (any, error) {
	return s.rooms.ListMembers(r.Context(), ps.ByName("code"))
}

func (s *GameServer) getHost(r *http.Request, ps httprouter.Params, _ string) (any, error) {
	host, err := s.rooms.GetHost(r.Context(), ps.ByName("code"))
	if err != nil {
		return nil, err
	}
	return map[string]*string{"host": optional(host)}, nil
}

func (s *GameServer) startGame(r *http.Request, ps httprouter.Params, playerID string) (any, error) {
	var req struct {
		Category string `json:"category"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, s.rooms.StartGame(r.Context(), ps.ByName("code"), playerID, req.Category)
}

func (s *GameServer) ask(r *http.Request, ps httprouter.Params, playerID string) (any, error) {
	var req struct {
		Question string `json:"question"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}

	answer, err := s.rooms.RecordQuestion(r.Context(), ps.ByName("code"), playerID, req.Question)
	if err != nil {
		return nil, err
	}
	return map[string]string{"answer": answer}, nil
}

func (s *GameServer) guess(r *http.Request, ps httprouter.Params, playerID string) (any, error) {
	var req struct {
		Guess string `json:"guess"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}

	proximity, err := s.rooms.RecordGuess(r.Context(), ps.ByName("code"), playerID, req.Guess)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"proximity": proximity}, nil
}

func (s *GameServer) timeLeft(r *http.Request, ps httprouter.Params, _ string) (any, error) {
	left, err := s.rooms.TimeLeft(r.Context(), ps.ByName("code"))
	if err != nil {
		return nil, err
	}
	return map[string]int64{"timeLeftMs": left.Milliseconds()}, nil
}

func (s *GameServer) category(r *http.Request, ps httprouter.Params, _ string) (any, error) {
	category, err := s.rooms.Category(r.Context(), ps.ByName("code"))
	if err != nil {
		return nil, err
	}
	return map[string]string{"category": category}, nil
}

func (s *GameServer) secretTerm(r *http.Request, ps httprouter.Params, _ string) (any, error) {
	term, err := s.rooms.SecretTerm(r.Context(), ps.ByName("code"))
	if err != nil {
		return nil, err
	}
	return map[string]string{"secretTerm": term}, nil
}

func (s *GameServer) winner(r *http.Request, ps httprouter.Params, _ string) (any, error) {
	winner, err := s.rooms.Winner(r.Context(), ps.ByName("code"))
	if err != nil {
		return nil, err
	}
	return map[string]*string{"winner": optional(winner)}, nil
}

func (s *GameServer) playerStats(r *http.Request, ps httprouter.Params, _ string) (any, error) {
	return s.rooms.PlayerStats(r.Context(), ps.ByName("code"))
}

func (s *GameServer) joinMatchmaking(r *http.Request, _ httprouter.Params, playerID string) (any, error) {
	var req struct {
		ConnectionID string `json:"connectionId"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, s.matchmaking.Enter(playerID, req.ConnectionID)
}

func (s *GameServer) leaveMatchmaking(r *http.Request, _ httprouter.Params, playerID string) (any, error) {
	return nil, s.matchmaking.Leave(playerID)
}

func (s *GameServer) rankings(r *http.Request, _ httprouter.Params) (any, error) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, domain.ErrInvalidArgument
		}
		limit = n
	}
	return s.ratings.Leaderboard(r.Context(), limit)
}

func (s *GameServer) rank(r *http.Request, _ httprouter.Params, playerID string) (any, error) {
	player, err := s.players.Get(r.Context(), playerID)
	if err != nil {
		return nil, err
	}
	ranked, err := s.ratings.Rank(r.Context(), playerID)
	if err != nil {
		return nil, err
	}
	ranked.Username = player.Username
	return ranked, nil
}

// serveQR renders a PNG QR code linking to the room's join page.
func (s *GameServer) serveQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if _, err := s.rooms.GetHost(r.Context(), code); err != nil {
		s.writeError(w, r, err)
		return
	}

	png, err := qrcode.Encode(s.cfg.PublicURL+"/join/"+code, qrcode.Medium, constants.QRCodeSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// serveWS upgrades the caller to a websocket and keeps it registered with
// the hub until it disconnects. Browsers cannot set headers on websocket
// requests, so the player may also be named in the query string.
func (s *GameServer) serveWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	playerID := middleware.GetPlayerID(r.Context())
	if playerID == "" {
		playerID = r.URL.Query().Get("player")
	}
	if playerID == "" {
		s.writeError(w, r, domain.ErrUnauthenticated)
		return
	}
	if _, err := s.players.Get(r.Context(), playerID); err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("player_id", playerID).Msg("websocket upgrade failed")
		return
	}
	// the server's read timeout must not apply to a long-lived socket
	_ = conn.SetReadDeadline(time.Time{})

	connID := s.hub.Register(playerID, ws.NewConn(conn))
	defer s.hub.Unregister(connID)

	s.hub.Send(connID, map[string]string{"type": "connected", "connectionId": connID})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *GameServer) serveHealthCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *GameServer) serveVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("termguess v" + constants.ReleaseVersion + "\n"))
}
