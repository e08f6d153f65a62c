package domain

import "errors"

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindConflict
	KindPreconditionFailed
	KindUpstreamFailure
	KindUnauthenticated
	KindInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindPreconditionFailed:
		return "PRECONDITION_FAILED"
	case KindUpstreamFailure:
		return "UPSTREAM_FAILURE"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	default:
		return "UNKNOWN"
	}
}

type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrPlayerNotFound     = &Error{KindNotFound, "PLAYER_NOT_FOUND", "could not find player"}
	ErrRoomNotFound       = &Error{KindNotFound, "ROOM_NOT_FOUND", "room not found"}
	ErrConnectionNotFound = &Error{KindNotFound, "CONNECTION_NOT_FOUND", "connection is not live"}

	ErrAlreadyInRoom         = &Error{KindConflict, "ALREADY_IN_ROOM", "you are already in a room"}
	ErrGameAlreadyInProgress = &Error{KindConflict, "GAME_ALREADY_IN_PROGRESS", "you cannot start a new game while the current one is still in progress"}
	ErrNotHost               = &Error{KindConflict, "NOT_HOST", "you are not the room host"}
	ErrRoomFull              = &Error{KindConflict, "ROOM_FULL", "room is full"}
	ErrNotInRoom             = &Error{KindConflict, "NOT_IN_ROOM", "you are not in this room"}

	ErrGameNotInProgress = &Error{KindPreconditionFailed, "GAME_NOT_IN_PROGRESS", "game is not in progress"}
	ErrGameNotEnded      = &Error{KindPreconditionFailed, "GAME_NOT_ENDED", "game has not ended"}

	ErrTermGenerationFailed = &Error{KindUpstreamFailure, "TERM_GENERATION_FAILED", "could not generate a secret term"}
	ErrNoAnswer             = &Error{KindUpstreamFailure, "NO_ANSWER", "no answer from ai"}

	ErrUnauthenticated = &Error{KindUnauthenticated, "UNAUTHENTICATED", "unauthorized request"}
	ErrInvalidArgument = &Error{KindInvalidArgument, "INVALID_ARGUMENT", "invalid data"}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
