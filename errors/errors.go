package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrRoomNotFound   = fmt.Errorf("room not found")
	ErrNotParticipant = fmt.Errorf("sender is not a room participant")
	ErrUnknownProfile = fmt.Errorf("connection has no registered profile")
	ErrUnknownEvent   = fmt.Errorf("unknown inbound event")
)
