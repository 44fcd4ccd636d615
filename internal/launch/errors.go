package launch

import "errors"

var (
	ErrNoInstance      = errors.New("selected instance not found")
	ErrNoAccount       = errors.New("no account selected, log in first")
	ErrMalformedLoader = errors.New("instance loader descriptor is malformed")
	ErrAlreadyRunning  = errors.New("a launch is already in progress")
	ErrSessionEnded    = errors.New("launch session ended without closing the game")
)
