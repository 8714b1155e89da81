package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every lookup failure of the registry.
var ErrNotFound = errors.New("not found")

var (
	ErrGameNotFound   = fmt.Errorf("game %w", ErrNotFound)
	ErrPlayerNotFound = fmt.Errorf("player %w", ErrNotFound)
)
