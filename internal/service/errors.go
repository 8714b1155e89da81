package service

import "errors"

// Lobby validation errors. They are shown to the user, who may retry.
var (
	ErrNameRequired = errors.New("please enter a name")
	ErrCodeRequired = errors.New("please enter a game code")
	ErrNameTaken    = errors.New("the name you have chosen is already taken")
)
