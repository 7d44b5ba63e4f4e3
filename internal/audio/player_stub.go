//go:build noaudio

package audio

import (
	"errors"

	"github.com/san-kum/commlab/internal/synth"
)

var ErrUnavailable = errors.New("audio support not compiled in (built with -tags noaudio)")

type Player struct {
	*Tone
}

func NewPlayer(p synth.Params) *Player {
	return &Player{Tone: NewTone(p)}
}

func (a *Player) Start() error { return ErrUnavailable }
func (a *Player) Stop()        {}
