//go:build !noaudio

package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/san-kum/commlab/internal/synth"
)

// Player streams a Tone to the default output device.
type Player struct {
	*Tone
	stream *portaudio.Stream
}

func NewPlayer(p synth.Params) *Player {
	return &Player{Tone: NewTone(p)}
}

func (a *Player) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	// Output only; duplex streams often fail on Linux.
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, BufferSize, a.Fill)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("open audio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start audio stream: %w", err)
	}
	a.stream = stream
	return nil
}

func (a *Player) Stop() {
	if a.stream == nil {
		return
	}
	_ = a.stream.Stop()
	_ = a.stream.Close()
	_ = portaudio.Terminate()
	a.stream = nil
}
