package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// source describes the stream a playback chain is built for.
type source struct {
	Format   *audio.Format
	BitDepth uint16
}

// probeSource reads the header of a WAV or MP3 file and returns its stream format.
func probeSource(path string) (*source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return probeWav(file)
	case ".mp3":
		return probeMp3(file)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func probeWav(r io.ReadSeeker) (*source, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	decoder.ReadInfo()

	if decoder.WavAudioFormat == 3 {
		return nil, errors.New("floating-point WAV cannot be streamed by the DSP")
	}

	return &source{
		Format:   decoder.Format(),
		BitDepth: decoder.BitDepth,
	}, nil
}

func probeMp3(r io.Reader) (*source, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	// go-mp3 always decodes to 16-bit stereo.
	return &source{
		Format:   &audio.Format{NumChannels: 2, SampleRate: decoder.SampleRate()},
		BitDepth: 16,
	}, nil
}
