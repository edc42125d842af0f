package dsp

import (
	"github.com/go-audio/audio"
)

// Volume is a stereo attenuation pair as written to a DSP volume word.
type Volume struct {
	Left  uint16
	Right uint16
}

func (v Volume) word() uint32 {
	return uint32(v.Left)<<16 | uint32(v.Right)
}

// TimingMasterParams configures the timing master, the root task that paces every frame group.
type TimingMasterParams struct {
	SampleRate       uint32 // Defaults to DSPSampleRate
	FrameGroupLength uint16 // Samples per frame group; defaults to SampleRate / GOFPerSec
}

// CodecOutputParams configures a codec output task, which moves a mixed buffer to the codec FIFO.
type CodecOutputParams struct {
	InputBuffer  uint16
	FIFOAddress  uint16
	ChannelDisp  uint16 // Channel displacement within the FIFO (0 front, 2 rear, 4 center/LFE)
	Volume       Volume
	HFGDivider   uint16
	OutputStream uint16
}

// CodecInputParams configures a codec input task, which drains the codec capture FIFO.
type CodecInputParams struct {
	FIFOAddress  uint16
	OutputBuffer uint16
	ChannelDisp  uint16
}

// PCMReaderParams configures a PCM reader task, which fetches host playback data by DMA.
type PCMReaderParams struct {
	HostBuffer   uint32        // Bus address of the host DMA buffer
	HostSize     uint32        // Size of the host buffer in bytes
	OutputBuffer uint16        // DSP ring buffer the samples are written to
	Format       *audio.Format // Defaults to stereo at DSPSampleRate
	BitDepth     uint16        // 8 or 16; defaults to 16
	Volume       Volume
}

// SRCParams configures a sample rate converter task, which converts a stream to the DSP rate.
type SRCParams struct {
	Format       *audio.Format // Source format; SampleRate is required
	SourceBuffer uint16
	DelayBuffer  uint16
	OutputBuffer uint16
	Volume       Volume
}

// MixerParams configures a mixer-only task, which sums its sub-list into one buffer.
type MixerParams struct {
	MixBuffer    uint16
	OutputBuffer uint16
	Volume       Volume
}

// MixToOStreamParams configures a task that mixes its sub-list directly into an output stream.
type MixToOStreamParams struct {
	MixBuffer    uint16
	OutputStream uint16
}

// VariDecimateParams configures a variable-ratio decimator, which converts the DSP rate down to a capture rate.
type VariDecimateParams struct {
	Format       *audio.Format // Target format; SampleRate must not exceed DSPSampleRate
	InputBuffer  uint16
	OutputBuffer uint16
}

// PCMSerialInputParams configures a serial input task, which copies a DSP buffer into a capture stream.
type PCMSerialInputParams struct {
	InputBuffer  uint16
	OutputBuffer uint16
	Channels     uint16 // 1 or 2; defaults to 2
}

// AsyncFGParams configures an asynchronous frame group transmit or receive task,
// which matches the DSP rate to an external clock such as S/PDIF.
type AsyncFGParams struct {
	Format     *audio.Format // External rate; defaults to DSPSampleRate
	HFGDivider uint16
	Buffer     uint16
	FIFO       uint16
}

// SnoopParams configures an output snoop or loopback snoop task, which taps the output of another SCB.
type SnoopParams struct {
	Snoop        *SCB // The SCB whose output is tapped; must be live
	OutputBuffer uint16
	Channels     uint16 // 1 or 2; defaults to 2
}

// SPIORegister is a single register write performed by a direct I/O write task.
type SPIORegister struct {
	Register uint32
	Value    uint32
}

// SPIOWriteParams configures a direct hardware I/O write task.
type SPIOWriteParams struct {
	Writes []SPIORegister // At most MaxSPIOWrites
}

// MaxSPIOWrites is the number of register writes a single SPIOWRITE task can perform.
const MaxSPIOWrites = 4

// Word offsets of the task-owned fields of each layout. Offsets 0x9 and 0xA are shared by all tasks.
const (
	// Timing master.
	tmStatus      = 0x0
	tmFrameGroup  = 0x1
	tmSampleCount = 0x2
	tmPhiIncr     = 0x3

	// Codec output and input.
	coBuffer   = 0x0
	coFIFO     = 0x1
	coVolume   = 0x2
	coDivider  = 0x3
	coOStream  = 0x4
	ciFIFO     = 0x0
	ciBuffer   = 0x1
	ciChannels = 0x2

	// PCM reader.
	pcmHostAddr = 0x0
	pcmHostSize = 0x1
	pcmBuffer   = 0x2
	pcmFormat   = 0x3
	pcmVolume   = 0x4
	pcmPhiIncr  = 0x5

	// Sample rate converter, decimator and async FG tasks.
	srcPhiIncr    = 0x0
	srcCorrection = 0x1
	srcBuffers    = 0x2
	srcOutput     = 0x3
	srcVolume     = 0x4

	// Mixer and mix-to-ostream.
	mixBuffer = 0x0
	mixOutput = 0x1
	mixVolume = 0x2

	// Serial input and snoop tasks.
	ioInput    = 0x0
	ioOutput   = 0x1
	ioChannels = 0x2

	// Async FG tasks.
	fgDivider = 0x5
	fgFIFO    = 0x6

	// SPIO write pairs start at word 0 and fill words 0..7.
	spioPairs = 0x0
	spioCount = 0xb
)
