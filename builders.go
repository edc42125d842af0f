package dsp

import (
	"fmt"

	"github.com/go-audio/audio"
)

// task is a fully encoded SCB waiting to be created.
type task struct {
	name    string
	symbol  string
	address uint32
	payload Payload
	parent  *SCB
	slot    Slot
	volume  int
	entryHi uint16 // Task-owned high half of the entry word
}

// create resolves the task's entry point, allocates a descriptor, writes the payload and links it to its parent.
// Every precondition is checked before anything is mutated; if a DSP write fails the descriptor is rolled back.
func (g *Graph) create(t task) (*SCB, error) {
	if err := g.usable(); err != nil {
		return nil, err
	}

	entry, err := g.symbols.Lookup(t.symbol, SYMBOL_CODE)
	if err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", t.name, err)
	}

	if len(t.payload) < SCBMinWords || len(t.payload) > g.config.MaxSCBWords {
		return nil, scbErrorf(ErrInvalidParams, t.name, "payload of %d words, want %d..%d", len(t.payload), SCBMinWords, g.config.MaxSCBWords)
	}

	if t.parent != nil {
		if err := g.live(t.parent); err != nil {
			return nil, fmt.Errorf("cannot attach %s: %w", t.name, err)
		}

		if err := g.checkSlot(t.parent, t.slot); err != nil {
			return nil, fmt.Errorf("cannot attach %s: %w", t.name, err)
		}
	}

	if err := g.arena.reserve(t.name, t.address, len(t.payload)); err != nil {
		return nil, err
	}

	payload := t.payload.Clone()
	payload[SCBfuncEntryPtr] = uint32(t.entryHi)<<16 | entry.Address&0xffff
	payload[SCBsubListPtr] = g.null.address<<16 | g.null.address

	s, err := g.arena.allocate(t.name, t.address, payload)
	if err != nil {
		return nil, err
	}

	s.entry = entry
	s.volume = t.volume
	s.graph = g

	if err := WriteBlock(g.mem, s.address, s.payload); err != nil {
		g.rollback(s)

		return nil, fmt.Errorf("failed to write %s: %w", t.name, err)
	}

	if t.parent != nil {
		if err := g.attach(s, t.parent, t.slot); err != nil {
			g.rollback(s)

			return nil, fmt.Errorf("cannot attach %s: %w", t.name, err)
		}
	}

	if err := g.paranoia(); err != nil {
		g.discard(s)

		return nil, fmt.Errorf("graph check after creating %s failed: %w", t.name, err)
	}

	return s, nil
}

// discard takes back a freshly linked descriptor. The parent link is cleared even when detach refuses.
func (g *Graph) discard(s *SCB) {
	if err := g.detach(s); err != nil {
		if p := s.parent; p != nil {
			switch s {
			case p.child:
				p.child = nil
			case p.sibling:
				p.sibling = nil
			}

			_ = g.commitLink(p)
			s.parent = nil
		}
	}

	g.rollback(s)
}

// rollback drops an unlinked descriptor and clears whatever part of its payload reached the DSP.
func (g *Graph) rollback(s *SCB) {
	if g.arena.contains(s) {
		_ = g.arena.remove(s)
	}

	s.removed = true

	for i := range s.payload {
		if err := g.mem.Write32(s.address+uint32(i), 0); err != nil {
			break
		}
	}
}

// newPayload returns a zeroed payload of the minimum SCB size.
func newPayload() Payload {
	return make(Payload, SCBMinWords)
}

// formatRate returns the sample rate of f, or def when f is nil or leaves it unset.
func formatRate(name string, f *audio.Format, def uint32) (uint32, error) {
	if f == nil || f.SampleRate == 0 {
		return def, nil
	}

	if f.SampleRate < 0 || f.SampleRate > MaxSampleRate {
		return 0, scbErrorf(ErrInvalidParams, name, "sample rate %d out of range 1..%d", f.SampleRate, MaxSampleRate)
	}

	return uint32(f.SampleRate), nil
}

// formatChannels returns the channel count of f, or def when f is nil or leaves it unset.
// Only mono and stereo streams are supported.
func formatChannels(name string, f *audio.Format, def uint16) (uint16, error) {
	if f == nil || f.NumChannels == 0 {
		return def, nil
	}

	if f.NumChannels < 1 || f.NumChannels > 2 {
		return 0, scbErrorf(ErrInvalidParams, name, "unsupported channel count %d", f.NumChannels)
	}

	return uint16(f.NumChannels), nil
}

// RateParams computes the phase increment and drift corrections that step a stream at rateIn against rateOut:
//
//	phiIncr          = floor(rateIn * 2^26 / rateOut)
//	correctionPerGOF = (rateIn * 2^26 - rateOut * phiIncr) / GOFPerSec
//	correctionPerSec = (rateIn * 2^26 - rateOut * phiIncr) % GOFPerSec
func RateParams(rateIn, rateOut uint32) (phiIncr, correctionPerGOF, correctionPerSec uint32, err error) {
	if rateIn == 0 || rateIn > MaxSampleRate || rateOut == 0 || rateOut > MaxSampleRate {
		return 0, 0, 0, scbErrorf(ErrInvalidParams, "", "rate %d/%d out of range 1..%d", rateIn, rateOut, MaxSampleRate)
	}

	num := uint64(rateIn) << 26
	phi := num / uint64(rateOut)
	rem := num - phi*uint64(rateOut)

	return uint32(phi), uint32(rem / GOFPerSec), uint32(rem % GOFPerSec), nil
}

// CreateTimingMasterSCB creates the timing master. It is always a root: every other task hangs below it.
func (g *Graph) CreateTimingMasterSCB(name string, address uint32, params *TimingMasterParams) (*SCB, error) {
	if params == nil {
		params = &TimingMasterParams{}
	}

	rate := params.SampleRate
	if rate == 0 {
		rate = DSPSampleRate
	}

	phi, _, _, err := RateParams(rate, DSPSampleRate)
	if err != nil {
		return nil, fmt.Errorf("timing master %s: %w", name, err)
	}

	frameGroup := params.FrameGroupLength
	if frameGroup == 0 {
		frameGroup = uint16(rate / GOFPerSec)
	}

	p := newPayload()
	p[tmFrameGroup] = uint32(frameGroup) << 16
	p[tmPhiIncr] = phi

	return g.create(task{name: name, symbol: TaskTimingMaster, address: address, payload: p, volume: -1})
}

// CreateCodecOutputSCB creates a codec output task.
func (g *Graph) CreateCodecOutputSCB(name string, address uint32, params *CodecOutputParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil {
		params = &CodecOutputParams{InputBuffer: CODEC_OUTPUT_BUF1}
	}

	p := newPayload()
	p[coBuffer] = uint32(params.InputBuffer)
	p[coFIFO] = uint32(params.FIFOAddress)<<16 | uint32(params.ChannelDisp)
	p[coVolume] = params.Volume.word()
	p[coDivider] = uint32(params.HFGDivider)
	p[coOStream] = uint32(params.OutputStream)

	return g.create(task{
		name: name, symbol: TaskCodecOutput, address: address, payload: p,
		parent: parent, slot: slot, volume: coVolume, entryHi: params.ChannelDisp,
	})
}

// CreateCodecInputSCB creates a codec input task.
func (g *Graph) CreateCodecInputSCB(name string, address uint32, params *CodecInputParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil {
		params = &CodecInputParams{OutputBuffer: CODEC_INPUT_BUF1}
	}

	p := newPayload()
	p[ciFIFO] = uint32(params.FIFOAddress)<<16 | uint32(params.ChannelDisp)
	p[ciBuffer] = uint32(params.OutputBuffer)
	p[ciChannels] = 2

	return g.create(task{
		name: name, symbol: TaskCodecInput, address: address, payload: p,
		parent: parent, slot: slot, volume: -1,
	})
}

// CreatePCMReaderSCB creates a PCM reader task.
func (g *Graph) CreatePCMReaderSCB(name string, address uint32, params *PCMReaderParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil {
		return nil, scbErrorf(ErrInvalidParams, name, "PCM reader needs a host buffer")
	}

	channels, err := formatChannels(name, params.Format, 2)
	if err != nil {
		return nil, err
	}

	bits := params.BitDepth
	if bits == 0 {
		bits = 16
	}

	if bits != 8 && bits != 16 {
		return nil, scbErrorf(ErrInvalidParams, name, "unsupported bit depth %d", bits)
	}

	rate, err := formatRate(name, params.Format, DSPSampleRate)
	if err != nil {
		return nil, err
	}

	phi, _, _, err := RateParams(rate, DSPSampleRate)
	if err != nil {
		return nil, fmt.Errorf("PCM reader %s: %w", name, err)
	}

	p := newPayload()
	p[pcmHostAddr] = params.HostBuffer
	p[pcmHostSize] = params.HostSize
	p[pcmBuffer] = uint32(params.OutputBuffer)
	p[pcmFormat] = uint32(channels)<<16 | uint32(bits)
	p[pcmVolume] = params.Volume.word()
	p[pcmPhiIncr] = phi

	return g.create(task{
		name: name, symbol: TaskPCMReader, address: address, payload: p,
		parent: parent, slot: slot, volume: pcmVolume,
	})
}

// CreateSRCTaskSCB creates a sample rate converter that brings a stream at params.Format.SampleRate to the DSP rate.
func (g *Graph) CreateSRCTaskSCB(name string, address uint32, params *SRCParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil || params.Format == nil || params.Format.SampleRate <= 0 {
		return nil, scbErrorf(ErrInvalidParams, name, "SRC needs a source sample rate")
	}

	rate, err := formatRate(name, params.Format, 0)
	if err != nil {
		return nil, err
	}

	phi, perGOF, perSec, err := RateParams(rate, DSPSampleRate)
	if err != nil {
		return nil, fmt.Errorf("SRC %s: %w", name, err)
	}

	p := newPayload()
	p[srcPhiIncr] = phi
	p[srcCorrection] = perGOF<<16 | perSec
	p[srcBuffers] = uint32(params.SourceBuffer)<<16 | uint32(params.DelayBuffer)
	p[srcOutput] = uint32(params.OutputBuffer)
	p[srcVolume] = params.Volume.word()

	return g.create(task{
		name: name, symbol: TaskSRC, address: address, payload: p,
		parent: parent, slot: slot, volume: srcVolume,
	})
}

// CreateMixerOnlySCB creates a mixer that sums the outputs of its sub-list.
func (g *Graph) CreateMixerOnlySCB(name string, address uint32, params *MixerParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil {
		params = &MixerParams{MixBuffer: MIX_SAMPLE_BUF1, OutputBuffer: CODEC_OUTPUT_BUF1}
	}

	p := newPayload()
	p[mixBuffer] = uint32(params.MixBuffer)
	p[mixOutput] = uint32(params.OutputBuffer)
	p[mixVolume] = params.Volume.word()

	return g.create(task{
		name: name, symbol: TaskMixer, address: address, payload: p,
		parent: parent, slot: slot, volume: mixVolume,
	})
}

// CreateMixToOStreamSCB creates a mixer that writes straight into an output stream.
func (g *Graph) CreateMixToOStreamSCB(name string, address uint32, params *MixToOStreamParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil {
		params = &MixToOStreamParams{MixBuffer: MIX_SAMPLE_BUF2}
	}

	p := newPayload()
	p[mixBuffer] = uint32(params.MixBuffer)
	p[mixOutput] = uint32(params.OutputStream)

	return g.create(task{
		name: name, symbol: TaskMixToOStream, address: address, payload: p,
		parent: parent, slot: slot, volume: -1,
	})
}

// CreateVariDecimateSCB creates a decimator that converts the DSP rate down to params.Format.SampleRate.
func (g *Graph) CreateVariDecimateSCB(name string, address uint32, params *VariDecimateParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil || params.Format == nil || params.Format.SampleRate <= 0 {
		return nil, scbErrorf(ErrInvalidParams, name, "decimator needs a target sample rate")
	}

	if params.Format.SampleRate > DSPSampleRate {
		return nil, scbErrorf(ErrInvalidParams, name, "cannot decimate to %d Hz", params.Format.SampleRate)
	}

	rate, err := formatRate(name, params.Format, 0)
	if err != nil {
		return nil, err
	}

	phi, perGOF, perSec, err := RateParams(DSPSampleRate, rate)
	if err != nil {
		return nil, fmt.Errorf("decimator %s: %w", name, err)
	}

	p := newPayload()
	p[srcPhiIncr] = phi
	p[srcCorrection] = perGOF<<16 | perSec
	p[srcBuffers] = uint32(params.InputBuffer) << 16
	p[srcOutput] = uint32(params.OutputBuffer)

	return g.create(task{
		name: name, symbol: TaskVariDecimate, address: address, payload: p,
		parent: parent, slot: slot, volume: -1,
	})
}

// CreatePCMSerialInputSCB creates a serial input task.
func (g *Graph) CreatePCMSerialInputSCB(name string, address uint32, params *PCMSerialInputParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil {
		params = &PCMSerialInputParams{InputBuffer: CODEC_INPUT_BUF1}
	}

	channels, err := channelCount(name, params.Channels)
	if err != nil {
		return nil, err
	}

	p := newPayload()
	p[ioInput] = uint32(params.InputBuffer)
	p[ioOutput] = uint32(params.OutputBuffer)
	p[ioChannels] = uint32(channels)

	return g.create(task{
		name: name, symbol: TaskPCMSerialInput, address: address, payload: p,
		parent: parent, slot: slot, volume: -1,
	})
}

// CreateAsyncFGTxSCB creates an asynchronous frame group transmit task.
func (g *Graph) CreateAsyncFGTxSCB(name string, address uint32, params *AsyncFGParams, parent *SCB, slot Slot) (*SCB, error) {
	return g.createAsyncFG(name, TaskAsyncFGTx, address, params, parent, slot, true)
}

// CreateAsyncFGRxSCB creates an asynchronous frame group receive task.
func (g *Graph) CreateAsyncFGRxSCB(name string, address uint32, params *AsyncFGParams, parent *SCB, slot Slot) (*SCB, error) {
	return g.createAsyncFG(name, TaskAsyncFGRx, address, params, parent, slot, false)
}

func (g *Graph) createAsyncFG(name, symbol string, address uint32, params *AsyncFGParams, parent *SCB, slot Slot, tx bool) (*SCB, error) {
	if params == nil {
		params = &AsyncFGParams{}
	}

	rate, err := formatRate(name, params.Format, DSPSampleRate)
	if err != nil {
		return nil, err
	}

	// Transmit steps the DSP rate against the external clock, receive the other way round.
	in, out := uint32(DSPSampleRate), rate
	if !tx {
		in, out = rate, DSPSampleRate
	}

	phi, perGOF, perSec, err := RateParams(in, out)
	if err != nil {
		return nil, fmt.Errorf("async FG %s: %w", name, err)
	}

	p := newPayload()
	p[srcPhiIncr] = phi
	p[srcCorrection] = perGOF<<16 | perSec
	p[srcOutput] = uint32(params.Buffer)
	p[fgDivider] = uint32(params.HFGDivider)
	p[fgFIFO] = uint32(params.FIFO)

	return g.create(task{
		name: name, symbol: symbol, address: address, payload: p,
		parent: parent, slot: slot, volume: -1,
	})
}

// CreateOutputSnoopSCB creates a task that copies the output of params.Snoop into a buffer.
func (g *Graph) CreateOutputSnoopSCB(name string, address uint32, params *SnoopParams, parent *SCB, slot Slot) (*SCB, error) {
	return g.createSnoop(name, TaskOutputSnoop, address, params, parent, slot)
}

// CreateMagicSnoopSCB creates a loopback snoop task that feeds the output of params.Snoop back into capture.
func (g *Graph) CreateMagicSnoopSCB(name string, address uint32, params *SnoopParams, parent *SCB, slot Slot) (*SCB, error) {
	return g.createSnoop(name, TaskMagicSnoop, address, params, parent, slot)
}

func (g *Graph) createSnoop(name, symbol string, address uint32, params *SnoopParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil || params.Snoop == nil {
		return nil, scbErrorf(ErrInvalidParams, name, "snoop task needs an SCB to snoop")
	}

	if err := g.usable(); err != nil {
		return nil, err
	}

	if err := g.live(params.Snoop); err != nil {
		return nil, fmt.Errorf("cannot snoop for %s: %w", name, err)
	}

	channels, err := channelCount(name, params.Channels)
	if err != nil {
		return nil, err
	}

	p := newPayload()
	p[ioInput] = params.Snoop.address
	p[ioOutput] = uint32(params.OutputBuffer)
	p[ioChannels] = uint32(channels)

	return g.create(task{
		name: name, symbol: symbol, address: address, payload: p,
		parent: parent, slot: slot, volume: -1,
	})
}

// CreateSPIOWriteSCB creates a task that performs up to MaxSPIOWrites register writes every frame group.
func (g *Graph) CreateSPIOWriteSCB(name string, address uint32, params *SPIOWriteParams, parent *SCB, slot Slot) (*SCB, error) {
	if params == nil {
		params = &SPIOWriteParams{}
	}

	if len(params.Writes) > MaxSPIOWrites {
		return nil, scbErrorf(ErrInvalidParams, name, "%d register writes, at most %d", len(params.Writes), MaxSPIOWrites)
	}

	p := newPayload()
	for i, w := range params.Writes {
		p[spioPairs+2*i] = w.Register
		p[spioPairs+2*i+1] = w.Value
	}

	p[spioCount] = uint32(len(params.Writes))

	return g.create(task{
		name: name, symbol: TaskSPIOWrite, address: address, payload: p,
		parent: parent, slot: slot, volume: -1,
	})
}

// CreateGenericSCB creates a task from a caller-encoded payload.
// The entry word's low half and the link word are overwritten; everything else is written as given.
func (g *Graph) CreateGenericSCB(name, symbol string, address uint32, payload Payload, parent *SCB, slot Slot) (*SCB, error) {
	var entryHi uint16
	if len(payload) > SCBfuncEntryPtr {
		entryHi = uint16(payload[SCBfuncEntryPtr] >> 16)
	}

	return g.create(task{
		name: name, symbol: symbol, address: address, payload: payload,
		parent: parent, slot: slot, volume: -1, entryHi: entryHi,
	})
}

// SetVolume updates the volume word of a task that has one and writes it to the DSP.
func (g *Graph) SetVolume(s *SCB, left, right uint16) error {
	if err := g.usable(); err != nil {
		return err
	}

	if err := g.live(s); err != nil {
		return err
	}

	if s.volume < 0 {
		return scbErrorf(ErrInvalidParams, s.name, "%s has no volume word", s.entry.Name)
	}

	word := Volume{Left: left, Right: right}.word()
	if err := g.mem.Write32(s.address+uint32(s.volume), word); err != nil {
		return fmt.Errorf("failed to write volume of %s: %w", s.name, err)
	}

	s.payload[s.volume] = word

	return nil
}

// Volume returns the volume currently programmed into a task.
func (s *SCB) Volume() (Volume, error) {
	if s == nil {
		return Volume{}, scbErrorf(ErrInvalidSCB, "", "scb is nil")
	}

	if s.volume < 0 {
		return Volume{}, scbErrorf(ErrInvalidParams, s.name, "%s has no volume word", s.entry.Name)
	}

	word := s.payload[s.volume]

	return Volume{Left: uint16(word >> 16), Right: uint16(word)}, nil
}

func channelCount(name string, channels uint16) (uint16, error) {
	if channels == 0 {
		return 2, nil
	}

	if channels > 2 {
		return 0, scbErrorf(ErrInvalidParams, name, "unsupported channel count %d", channels)
	}

	return channels, nil
}
