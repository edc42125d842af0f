// Package dsp provides a Go interface for building the Stream Control Block (SCB) task graph of a CS46xx-style audio DSP,
// modeled after the SCB manager of the Linux cs46xx driver.
//
// A Graph mirrors the DSP task memory on the host. Tasks are created with one of the Create*SCB builders,
// attached as the child or sibling of an existing task, and removed leaf-first with Remove.
// Every structural change is committed to DSP memory through a Memory implementation.
package dsp

// Slot selects which link of a parent SCB a new task is attached to.
type Slot int

const (
	// AsChild attaches the task to the parent's sub-list pointer.
	AsChild Slot = iota
	// AsSibling attaches the task to the parent's next-SCB pointer.
	AsSibling
)

// String returns the name of the slot.
func (s Slot) String() string {
	switch s {
	case AsChild:
		return "child"
	case AsSibling:
		return "sibling"
	default:
		return "unknown"
	}
}

// SymbolKind classifies the entries of the DSP symbol table.
// These values correspond to the symbol types of the DSP image format.
type SymbolKind uint32

const (
	SYMBOL_CONSTANT  SymbolKind = 0x0
	SYMBOL_SAMPLE    SymbolKind = 0x1
	SYMBOL_PARAMETER SymbolKind = 0x2
	SYMBOL_CODE      SymbolKind = 0x3
)

// SymbolKindNames provides human-readable names for symbol kinds.
var SymbolKindNames = map[SymbolKind]string{
	SYMBOL_CONSTANT:  "CONSTANT",
	SYMBOL_SAMPLE:    "SAMPLE",
	SYMBOL_PARAMETER: "PARAMETER",
	SYMBOL_CODE:      "CODE",
}

// String returns the name of the symbol kind.
func (k SymbolKind) String() string {
	if name, ok := SymbolKindNames[k]; ok {
		return name
	}

	return "UNKNOWN"
}

// Task entry point symbols resolved by the builders.
const (
	TaskTimingMaster   = "TIMINGMASTER"
	TaskCodecOutput    = "S16_CODECOUTPUTTASK"
	TaskCodecInput     = "S16_CODECINPUTTASK"
	TaskPCMReader      = "PCMREADER"
	TaskSRC            = "SRCTASK"
	TaskMixer          = "MIXER"
	TaskMixToOStream   = "MIXTOOSTREAM"
	TaskVariDecimate   = "VARIDECIMATE"
	TaskPCMSerialInput = "PCMSERIALINPUTTASK"
	TaskAsyncFGTx      = "ASYNCHFGTXCODE"
	TaskAsyncFGRx      = "ASYNCHFGRXCODE"
	TaskOutputSnoop    = "OUTPUTSNOOP"
	TaskSPIOWrite      = "SPIOWRITE"
	TaskMagicSnoop     = "MAGICSNOOPTASK"
	TaskNull           = "NULLALGORITHM"
)

const (
	maxSymbolName      = 20
	symbolRecordSize   = 8 + maxSymbolName
	defaultMaxSCBs     = 200
	defaultMaxSCBWords = 0x40
)

// TaskMemoryWords is the size of the DSP task memory region (BA1) in words.
const TaskMemoryWords = 0x4000

// Well-known word offsets shared by every SCB layout.
const (
	// SCBsubListPtr holds the link word: sub-list pointer in the high half, next SCB in the low half.
	SCBsubListPtr = 0x9
	// SCBfuncEntryPtr holds the task entry point in its low half.
	SCBfuncEntryPtr = 0xA
	// SCBMinWords is the smallest payload any task type may have.
	SCBMinWords = 0x10
	// SCBAddressLimit bounds every SCB: link words hold 16-bit addresses, so a payload must end at or below it.
	SCBAddressLimit = 0x10000
)

// Default DSP task memory addresses of the standard playback and capture graph.
const (
	NULL_SCB_ADDR          = 0x000
	TIMINGMASTER_SCB_ADDR  = 0x010
	CODECOUT_SCB_ADDR      = 0x020
	PCMREADER_SCB_ADDR     = 0x030
	WRITEBACK_SCB_ADDR     = 0x040
	CODECIN_SCB_ADDR       = 0x080
	MASTERMIX_SCB_ADDR     = 0x090
	SRCTASK_SCB_ADDR       = 0x0a0
	VARIDECIMATE_SCB_ADDR  = 0x0b0
	PCMSERIALIN_SCB_ADDR   = 0x0c0
	FG_TASK_HEADER_ADDR    = 0x600
	REAR_MIXER_SCB_ADDR    = 0x0d0
	REAR_CODECOUT_SCB_ADDR = 0x0e0
	MIX_SAMPLE_BUF1        = 0x1400
	MIX_SAMPLE_BUF2        = 0x2e80
	CODEC_INPUT_BUF1       = 0x1500
	PCM_CAPTURE_BUF1       = 0x1a00
	CODEC_OUTPUT_BUF1      = 0x1600
	SRC_OUTPUT_BUF1        = 0x1700
	SRC_DELAY_BUF1         = 0x1780
	PCM_READER_BUF1        = 0x1800
	SPIOWRITE_SCB_ADDR     = 0x0f0
	OUTPUTSNOOP_SCB_ADDR   = 0x100
	MAGICSNOOP_SCB_ADDR    = 0x110
	ASYNCTX_SCB_ADDR       = 0x120
	ASYNCRX_SCB_ADDR       = 0x130
	MIXTOOSTREAM_SCB_ADDR  = 0x140
	OUTPUTSNOOP_BUF        = 0x1900
)

// Rate conversion constants. The DSP runs at a fixed 48 kHz and processes 200 groups of frames per second.
const (
	DSPSampleRate = 48000
	GOFPerSec     = 200
	MaxSampleRate = 192000
)

// Volume levels as written to DSP volume words. 0 is full scale, 0xffff is mute.
const (
	VolumeMax  uint16 = 0x0000
	VolumeMute uint16 = 0xffff
)
