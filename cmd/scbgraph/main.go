package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-audio/audio"

	"github.com/gen2brain/dsp"
)

func main() {
	var (
		card        int
		procRoot    string
		sysRoot     string
		imagePath   string
		captureRate int
		rate        int
		channels    int
		paranoid    bool
		teardown    bool
	)

	flag.IntVar(&card, "card", -1, "The card whose DSP memory is mapped (-1 = dry run on simulated memory)")
	flag.StringVar(&procRoot, "proc", "/proc", "Root of the proc filesystem")
	flag.StringVar(&sysRoot, "sys", "/sys", "Root of the sysfs filesystem")
	flag.StringVar(&imagePath, "symbols", "", "Symbol section of the DSP image (empty = stock symbols)")
	flag.IntVar(&rate, "rate", 0, "The playback rate (0 = use the file's rate, or 48000 without a file)")
	flag.IntVar(&channels, "channels", 0, "The playback channels (0 = use the file's channels, or 2 without a file)")
	flag.IntVar(&captureRate, "capture-rate", 0, "Also build a capture chain decimating to this rate (0 = no capture)")
	flag.BoolVar(&paranoid, "paranoid", false, "Check the graph after every change")
	flag.BoolVar(&teardown, "teardown", false, "Remove the graph again after printing it")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [wav-or-mp3-file]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(1)
	}

	src := &source{Format: &audio.Format{NumChannels: 2, SampleRate: dsp.DSPSampleRate}, BitDepth: 16}
	if flag.NArg() == 1 {
		probed, err := probeSource(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", flag.Arg(0), err)
			os.Exit(1)
		}

		src = probed
	}

	if rate > 0 {
		src.Format.SampleRate = rate
	}

	if channels > 0 {
		src.Format.NumChannels = channels
	}

	symbols, err := loadSymbols(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading symbols: %v\n", err)
		os.Exit(1)
	}

	mem, closeMem, err := openMemory(card, procRoot, sysRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening DSP memory: %v\n", err)
		os.Exit(1)
	}
	defer closeMem()

	g, err := dsp.Open(mem, symbols, &dsp.Config{Paranoid: paranoid})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening SCB graph: %v\n", err)
		os.Exit(1)
	}

	if err := buildPlayback(g, src); err != nil {
		fmt.Fprintf(os.Stderr, "Error building playback chain: %v\n", err)
		_ = g.Close()
		os.Exit(1)
	}

	if captureRate > 0 {
		if err := buildCapture(g, captureRate); err != nil {
			fmt.Fprintf(os.Stderr, "Error building capture chain: %v\n", err)
			_ = g.Close()
			os.Exit(1)
		}
	}

	if err := g.Verify(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	fmt.Print(g.String())

	if !teardown {
		return
	}

	count := g.Count()
	if err := g.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error tearing down graph: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Removed %d SCBs.\n", count)
}

func loadSymbols(path string) (*dsp.SymbolTable, error) {
	if path == "" {
		return dsp.NewSymbolTable(dsp.DefaultSymbols()...)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return dsp.LoadSymbolTable(file)
}

// openMemory maps the task memory of the given card, or returns simulated memory for a dry run.
func openMemory(card int, procRoot, sysRoot string) (dsp.Memory, func(), error) {
	if card < 0 {
		return dsp.NewBufferMemory(dsp.TaskMemoryWords), func() {}, nil
	}

	cards, err := dsp.FindCards(procRoot, dsp.DSPDriver)
	if err != nil {
		return nil, nil, err
	}

	for _, c := range cards {
		if c.ID != card {
			continue
		}

		mem, err := dsp.MmapOpen(c.ResourcePath(sysRoot), dsp.TaskMemoryWords)
		if err != nil {
			return nil, nil, err
		}

		return mem, func() { _ = mem.Close() }, nil
	}

	return nil, nil, fmt.Errorf("card %d is not a %s card", card, dsp.DSPDriver)
}

// buildPlayback creates the timing master, the codec output and a mixer fed by an SRC-converted PCM reader.
func buildPlayback(g *dsp.Graph, src *source) error {
	tm, err := g.CreateTimingMasterSCB("TimingMasterSCBInst", dsp.TIMINGMASTER_SCB_ADDR, nil)
	if err != nil {
		return err
	}

	codecOut, err := g.CreateCodecOutputSCB("CodecOutSCB_I", dsp.CODECOUT_SCB_ADDR, &dsp.CodecOutputParams{
		InputBuffer: dsp.CODEC_OUTPUT_BUF1,
		FIFOAddress: 0x0,
		Volume:      dsp.Volume{Left: dsp.VolumeMax, Right: dsp.VolumeMax},
	}, tm, dsp.AsChild)
	if err != nil {
		return err
	}

	mixer, err := g.CreateMixerOnlySCB("MasterMixerSCB", dsp.MASTERMIX_SCB_ADDR, &dsp.MixerParams{
		MixBuffer:    dsp.MIX_SAMPLE_BUF1,
		OutputBuffer: dsp.CODEC_OUTPUT_BUF1,
		Volume:       dsp.Volume{Left: dsp.VolumeMax, Right: dsp.VolumeMax},
	}, codecOut, dsp.AsSibling)
	if err != nil {
		return err
	}

	// The reader feeds the mixer directly when the stream already runs at the DSP rate.
	readerParent := mixer
	if src.Format.SampleRate != dsp.DSPSampleRate {
		readerParent, err = g.CreateSRCTaskSCB("SrcTaskSCB_I", dsp.SRCTASK_SCB_ADDR, &dsp.SRCParams{
			Format:       src.Format,
			SourceBuffer: dsp.PCM_READER_BUF1,
			DelayBuffer:  dsp.SRC_DELAY_BUF1,
			OutputBuffer: dsp.SRC_OUTPUT_BUF1,
			Volume:       dsp.Volume{Left: dsp.VolumeMax, Right: dsp.VolumeMax},
		}, mixer, dsp.AsChild)
		if err != nil {
			return err
		}
	}

	_, err = g.CreatePCMReaderSCB("PCMReaderSCB_I", dsp.PCMREADER_SCB_ADDR, &dsp.PCMReaderParams{
		OutputBuffer: dsp.PCM_READER_BUF1,
		Format:       src.Format,
		BitDepth:     src.BitDepth,
		Volume:       dsp.Volume{Left: dsp.VolumeMax, Right: dsp.VolumeMax},
	}, readerParent, dsp.AsChild)

	return err
}

// buildCapture creates the codec input chain next to the timing master.
func buildCapture(g *dsp.Graph, rate int) error {
	tm := g.Lookup("TimingMasterSCBInst")

	codecIn, err := g.CreateCodecInputSCB("CodecInSCB", dsp.CODECIN_SCB_ADDR, nil, tm, dsp.AsSibling)
	if err != nil {
		return err
	}

	decimate, err := g.CreateVariDecimateSCB("VariDecimateSCB", dsp.VARIDECIMATE_SCB_ADDR, &dsp.VariDecimateParams{
		Format:       &audio.Format{NumChannels: 2, SampleRate: rate},
		InputBuffer:  dsp.CODEC_INPUT_BUF1,
		OutputBuffer: dsp.PCM_CAPTURE_BUF1,
	}, codecIn, dsp.AsChild)
	if err != nil {
		return err
	}

	_, err = g.CreatePCMSerialInputSCB("PCMSerialInSCB", dsp.PCMSERIALIN_SCB_ADDR, &dsp.PCMSerialInputParams{
		InputBuffer: dsp.PCM_CAPTURE_BUF1,
	}, decimate, dsp.AsChild)

	return err
}
