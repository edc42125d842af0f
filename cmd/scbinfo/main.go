package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gen2brain/dsp"
)

func main() {
	var (
		procRoot  string
		sysRoot   string
		imagePath string
		kindName  string
		writePath string
	)

	flag.StringVar(&procRoot, "proc", "/proc", "Root of the proc filesystem")
	flag.StringVar(&sysRoot, "sys", "/sys", "Root of the sysfs filesystem")
	flag.StringVar(&imagePath, "symbols", "", "Symbol section of the DSP image (empty = stock symbols)")
	flag.StringVar(&kindName, "kind", "", "Only list symbols of this kind (CONSTANT, SAMPLE, PARAMETER, CODE)")
	flag.StringVar(&writePath, "write", "", "Write the symbol table to this file in image format")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	cards, err := dsp.FindCards(procRoot, dsp.DSPDriver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	fmt.Printf("%s cards: %d\n", dsp.DSPDriver, len(cards))
	for _, card := range cards {
		fmt.Printf("  %s\n", card)
		fmt.Printf("    DSP memory: %s\n", card.ResourcePath(sysRoot))
	}

	var symbols *dsp.SymbolTable
	if imagePath == "" {
		symbols, err = dsp.NewSymbolTable(dsp.DefaultSymbols()...)
	} else {
		symbols, err = loadSymbols(imagePath)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading symbols: %v\n", err)
		os.Exit(1)
	}

	var kind *dsp.SymbolKind
	if kindName != "" {
		for k, name := range dsp.SymbolKindNames {
			if name == kindName {
				kind = &k

				break
			}
		}

		if kind == nil {
			fmt.Fprintf(os.Stderr, "Unknown symbol kind %q\n", kindName)
			os.Exit(1)
		}
	}

	fmt.Printf("\nSymbols: %d\n", symbols.Len())
	for _, sym := range symbols.Symbols() {
		if kind != nil && sym.Kind != *kind {
			continue
		}

		fmt.Printf("  %s\n", sym)
	}

	if writePath == "" {
		return
	}

	file, err := os.Create(writePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", writePath, err)
		os.Exit(1)
	}

	if err := dsp.WriteSymbolTable(file, symbols.Symbols()); err != nil {
		_ = file.Close()
		fmt.Fprintf(os.Stderr, "Error writing symbols: %v\n", err)
		os.Exit(1)
	}

	if err := file.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing symbols: %v\n", err)
		os.Exit(1)
	}
}

func loadSymbols(path string) (*dsp.SymbolTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return dsp.LoadSymbolTable(file)
}
