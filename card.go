package dsp

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DSPDriver is the driver name CS46xx cards report in /proc/asound/cards.
const DSPDriver = "CS46xx"

// SoundCard represents an enumerated sound card driven by a DSP-capable driver.
type SoundCard struct {
	ID          int
	Name        string
	Driver      string
	Description string
}

// String returns a human-readable representation of the SoundCard.
func (c SoundCard) String() string {
	return fmt.Sprintf("Card %d: %s [%s] (%s)", c.ID, c.Name, c.Driver, c.Description)
}

// ResourcePath returns the sysfs file of the PCI region holding the DSP task memory of the card (BA1).
// sysRoot is normally "/sys".
func (c SoundCard) ResourcePath(sysRoot string) string {
	return filepath.Join(sysRoot, "class", "sound", fmt.Sprintf("card%d", c.ID), "device", "resource1")
}

// FindCards scans the ALSA card list under procRoot (normally "/proc") for cards using the given driver.
// An empty driver returns every card.
func FindCards(procRoot, driver string) ([]SoundCard, error) {
	cardsFile := filepath.Join(procRoot, "asound", "cards")
	content, err := os.ReadFile(cardsFile)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", cardsFile, err)
	}

	// Lines look like " 0 [CS46xx         ]: CS46xx - Sound Fusion CS4630".
	cardRegex := regexp.MustCompile(`^\s*(\d+)\s+\[\s*([^]]*?)\s*\]:\s*(\S+)\s+-\s+(.*)`)

	var cards []SoundCard
	for _, line := range strings.Split(string(content), "\n") {
		matches := cardRegex.FindStringSubmatch(line)
		if len(matches) != 5 {
			continue
		}

		id, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		card := SoundCard{
			ID:          id,
			Name:        strings.TrimSpace(matches[2]),
			Driver:      matches[3],
			Description: strings.TrimSpace(matches[4]),
		}

		if driver != "" && card.Driver != driver {
			continue
		}

		cards = append(cards, card)
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })

	return cards, nil
}
