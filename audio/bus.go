package audio

import (
	"fmt"
	"strings"
)

// Bus is a named volume channel sounds are routed through
type Bus int

const (
	BusMaster Bus = iota // parent of every other bus
	BusMusic
	BusSFX
	busCount
)

var busNames = [busCount]string{
	BusMaster: "master",
	BusMusic:  "music",
	BusSFX:    "sfx",
}

// Persisted parameter names, also used as preference keys
var busParams = [busCount]string{
	BusMaster: "GlobalMasterVolume",
	BusMusic:  "GlobalMusicVolume",
	BusSFX:    "GlobalSFXVolume",
}

// Buses lists every bus in declaration order
func Buses() []Bus {
	return []Bus{BusMaster, BusMusic, BusSFX}
}

// Valid reports whether b is a declared bus
func (b Bus) Valid() bool {
	return b >= 0 && b < busCount
}

func (b Bus) String() string {
	if !b.Valid() {
		return fmt.Sprintf("bus(%d)", int(b))
	}
	return busNames[b]
}

// Param returns the fixed parameter name for the bus volume
func (b Bus) Param() string {
	if !b.Valid() {
		return ""
	}
	return busParams[b]
}

// ParseBus accepts a bus name ("master", "music", "sfx") or its parameter name
func ParseBus(s string) (Bus, error) {
	for _, b := range Buses() {
		if strings.EqualFold(s, busNames[b]) || s == busParams[b] {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBus, s)
}

// BusForParam maps a parameter name back to its bus
func BusForParam(name string) (Bus, bool) {
	for _, b := range Buses() {
		if busParams[b] == name {
			return b, true
		}
	}
	return 0, false
}
