package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/prefs"
)

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Read and change the persisted bus volumes",
	Long: `Bus volumes are slider positions in [0,1]. The configured curve maps them
onto bus levels in decibels, which is what the preference store keeps.`,
}

var volumeGetCmd = &cobra.Command{
	Use:   "get [BUS...]",
	Short: "Show bus volumes (all buses when none is given)",
	RunE:  runVolumeGet,
}

var volumeSetCmd = &cobra.Command{
	Use:   "set BUS LEVEL",
	Short: "Set a bus volume to a slider position in [0,1]",
	Args:  cobra.ExactArgs(2),
	RunE:  runVolumeSet,
}

var historyLimit int

var volumeHistoryCmd = &cobra.Command{
	Use:   "history BUS",
	Short: "List past levels of a bus (sqlite store only)",
	Args:  cobra.ExactArgs(1),
	RunE:  runVolumeHistory,
}

func init() {
	volumeHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
	volumeCmd.AddCommand(volumeGetCmd, volumeSetCmd, volumeHistoryCmd)
	rootCmd.AddCommand(volumeCmd)
}

func runVolumeGet(cmd *cobra.Command, args []string) error {
	buses, err := parseBuses(args)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, b := range buses {
		if err := printVolume(cmd.OutOrStdout(), rt, b); err != nil {
			return err
		}
	}
	return nil
}

func runVolumeSet(cmd *cobra.Command, args []string) error {
	bus, err := audio.ParseBus(args[0])
	if err != nil {
		return err
	}
	control, err := strconv.ParseFloat(args[1], 64)
	if err != nil || control < 0 || control > 1 {
		return fmt.Errorf("level %q: want a number in [0,1]", args[1])
	}

	rt, err := newRuntime(cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.mgr.SetVolume(bus, control); err != nil {
		return err
	}
	return printVolume(cmd.OutOrStdout(), rt, bus)
}

func runVolumeHistory(cmd *cobra.Command, args []string) error {
	bus, err := audio.ParseBus(args[0])
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	db, ok := rt.store.(*prefs.SQLite)
	if !ok {
		return fmt.Errorf("history needs the sqlite preference backend, have %q", rt.cfg.Prefs.Backend)
	}
	changes, err := db.History(bus.Param(), historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, c := range changes {
		fmt.Fprintf(out, "%s  %7.2f dB\n", c.At.Format(time.DateTime), c.Value)
	}
	return nil
}

func printVolume(w io.Writer, rt *runtime, b audio.Bus) error {
	control, err := rt.mgr.GetVolume(b)
	if err != nil {
		return err
	}
	level, _ := rt.mixer.GetBusParameter(b.Param())
	_, err = fmt.Fprintf(w, "%-6s %.3f  %7.2f dB\n", b, control, level)
	return err
}

func parseBuses(args []string) ([]audio.Bus, error) {
	if len(args) == 0 {
		return audio.Buses(), nil
	}
	buses := make([]audio.Bus, 0, len(args))
	for _, a := range args {
		b, err := audio.ParseBus(a)
		if err != nil {
			return nil, err
		}
		buses = append(buses, b)
	}
	return buses, nil
}
