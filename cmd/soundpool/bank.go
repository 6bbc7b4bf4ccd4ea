package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/soundpool/log"
	"github.com/lixenwraith/soundpool/sound"
)

var bankSingle bool

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Create and inspect sound bank files",
}

var bankCreateCmd = &cobra.Command{
	Use:   "create CLIP...",
	Short: "Write sound banks for audio clips",
	Long: `Write a sound bank next to each clip, named SFX_<clip>.toml, with one
variant at volume 1 and pitch 1.

With --single, write one bank named after the first clip that holds every
clip as a variant.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBankCreate,
}

var bankShowCmd = &cobra.Command{
	Use:   "show BANK",
	Short: "Print a bank's variants",
	Args:  cobra.ExactArgs(1),
	RunE:  runBankShow,
}

func init() {
	bankCreateCmd.Flags().BoolVarP(&bankSingle, "single", "s", false, "collect all clips into one bank")
	bankCmd.AddCommand(bankCreateCmd, bankShowCmd)
	rootCmd.AddCommand(bankCmd)
}

func runBankCreate(cmd *cobra.Command, args []string) error {
	written, err := sound.CreateBanks(args, bankSingle)
	for _, p := range written {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	if err != nil {
		return err
	}
	log.Info(log.CatCLI, "Sound banks written", "count", len(written), "single", bankSingle)
	return nil
}

func runBankShow(cmd *cobra.Command, args []string) error {
	b, err := sound.LoadBank(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	bus := b.Bus
	if bus == "" {
		bus = "master"
	}
	fmt.Fprintf(out, "%s (bus %s, %d variants)\n", b.Name, bus, len(b.Variants))
	if b.PitchJitter != nil {
		fmt.Fprintf(out, "  pitch jitter  %.2f..%.2f\n", b.PitchJitter.Min, b.PitchJitter.Max)
	}
	if b.VolumeJitter != nil {
		fmt.Fprintf(out, "  volume jitter %.2f..%.2f\n", b.VolumeJitter.Min, b.VolumeJitter.Max)
	}
	for i, v := range b.Variants {
		fmt.Fprintf(out, "  %d  %-24s volume %.2f  pitch %.2f\n", i, b.Path(i), v.Volume, v.Pitch)
	}
	return nil
}
