package main

import (
	"fmt"
	"strconv"

	"github.com/pboyd/questlock"
	"github.com/spf13/cobra"
)

var (
	callbackFlag string
	atFlag       string
)

var dumpCmd = &cobra.Command{
	Use:   "dump [site...]",
	Short: "Print the generated trampolines",
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&callbackFlag, "callback", "0x0", "callback address to embed")
	dumpCmd.Flags().StringVar(&atFlag, "at", "0x0", "address to list the code at")
}

func runDump(cmd *cobra.Command, args []string) error {
	callback, err := strconv.ParseUint(callbackFlag, 0, 64)
	if err != nil {
		return fmt.Errorf("--callback: %w", err)
	}
	at, err := strconv.ParseUint(atFlag, 0, 64)
	if err != nil {
		return fmt.Errorf("--at: %w", err)
	}

	sites, err := selectSites(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range sites {
		listing, err := questlock.Disassemble(s.Trampoline.Generate(uintptr(callback)), uintptr(at))
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		fmt.Fprintf(out, "; %s trampoline, %v +%#x..+%#x\n%s\n", s.Name, s.ID, s.Start, s.End, listing)
	}
	return nil
}

func selectSites(names []string) ([]questlock.PatchSite, error) {
	if len(names) == 0 {
		return questlock.Sites, nil
	}

	var sites []questlock.PatchSite
	for _, name := range names {
		found := false
		for _, s := range questlock.Sites {
			if s.Name == name {
				sites = append(sites, s)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown site %q", name)
		}
	}
	return sites, nil
}
