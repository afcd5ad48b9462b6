package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/apex/log"
	"github.com/pboyd/questlock"
	"github.com/spf13/cobra"
)

var (
	libraryFlag string
	exeFlag     string
	baseFlag    uint64
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List patch sites and where they resolve",
	Args:  cobra.NoArgs,
	RunE:  runSites,
}

func init() {
	sitesCmd.Flags().StringVarP(&libraryFlag, "library", "l", "", "address library file or directory")
	sitesCmd.Flags().StringVar(&exeFlag, "exe", "", "game executable, for text segment bounds")
	sitesCmd.Flags().Uint64Var(&baseFlag, "base", 0, "module base address (default: the image's preferred base)")
}

func runSites(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	if libraryFlag == "" {
		fmt.Fprintln(w, "NAME\tID\tRANGE\tSIZE")
		for _, s := range questlock.Sites {
			fmt.Fprintf(w, "%s\t%d\t+%#x..+%#x\t%d\n", s.Name, uint64(s.ID), s.Start, s.End, s.Size())
		}
		return nil
	}

	lib, err := questlock.LoadAddressLibrary(libraryFlag)
	if err != nil {
		return err
	}
	log.WithField("entries", lib.Len()).Debug("loaded address library")

	module, err := loadModule()
	if err != nil {
		return err
	}
	resolver := questlock.NewResolver(module, lib)

	fmt.Fprintln(w, "NAME\tID\tFUNCTION\tPATCH\tSIZE")
	for _, s := range questlock.Sites {
		addr, err := resolver.Resolve(s.ID)
		if err != nil {
			fmt.Fprintf(w, "%s\t%d\t%v\t\t\n", s.Name, uint64(s.ID), err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%#x\t%#x..%#x\t%d\n", s.Name, uint64(s.ID), addr, addr+s.Start, addr+s.End, s.Size())
	}
	return nil
}

// loadModule returns the module described by the flags. Without an
// executable, the whole address space above the base is treated as text.
func loadModule() (questlock.Module, error) {
	if exeFlag == "" {
		base := uintptr(baseFlag)
		if base == 0 {
			base = 0x140000000
		}
		return questlock.Module{Base: base, TextStart: base, TextEnd: ^uintptr(0)}, nil
	}

	f, err := os.Open(exeFlag)
	if err != nil {
		return questlock.Module{}, err
	}
	defer f.Close()

	module, err := questlock.ModuleFromPE(f, uintptr(baseFlag))
	if err != nil {
		return questlock.Module{}, fmt.Errorf("%s: %w", exeFlag, err)
	}
	log.WithFields(log.Fields{
		"base": fmt.Sprintf("%#x", module.Base),
		"text": fmt.Sprintf("%#x..%#x", module.TextStart, module.TextEnd),
	}).Debug("read executable")
	return module, nil
}
