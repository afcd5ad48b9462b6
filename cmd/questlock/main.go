// questlock inspects the patch table without touching a running game.
//
//	questlock sites --library version-1-10-163-0.bin --exe Fallout4.exe
//	questlock dump --callback 0x7ff612345670
//	questlock message --form-id 0x2a3b4 --name "Unlikely Valentine"
package main

import (
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:           "questlock",
	Short:         "Inspect the quest item lock patches",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(sitesCmd, dumpCmd, messageCmd)
}

func main() {
	log.SetHandler(cli.New(os.Stderr))

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("failed")
		os.Exit(1)
	}
}
