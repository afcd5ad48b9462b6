package main

import (
	"fmt"
	"strconv"

	"github.com/pboyd/questlock"
	"github.com/spf13/cobra"
)

var (
	formIDFlag   string
	nameFlag     string
	editorIDFlag string
	settingsFlag string
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Render the HUD message for a quest, or the fallback without one",
	Args:  cobra.NoArgs,
	RunE:  runMessage,
}

func init() {
	messageCmd.Flags().StringVar(&formIDFlag, "form-id", "", "owning quest's form id")
	messageCmd.Flags().StringVar(&nameFlag, "name", "", "owning quest's name")
	messageCmd.Flags().StringVar(&editorIDFlag, "editor-id", "", "owning quest's editor id")
	messageCmd.Flags().StringVar(&settingsFlag, "settings", "", "YAML file of game settings for the fallback")
}

func runMessage(cmd *cobra.Command, args []string) error {
	var settings questlock.Settings
	if settingsFlag != "" {
		m, err := questlock.LoadSettings(settingsFlag)
		if err != nil {
			return err
		}
		settings = m
	}

	var quest *questlock.Quest
	if formIDFlag != "" {
		id, err := strconv.ParseUint(formIDFlag, 0, 32)
		if err != nil {
			return fmt.Errorf("--form-id: %w", err)
		}
		quest = &questlock.Quest{
			FormID:   uint32(id),
			FullName: nameFlag,
			EditorID: editorIDFlag,
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), questlock.LockMessage(quest, settings))
	return nil
}
