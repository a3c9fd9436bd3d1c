package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devbush/voxcribe/internal/domain"
)

// NewLanguagesCmd creates the languages subcommand
func NewLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List language codes accepted by --language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, lang := range domain.Languages() {
				code := lang.Code
				if lang.IsAuto() {
					code = domain.AutoLanguage
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %-5s %s\n", code, lang.Name)
			}
			return nil
		},
	}
}
