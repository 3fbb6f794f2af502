package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/corpusgest/internal/pipeline"
)

var (
	validateFlags  corpusFlags
	validateStrict bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Report chapter numbering gaps in a corpus without storing it",
	Long: `Build and index a corpus and print one line per chapter numbering
discontinuity. With --strict any warning makes the command fail.

Example:
  corpusgest validate al-kafi-v2.htm --scope corpus --strict`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := validateFlags.corpus(args[0])
		if err != nil {
			return err
		}
		res, err := pipeline.IndexFile(c, cfg, log)
		if err != nil {
			return err
		}
		for _, d := range res.Diagnostics {
			fmt.Println(d.String())
		}
		if len(res.Diagnostics) == 0 {
			fmt.Printf("%s: chapter numbering is continuous\n", c.MountPath)
			return nil
		}
		if validateStrict {
			return fmt.Errorf("%s: %d sequence warnings", c.MountPath, len(res.Diagnostics))
		}
		return nil
	},
}

func init() {
	validateFlags.register(validateCmd)
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "exit non-zero when any warning is found")
	rootCmd.AddCommand(validateCmd)
}
