package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brk3/habitstreak/pkg/habit"
)

var importFile string

// readDates parses one YYYY-MM-DD per line. Blank lines and lines starting
// with # are skipped.
func readDates(r io.Reader) ([]habit.Date, error) {
	var out []habit.Date
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		d, err := habit.ParseDate(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, d)
	}
	return out, sc.Err()
}

func parseDates(args []string) ([]habit.Date, error) {
	out := make([]habit.Date, 0, len(args))
	for _, a := range args {
		d, err := habit.ParseDate(a)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

var importCmd = &cobra.Command{
	Use:   "import <habit> [date...]",
	Short: "Import past completion dates",
	Long: `The "import" command merges completion dates into a habit's history. Dates
come from the arguments or from --file (one YYYY-MM-DD per line, "-" for stdin).
Dates already recorded are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := parseDates(args[1:])
		if err != nil {
			return err
		}
		if importFile != "" {
			var r io.Reader = cmd.InOrStdin()
			if importFile != "-" {
				f, err := os.Open(importFile)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			fromFile, err := readDates(r)
			if err != nil {
				return fmt.Errorf("%s: %w", importFile, err)
			}
			days = append(days, fromFile...)
		}
		if len(days) == 0 {
			return errors.New("no dates given")
		}

		c := newClient()
		h, err := c.FindHabit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		n, err := c.BulkImport(cmd.Context(), h.ID, days)
		if err != nil {
			return err
		}
		cmd.Printf("Imported %d new completions into %s (%d skipped)\n", n, h.Name, len(days)-n)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "file with one date per line")
	rootCmd.AddCommand(importCmd)
}
