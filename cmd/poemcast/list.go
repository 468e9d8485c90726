package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently generated poems",
	Long:  `Displays the most recent poems from the history database, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of poems to show (0 = no limit)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := requireDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	poems, err := db.ListPoems(listLimit)
	if err != nil {
		return fmt.Errorf("listing poems: %w", err)
	}
	if len(poems) == 0 {
		fmt.Println("No poems found")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-5s  %-14s  %-10s  %s", "ID", "When", "Engine", "Poem")))
	for _, p := range poems {
		fmt.Printf("%-5d  %-14s  %-10s  %s\n",
			p.ID,
			humanize.Time(p.CreatedAt),
			p.Engine,
			firstLine(p.Text, 40),
		)
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d poem(s); use `poemcast show ID` for the full text", len(poems))))

	return nil
}
