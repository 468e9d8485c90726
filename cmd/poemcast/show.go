package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a poem and its deliveries",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid poem id: %s", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := requireDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	poem, err := db.GetPoem(id)
	if err != nil {
		return err
	}
	if poem == nil {
		return fmt.Errorf("poem %d not found", id)
	}

	theme := poem.Theme
	if theme == "" {
		theme = "(model's choice)"
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("Poem #%d", poem.ID)))
	fmt.Printf("Theme:   %s\n", theme)
	fmt.Printf("Engine:  %s (%s)\n", poem.Engine, poem.Model)
	fmt.Printf("Created: %s (%s)\n", poem.CreatedAt.Format("2006-01-02 15:04 MST"), humanize.Time(poem.CreatedAt))
	fmt.Println(dimStyle.Render("Run:     " + poem.RunID))
	fmt.Println(poemStyle.Render(poem.Text))

	deliveries, err := db.ListDeliveries(poem.ID)
	if err != nil {
		return err
	}
	if len(deliveries) == 0 {
		fmt.Println("No deliveries recorded")
		return nil
	}
	for _, d := range deliveries {
		line := fmt.Sprintf("  %-9s %s", d.Destination, statusText(d.Status))
		switch {
		case d.Error != "":
			line += "  " + d.Error
		case d.RemoteID != "":
			line += "  " + d.RemoteID
		}
		fmt.Println(line)
	}
	return nil
}
