package main

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/nonstationary/environment/box2d/walker"
	"github.com/samuelfneumann/nonstationary/environment/gridworld"
)

func newLayoutsCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "Print the built-in gridworld layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLayouts(cmd.OutOrStdout(), aurora.NewAurora(!plain))
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print without colours")
	return cmd
}

func printLayouts(w io.Writer, au aurora.Aurora) error {
	for _, name := range gridworld.LayoutNames() {
		l, err := gridworld.LookupLayout(name)
		if err != nil {
			return err
		}

		r, c := l.Dims()
		fmt.Fprintf(w, "%v (%d x %d)\n", au.Bold(name), r, c)
		for _, row := range l.Rows() {
			for _, cell := range []byte(row) {
				switch cell {
				case gridworld.Start:
					fmt.Fprint(w, au.Yellow(string(cell)))
				case gridworld.Hole:
					fmt.Fprint(w, au.Blue(string(cell)))
				case gridworld.Goal:
					fmt.Fprint(w, au.Green(string(cell)))
				default:
					fmt.Fprint(w, string(cell))
				}
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Print the built-in walker models",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range walker.Models() {
				m, err := walker.LoadModel(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v: gravity %v, torso "+
					"density %v\n", name, m.Gravity, m.Torso.Density)
			}
			return nil
		},
	}
}
