package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sleepywoodpecker/freq-monitor/internal/dataset"
	rserial "sleepywoodpecker/freq-monitor/internal/rSerial"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports the instrument could be connected to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := rserial.ListPorts()
			if err != nil {
				return err
			}
			return writePorts(cmd.OutOrStdout(), ports)
		},
	}
}

func writePorts(w io.Writer, ports []string) error {
	if len(ports) == 0 {
		_, err := fmt.Fprintln(w, "No serial ports found.")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Port"})
	var data [][]string
	for _, p := range ports {
		data = append(data, []string{p})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func newRecordingsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "recordings",
		Short: "List recordings in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := v.GetString("data-dir")
			return writeRecordings(cmd.OutOrStdout(), dataset.DirCatalog{Dir: dir}, dir)
		},
	}
}

func writeRecordings(w io.Writer, catalog dataset.Catalog, dir string) error {
	ids, err := catalog.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		_, err := fmt.Fprintf(w, "No recordings in %s.\n", dir)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Recording", "Size"})
	var data [][]string
	for _, id := range ids {
		size := "-"
		if info, err := os.Stat(filepath.Join(dir, id)); err == nil {
			size = strconv.FormatInt(info.Size(), 10)
		}
		data = append(data, []string{id, size})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
