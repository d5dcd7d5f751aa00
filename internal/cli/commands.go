package cli

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newValuesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "values",
		Short: "List the establishments in the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			values, err := a.Service.Values(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range values {
				fmt.Fprintln(out, v)
			}
			return nil
		},
	}
}

func newPreviewCmd(o *options) *cobra.Command {
	var maxRows int

	cmd := &cobra.Command{
		Use:   "preview <establecimiento>",
		Short: "Print the rows of one establishment as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-rows") {
				o.cfg.Filter.PreviewMaxRows = maxRows
			}

			a, err := o.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			preview, err := a.Service.Preview(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			table := tablewriter.NewWriter(out)
			table.SetHeader(preview.Table.Columns())
			table.SetAutoFormatHeaders(false)
			table.SetColWidth(24)
			table.SetRowLine(false)
			table.AppendBulk(preview.Table.Strings())
			table.Render()

			if preview.Truncated() {
				fmt.Fprintf(out, "%d of %d rows\n", preview.Table.Len(), preview.Total)
			} else {
				fmt.Fprintf(out, "%d rows\n", preview.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "Rows to print; 0 prints all (default PREVIEW_MAX_ROWS).")
	return cmd
}

func newExportCmd(o *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <establecimiento>",
		Short: "Write the rows of one establishment to a new workbook",
		Long: `export writes the matching rows, header included, to a single-sheet
workbook. Without -o the file is named after the establishment in the
current directory; -o - writes the workbook to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			exp, err := a.Service.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(exp.Data)
				return err
			}

			path := output
			if path == "" {
				path = exp.Filename
			}
			if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", exp.Rows, filepath.Clean(path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or - for stdout.")
	return cmd
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Load the spreadsheet and describe it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			values, err := a.Service.Values(cmd.Context())
			if err != nil {
				return err
			}
			st := a.Service.Status()

			fetched := "-"
			if st.FetchedAt != nil {
				fetched = st.FetchedAt.Format(time.RFC3339)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Field", "Value"})
			table.SetAutoFormatHeaders(false)
			table.AppendBulk([][]string{
				{"source", st.Source},
				{"cache_ttl", st.CacheTTL},
				{"fetched_at", fetched},
				{"rows", strconv.Itoa(st.Rows)},
				{"columns", strconv.Itoa(len(st.Columns))},
				{"establishments", strconv.Itoa(len(values))},
			})
			table.Render()
			return nil
		},
	}
}

func newServeCmd(o *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				host, port, err := splitAddr(addr)
				if err != nil {
					return err
				}
				o.cfg.Server.Host, o.cfg.Server.Port = host, port
			}

			a, err := o.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address host:port (overrides SERVER_HOST and SERVER_PORT).")
	return cmd
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid --addr %q: port must be 1-65535", addr)
	}
	return host, port, nil
}
