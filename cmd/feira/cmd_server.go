package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/feirahub/feira/internal/cart"
	"github.com/feirahub/feira/internal/server"
	"github.com/feirahub/feira/pkg/workerpool"
	"github.com/feirahub/feira/pkg/ws"
)

// feira serve — start the HTTP and gRPC servers.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start()
	},
}

// feira route:list — print all registered named routes.
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := workerpool.New(1)
		defer pool.Shutdown()

		r, err := server.BuildRouter(ws.NewHub(), cart.NewStore(), pool)
		if err != nil {
			return err
		}

		table := r.Routes()
		if len(table) == 0 {
			fmt.Println("No named routes registered.")
			return nil
		}

		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool { return table[names[i]] < table[names[j]] })

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PATH\tNAME")
		fmt.Fprintln(w, "----\t----")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", table[name], name)
		}
		return w.Flush()
	},
}
