// Command permaudit lists controller methods that neither call a permission
// check nor appear on the whitelist. It exits with status 1 when any are
// found, so it can gate CI.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/caimari/musedock-sub009/internal/guard"
)

// errUnprotected signals a successful scan that found open methods.
var errUnprotected = errors.New("unprotected controller methods found")

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if errors.Is(err, errUnprotected) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "permaudit: %v\n", err)
		os.Exit(2)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		dir    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "permaudit",
		Short: "Report controller methods without a permission check",
		Long: `Scan *_controller.go sources and list every exported controller method
that is not whitelisted and never calls CheckPermission, CheckAnyPermission,
CheckAllPermissions or RequireSuperAdmin.

Examples:
  # Audit the admin controllers
  permaudit --dir internal/api/admin

  # Machine readable output
  permaudit --json
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(dir, asJSON, stdout)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "internal/api/admin", "directory holding *_controller.go files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

type report struct {
	Count   int           `json:"count"`
	Methods []reportEntry `json:"methods"`
}

type reportEntry struct {
	ID       string `json:"id"`
	Position string `json:"position"`
}

func run(dir string, asJSON bool, stdout io.Writer) error {
	manifest, err := guard.ScanDir(dir)
	if err != nil {
		return err
	}

	open := guard.Audit(manifest, guard.DefaultWhitelist())
	r := report{Count: len(open), Methods: make([]reportEntry, 0, len(open))}
	for _, m := range open {
		r.Methods = append(r.Methods, reportEntry{ID: m.ID(), Position: m.Position})
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return err
		}
	} else {
		for _, m := range r.Methods {
			fmt.Fprintf(stdout, "%s\t%s\n", m.ID, m.Position)
		}
		fmt.Fprintf(stdout, "%d unprotected method(s)\n", r.Count)
	}

	if r.Count > 0 {
		return errUnprotected
	}
	return nil
}
