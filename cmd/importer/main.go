// Command importer runs content imports from the command line.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ContentImport/internal/app"
	"github.com/JonMunkholm/ContentImport/internal/config"
	"github.com/JonMunkholm/ContentImport/internal/core"
	"github.com/JonMunkholm/ContentImport/internal/logging"
	"github.com/JonMunkholm/ContentImport/internal/store/postgres"
)

// errImportFailed makes the process exit non-zero after a printed outcome.
var errImportFailed = errors.New("import did not complete successfully")

var (
	imageTypes []string
	inputDir   string
	jsonOutput bool
	printOnly  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ue *core.UserError
		switch {
		case errors.Is(err, errImportFailed):
		case errors.As(err, &ue):
			fmt.Fprintln(os.Stderr, core.FormatUserError(ue.Technical))
			fmt.Fprintln(os.Stderr, ue.Technical)
		default:
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "importer",
	Short:         "Import content items from CSV and Excel files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Import one batch of files",
	Long: `Import the given files as one batch. Each file needs the columns
name, title, description and image path, with a header in the first row.

Examples:
  importer run --image-type .jpg --image-type .png articles.csv more.xlsx
  importer run --dir ./uploads --json`,
	RunE: runImport,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the content and media tables",
	RunE:  runSchema,
}

func init() {
	runCmd.Flags().StringSliceVar(&imageTypes, "image-type", nil, "allowed image extension, repeatable (default from IMPORT_ALLOWED_IMAGE_TYPES)")
	runCmd.Flags().StringVar(&inputDir, "dir", "", "import every supported file in this directory")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the outcome as JSON")
	schemaCmd.Flags().BoolVar(&printOnly, "print", false, "print the DDL instead of applying it")

	rootCmd.AddCommand(runCmd, schemaCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	paths, err := resolvePaths(args, inputDir, core.DefaultParsers().Extensions())
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	types := imageTypes
	if len(types) == 0 {
		types = cfg.Import.AllowedImageTypes
	}

	outcome, err := a.Importer.ImportBatch(ctx, paths, normalize(types))
	if err != nil {
		return core.NewUserError(err)
	}

	if err := printOutcome(cmd.OutOrStdout(), outcome, jsonOutput); err != nil {
		return err
	}
	if !outcome.Success() {
		return errImportFailed
	}
	return nil
}

func runSchema(cmd *cobra.Command, _ []string) error {
	if printOnly {
		_, err := io.WriteString(cmd.OutOrStdout(), postgres.Schema())
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.New(pool).EnsureSchema(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return nil
}

// resolvePaths combines explicit files with the supported files found
// directly inside dir, sorted by name.
func resolvePaths(args []string, dir string, exts []string) ([]string, error) {
	paths := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, err
		}
		paths = append(paths, abs)
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		supported := make(map[string]bool, len(exts))
		for _, e := range exts {
			supported[e] = true
		}

		var found []string
		for _, e := range entries {
			if e.IsDir() || !supported[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			abs, err := filepath.Abs(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			found = append(found, abs)
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}

	if len(paths) == 0 {
		return nil, errors.New("no input files: pass file paths or --dir")
	}
	return paths, nil
}

func normalize(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, ".") {
			t = "." + t
		}
		out = append(out, t)
	}
	return out
}

func printOutcome(w io.Writer, o *core.ImportOutcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	}

	fmt.Fprintf(w, "batch %s: %s, %d created in %s\n", o.BatchID, o.Status, o.Created(), o.Duration.Round(1e6))
	for _, f := range o.Files {
		fmt.Fprintf(w, "  %s: %d created, %d skipped: %s\n", filepath.Base(f.Path), f.Created, f.Skipped, f.Message())
	}
	_, err := fmt.Fprintln(w, o.Message())
	return err
}
