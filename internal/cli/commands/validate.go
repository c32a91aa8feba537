package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/weftwork/weft/internal/cli/config"
	"github.com/weftwork/weft/internal/cli/ui"
	"github.com/weftwork/weft/loader"
	"github.com/weftwork/weft/meta"
)

type validateOptions struct {
	lenient    bool
	inferTypes bool
	jsonOut    bool
	pkg        string
}

// validateReport is the --json shape. Error carries the structured
// load failure when the loader produced one; Message covers the rest.
type validateReport struct {
	OK      bool              `json:"ok"`
	Files   []string          `json:"files,omitempty"`
	Objects int               `json:"objects,omitempty"`
	Nodes   int               `json:"nodes,omitempty"`
	Error   *meta.ConfigError `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
}

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Load metadata documents and report problems",
		Long: color.CyanString(`Load metadata documents into a typed tree and check every node
against the type catalog and its constraints.

With no arguments the sources listed in weft.yaml are loaded. The
command exits non-zero on the first structural error or constraint
violation and prints where it happened.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.lenient, "lenient", false,
		"skip records of unknown type instead of failing")
	cmd.Flags().BoolVar(&opts.inferTypes, "infer-types", false,
		"type attribute values from their literals")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false,
		"print a machine-readable report")
	cmd.Flags().StringVar(&opts.pkg, "package", "",
		"qualify unqualified root records with this package")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *validateOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	files := args
	if len(files) == 0 {
		files, err = projectSources(cfg)
		if err != nil {
			return err
		}
	}

	ld, err := buildLoader(cfg, opts)
	if err != nil {
		return err
	}
	defer ld.Destroy()

	sources := make([]loader.Source, 0, len(files))
	for _, f := range files {
		sources = append(sources, loader.FileSource(f))
	}

	if err := ld.Init(sources...); err != nil {
		return reportFailure(cmd, opts, files, err)
	}

	objects, err := ld.Objects()
	if err != nil {
		return err
	}
	nodes, err := ld.Filter(func(meta.Node) bool { return true })
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return writeReport(cmd, validateReport{
			OK:      true,
			Files:   files,
			Objects: len(objects),
			Nodes:   len(nodes),
		})
	}
	ui.WriteSuccess(cmd.OutOrStdout(),
		fmt.Sprintf("%d document(s) loaded: %d objects, %d nodes",
			len(files), len(objects), len(nodes)),
		color.NoColor)
	return nil
}

func buildLoader(cfg *config.Config, opts *validateOptions) (*loader.Loader, error) {
	reg, err := newCatalog()
	if err != nil {
		return nil, err
	}
	lopts := loaderOptions(cfg, "validate")
	lopts.Lenient = opts.lenient || !cfg.Strict
	lopts.InferAttrTypes = opts.inferTypes || cfg.InferTypes
	if opts.pkg != "" {
		lopts.DefaultPackage = opts.pkg
	}
	return loader.New(reg, lopts)
}

func reportFailure(cmd *cobra.Command, opts *validateOptions, files []string, err error) error {
	if opts.jsonOut {
		report := validateReport{OK: false, Files: files}
		var cfgErr *meta.ConfigError
		if errors.As(err, &cfgErr) {
			report.Error = cfgErr
		} else {
			report.Message = err.Error()
		}
		if werr := writeReport(cmd, report); werr != nil {
			return werr
		}
		return fmt.Errorf("validation failed")
	}
	ui.WriteLoadError(cmd.ErrOrStderr(), err, color.NoColor)
	return fmt.Errorf("validation failed")
}

func writeReport(cmd *cobra.Command, report validateReport) error {
	body, err := gojson.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}
