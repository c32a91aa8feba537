package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weftwork/weft/meta"
)

const configTemplate = `# Weft project configuration.
package: {{.Package}}
sources:
  - metadata
strict: {{.Strict}}
infer_types: false

serve:
  host: 127.0.0.1
  port: 4400

watch:
  patterns: ["*.json", "*.xml", "*.yaml", "*.yml"]
  ignored: []
`

// The samples carry no package key so the config file's package
// qualifies their root objects.
const sampleJSON = `{
  "metadata": {
    "children": [
      {"object": {
        "name": "User",
        "subType": "pojo",
        "@dbTable": "users",
        "children": [
          {"field": {"name": "id", "subType": "long"}},
          {"field": {"name": "email", "subType": "string", "@required": true, "@maxLength": 255}},
          {"identity": {"name": "pk", "subType": "primary", "@fields": ["id"], "@generation": "increment"}}
        ]
      }}
    ]
  }
}
`

const sampleYAML = `metadata:
  children:
    - object:
        name: User
        subType: pojo
        "@dbTable": users
        children:
          - field: {name: id, subType: long}
          - field: {name: email, subType: string, "@required": true, "@maxLength": 255}
          - identity: {name: pk, subType: primary, "@fields": [id], "@generation": increment}
`

const sampleXML = `<metadata>
  <object name="User" subType="pojo" dbTable="users">
    <field name="id" subType="long"/>
    <field name="email" subType="string" required="true" maxLength="255"/>
    <identity name="pk" subType="primary" fields="id" generation="increment"/>
  </object>
</metadata>
`

var sampleByFormat = map[string]string{
	"json": sampleJSON,
	"yaml": sampleYAML,
	"xml":  sampleXML,
}

type initOptions struct {
	yes    bool
	format string
	pkg    string
}

type initAnswers struct {
	Name    string
	Package string
	Format  string
	Strict  bool
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a new weft project",
		Long: color.CyanString(`Create a weft.yaml and a sample metadata document.

With no directory argument the current directory is initialized. The
command prompts for the project name, root package, document format,
and strict mode; --yes accepts the defaults without prompting.`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "accept defaults without prompting")
	cmd.Flags().StringVar(&opts.format, "format", "", "sample document format (json, yaml, xml)")
	cmd.Flags().StringVar(&opts.pkg, "package", "", "root package for the project")

	return cmd
}

func runInit(cmd *cobra.Command, args []string, opts *initOptions) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}

	if _, err := os.Stat(filepath.Join(target, "weft.yaml")); err == nil {
		return fmt.Errorf("%s already holds a weft.yaml", target)
	}
	if _, err := os.Stat(filepath.Join(target, "weft.yml")); err == nil {
		return fmt.Errorf("%s already holds a weft.yml", target)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	answers := initAnswers{
		Name:    filepath.Base(abs),
		Package: opts.pkg,
		Format:  opts.format,
		Strict:  true,
	}
	if answers.Package == "" {
		answers.Package = packageFromName(answers.Name)
	}
	if answers.Format == "" {
		answers.Format = "json"
	}
	if _, ok := sampleByFormat[answers.Format]; !ok {
		return fmt.Errorf("unknown format %q (expected json, yaml, or xml)", answers.Format)
	}

	if !opts.yes {
		if err := askProjectDetails(&answers, opts); err != nil {
			return err
		}
	}
	if !meta.ValidName(answers.Package) {
		return fmt.Errorf("package %q is not a valid package name", answers.Package)
	}

	infoColor := color.New(color.FgCyan)
	successColor := color.New(color.FgGreen, color.Bold)
	promptColor := color.New(color.FgYellow)

	infoColor.Fprintf(cmd.OutOrStdout(), "Creating project: %s\n\n", answers.Name)

	if err := os.MkdirAll(filepath.Join(target, "metadata"), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Join(target, "metadata"), err)
	}

	cfgPath := filepath.Join(target, "weft.yaml")
	if err := writeConfig(cfgPath, answers); err != nil {
		return err
	}
	infoColor.Fprintln(cmd.OutOrStdout(), "  ✓ Created weft.yaml")

	ext := answers.Format
	if ext == "yaml" {
		ext = "yml"
	}
	samplePath := filepath.Join(target, "metadata", "model."+ext)
	if err := os.WriteFile(samplePath, []byte(sampleByFormat[answers.Format]), 0644); err != nil {
		return fmt.Errorf("create %s: %w", samplePath, err)
	}
	infoColor.Fprintf(cmd.OutOrStdout(), "  ✓ Created metadata/model.%s\n", ext)

	fmt.Fprintln(cmd.OutOrStdout())
	successColor.Fprintf(cmd.OutOrStdout(), "✓ Initialized project: %s\n\n", answers.Name)
	promptColor.Fprintln(cmd.OutOrStdout(), "Get started:")
	if target != "." {
		fmt.Fprintf(cmd.OutOrStdout(), "  cd %s\n", target)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "  weft validate")
	fmt.Fprintln(cmd.OutOrStdout(), "  weft serve")
	fmt.Fprintln(cmd.OutOrStdout())

	return nil
}

func askProjectDetails(answers *initAnswers, opts *initOptions) error {
	if err := survey.AskOne(&survey.Input{
		Message: "Project name:",
		Default: answers.Name,
	}, &answers.Name, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	if opts.pkg == "" {
		answers.Package = packageFromName(answers.Name)
		if err := survey.AskOne(&survey.Input{
			Message: "Root package:",
			Default: answers.Package,
			Help:    ":: separates nested packages, e.g. acme::model",
		}, &answers.Package, survey.WithValidator(validPackage)); err != nil {
			return err
		}
	}

	if opts.format == "" {
		if err := survey.AskOne(&survey.Select{
			Message: "Document format:",
			Options: []string{"json", "yaml", "xml"},
			Default: "json",
		}, &answers.Format); err != nil {
			return err
		}
	}

	return survey.AskOne(&survey.Confirm{
		Message: "Strict mode (fail on unknown record types)?",
		Default: true,
	}, &answers.Strict)
}

func validPackage(val any) error {
	s, ok := val.(string)
	if !ok || !meta.ValidName(s) {
		return fmt.Errorf("package names are :: separated identifiers, e.g. acme::model")
	}
	return nil
}

// packageFromName derives a legal package segment from a directory or
// project name.
func packageFromName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	pkg := strings.Trim(b.String(), "_")
	if !meta.ValidName(pkg) {
		return "app"
	}
	return pkg
}

func writeConfig(path string, answers initAnswers) error {
	tmpl, err := template.New("weft.yaml").Parse(configTemplate)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := tmpl.Execute(f, answers); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
