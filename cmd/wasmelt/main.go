// Command wasmelt transpiles a WebAssembly binary into Go source.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wasmelt/wasmelt"
)

func main() {
	if err := newRootCmd(afero.NewOsFs(), logrus.StandardLogger()).Execute(); err != nil {
		os.Exit(1)
	}
}

type compileFlags struct {
	output      string
	packageName string
	maxPages    uint32
	verbose     bool
}

func newRootCmd(fs afero.Fs, log *logrus.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "wasmelt",
		Short:         "Transpile WebAssembly modules to Go source",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newCompileCmd(fs, log))
	return root
}

func newCompileCmd(fs afero.Fs, log *logrus.Logger) *cobra.Command {
	flags := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "compile <input.wasm>",
		Short: "Compile a Wasm binary into a stand-alone Go source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(fs, log, flags, args[0])
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default: input with .go extension)")
	cmd.Flags().StringVar(&flags.packageName, "package", "wasmmodule", "package name of the generated file")
	cmd.Flags().Uint32Var(&flags.maxPages, "max-pages", wasmelt.DefaultMaxPages,
		"memory growth bound when the module declares no maximum")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func runCompile(fs afero.Fs, log *logrus.Logger, flags *compileFlags, input string) error {
	if flags.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	binary, err := afero.ReadFile(fs, input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	output := flags.output
	if output == "" {
		output = outputPath(input)
	}

	log.WithFields(logrus.Fields{"input": input, "output": output}).Info("compiling")

	source, err := wasmelt.Transpile(binary, wasmelt.Options{
		PackageName: flags.packageName,
		MaxPages:    flags.maxPages,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("compiling %s: %w", input, err)
	}

	if err := afero.WriteFile(fs, output, source, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	log.WithField("bytes", len(source)).Info("wrote generated source")
	return nil
}

// outputPath replaces a trailing .wasm with .go; any other input name gets
// .go appended.
func outputPath(input string) string {
	if strings.HasSuffix(input, ".wasm") {
		return strings.TrimSuffix(input, ".wasm") + ".go"
	}
	return input + ".go"
}
