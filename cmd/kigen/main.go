package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/gubarz/kigen/internal/config"
	"github.com/gubarz/kigen/internal/provider"
	"github.com/gubarz/kigen/internal/registry"
	"github.com/gubarz/kigen/internal/render"
	"github.com/gubarz/kigen/internal/template"
	"github.com/gubarz/kigen/internal/watch"
	"github.com/gubarz/kigen/internal/writer"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.1.0"

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "kigen"})

var rootCmd = &cobra.Command{
	Use:   "kigen [files...]",
	Short: "Regenerate marked blocks in text files",
	Long: `Code generator that rewrites marked regions of text files.

Blocks delimited by KIGEN_start and KIGEN_end lines are regenerated
through expansion modules and spliced back in place. Everything outside
the markers is left untouched.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRender,
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List available expansion modules",
	Args:  cobra.NoArgs,
	RunE:  runModules,
}

var watchCmd = &cobra.Command{
	Use:   "watch [files...]",
	Short: "Re-render input files when they or the modules change",
	Args:  cobra.ArbitraryArgs,
	RunE:  runWatch,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(watchCmd)

	rootCmd.PersistentFlags().StringSliceP("input-files", "i", nil, "Input files to render")
	rootCmd.PersistentFlags().StringSliceP("module-path", "m", nil, "Directories searched for expansion modules")
	rootCmd.PersistentFlags().StringP("output-dir", "o", "", "Write rendered files here instead of in place")
	rootCmd.PersistentFlags().Int("jobs", 1, "Number of files rendered concurrently")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().Bool("check", false, "Report stale files without writing anything")

	viper.BindPFlag("module_path", rootCmd.PersistentFlags().Lookup("module-path"))
	viper.BindPFlag("output_dir", rootCmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("jobs", rootCmd.PersistentFlags().Lookup("jobs"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
	}

	lvl, err := log.ParseLevel(config.GetLogLevel())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q, using info\n", config.GetLogLevel())
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
}

// gatherInputs merges the --input-files flag with positional arguments.
func gatherInputs(cmd *cobra.Command, args []string) ([]string, error) {
	files, _ := cmd.Flags().GetStringSlice("input-files")
	files = append(files, args...)
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files given (use --input-files or positional arguments)")
	}
	return files, nil
}

func moduleDirs() ([]string, error) {
	dirs := config.GetModulePath()
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no module directories given (use --module-path or a config file)")
	}
	return dirs, nil
}

func loadRegistry(fsys afero.Fs, dirs []string) (*registry.Registry, error) {
	providers := provider.Builtins(provider.Options{Shell: config.GetShell(), Fs: fsys})
	reg, err := registry.Load(fsys, dirs, providers)
	if err != nil {
		return nil, err
	}
	for _, m := range reg.Modules() {
		logger.Debug("loaded module", "name", m.Name, "provider", m.ProviderName, "dir", m.Dir)
	}
	return reg, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	files, err := gatherInputs(cmd, args)
	if err != nil {
		return err
	}
	dirs, err := moduleDirs()
	if err != nil {
		return err
	}

	fsys := afero.NewOsFs()
	reg, err := loadRegistry(fsys, dirs)
	if err != nil {
		return err
	}

	pipe := render.New(fsys, reg, template.New(), logger)
	results, err := pipe.RenderAll(cmd.Context(), files, config.GetJobs())
	if err != nil {
		return err
	}

	if check, _ := cmd.Flags().GetBool("check"); check {
		stale := 0
		for _, res := range results {
			if res.Changed {
				stale++
				fmt.Println(staleStyle.Render("stale"), res.Path)
			}
		}
		if stale > 0 {
			return fmt.Errorf("%d file(s) out of date", stale)
		}
		fmt.Println(okStyle.Render("all files up to date"))
		return nil
	}

	out := writer.New(fsys, config.GetOutputDir())
	for _, res := range results {
		dest, err := out.Write(res.Path, res.Output)
		if err != nil {
			return err
		}
		if out.InPlace() {
			logger.Info("rendered", "file", res.Path)
		} else {
			logger.Info("rendered", "file", res.Path, "to", dest)
		}
	}
	return nil
}

func runModules(cmd *cobra.Command, args []string) error {
	dirs, err := moduleDirs()
	if err != nil {
		return err
	}

	reg, err := loadRegistry(afero.NewOsFs(), dirs)
	if err != nil {
		return err
	}

	if reg.Len() == 0 {
		fmt.Println(dimStyle.Render("no modules found"))
		return nil
	}
	for _, m := range reg.Modules() {
		fmt.Printf("%s  %s  %s\n",
			moduleNameStyle.Render(m.Name),
			providerStyle.Render(m.ProviderName),
			dimStyle.Render(m.Dir))
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	files, err := gatherInputs(cmd, args)
	if err != nil {
		return err
	}
	dirs, err := moduleDirs()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fsys := afero.NewOsFs()

	// Modules are reloaded on every pass so template and descriptor
	// edits take effect without a restart.
	renderAll := func() error {
		reg, err := loadRegistry(fsys, dirs)
		if err != nil {
			return err
		}
		pipe := render.New(fsys, reg, template.New(), logger)
		results, err := pipe.RenderAll(ctx, files, config.GetJobs())
		if err != nil {
			return err
		}
		out := writer.New(fsys, config.GetOutputDir())
		for _, res := range results {
			// An in-place write of identical content would only feed
			// the watcher its own event.
			if !res.Changed && out.InPlace() {
				continue
			}
			dest, err := out.Write(res.Path, res.Output)
			if err != nil {
				return err
			}
			if out.InPlace() {
				logger.Info("rendered", "file", res.Path)
			} else {
				logger.Info("rendered", "file", res.Path, "to", dest)
			}
		}
		return nil
	}

	if err := renderAll(); err != nil {
		logger.Error("initial render failed", "err", err)
	}

	w, err := watch.New(watch.Config{
		Files:    files,
		Dirs:     dirs,
		Debounce: config.GetWatchDebounce(),
		Logger:   logger,
		OnChange: func(changed []string) error {
			logger.Info("change detected", "files", len(changed))
			return renderAll()
		},
	})
	if err != nil {
		return err
	}

	logger.Info("watching for changes", "files", len(files), "dirs", len(dirs))
	return w.Run(ctx)
}

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
