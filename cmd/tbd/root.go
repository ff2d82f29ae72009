package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jlevy/tbd/internal/config"
	"github.com/jlevy/tbd/internal/gitx"
)

// rootDir is the on-disk directory name spec.md §6 calls `<tbd>`.
const rootDir = ".tbd"

var (
	rootCtx    context.Context
	rootCancel context.CancelFunc

	repoPathFlag string
	branchFlag   string
	remoteFlag   string
	jsonFlag     bool
	fixFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "tbd",
	Short: "tbd - git-native issue tracker sync engine",
	Long: `tbd keeps a git-native issue store in sync across clones: a dedicated
worktree on a sync branch, a dual permanent/short id scheme, and a
field-level three-way merge that never blocks on human conflict
resolution.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	defaults := config.Defaults()
	rootCmd.PersistentFlags().StringVar(&repoPathFlag, "repo", ".", "path to the repository root")
	rootCmd.PersistentFlags().StringVar(&branchFlag, "branch", defaults.SyncBranch, "sync branch name")
	rootCmd.PersistentFlags().StringVar(&remoteFlag, "remote", defaults.SyncRemote, "git remote name")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&fixFlag, "fix", false, "attempt auto-repair of unhealthy state")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(workspaceCmd)
}

// resolveTbdRoot finds the repository root from repoPathFlag and layers
// viper config from <repo>/.tbd/config.yml before returning the .tbd
// directory path, matching the teacher's flags-then-viper precedence in
// cmd/bd/main.go's PersistentPreRun.
func resolveTbdRoot(ctx context.Context) (string, *gitx.Client, error) {
	client := gitx.New(repoPathFlag)
	if !client.IsInRepo(ctx) {
		return "", nil, fmt.Errorf("%s is not inside a git repository", repoPathFlag)
	}
	repoRoot, err := client.GitRoot(ctx)
	if err != nil {
		return "", nil, err
	}
	mainClient := gitx.New(repoRoot)

	tbdRoot := repoRoot + string(os.PathSeparator) + rootDir
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(tbdRoot)
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetDefault("sync.branch", config.Defaults().SyncBranch)
	viper.SetDefault("sync.remote", config.Defaults().SyncRemote)
	_ = viper.ReadInConfig() // absent config.yml means running on defaults

	// Config-file values apply only where a flag was not given
	// explicitly: flag > config > default, the teacher's precedence.
	if !rootCmd.PersistentFlags().Changed("branch") {
		branchFlag = viper.GetString("sync.branch")
	}
	if !rootCmd.PersistentFlags().Changed("remote") {
		remoteFlag = viper.GetString("sync.remote")
	}

	return tbdRoot, mainClient, nil
}
