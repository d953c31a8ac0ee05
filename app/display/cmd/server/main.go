package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/config"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/engine"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/logger"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/storage"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name string = "news_radar"
	// Version 是服务的版本号
	Version string = "dev"
	// flagconf 是配置文件的路径命令行参数
	flagconf string
	// flagLimit analyze 子命令每次标注的文章数
	flagLimit int

	id, _ = os.Hostname()
)

var rootCmd = &cobra.Command{
	Use:          "news_radar",
	Short:        "Spanish news aggregation backend",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the ingestion scheduler",
	RunE:  runServe,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one fetch, dedupe, persist and annotate cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, kl, err := setup()
		if err != nil {
			return err
		}
		eng, cleanup, err := initEngine(c, kl)
		if err != nil {
			return err
		}
		defer cleanup()

		rep, err := eng.Run(cmd.Context(), engine.TriggerCLI)
		if rep != nil {
			printJSON(rep)
		}
		return err
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Annotate articles that have no analysis yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, kl, err := setup()
		if err != nil {
			return err
		}
		eng, cleanup, err := initEngine(c, kl)
		if err != nil {
			return err
		}
		defer cleanup()

		rep, err := eng.AnalyzePending(cmd.Context(), flagLimit)
		if rep != nil {
			printJSON(rep)
		}
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := setup()
		if err != nil {
			return err
		}
		store, err := storage.Open(cmd.Context(), c.DB.Driver, c.DB.Source)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Log.Infof("数据库表结构已就绪 (%s)", c.DB.Driver)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", Name, Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: --conf config.yaml")
	analyzeCmd.Flags().IntVar(&flagLimit, "limit", 10, "max articles to annotate")

	rootCmd.AddCommand(serveCmd, fetchCmd, analyzeCmd, migrateCmd, versionCmd)
}

// setup 加载配置并初始化日志，返回 kratos 使用的日志适配器
func setup() (*config.Config, log.Logger, error) {
	c, err := config.LoadConfig(flagconf)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitLogger(c.Log.Level, c.Log.File); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	kl := log.With(logger.NewKratosLogger(logger.Log),
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	return c, kl, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	c, kl, err := setup()
	if err != nil {
		return err
	}
	app, cleanup, err := initApp(c, kl)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Log.Infof("启动新闻雷达服务 %s", Version)
	return app.Run()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
