// lsmreport 命令行工具
// 功能：本地生成 LSM 定价诊断报告，或调用远端定价服务完成一次定价
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
)

var (
	logLevel string
	rootCmd  = &cobra.Command{
		Use:   "lsmreport",
		Short: "Longstaff-Schwartz American option diagnostics",
		Long: `Regenerate the LSM diagnostic report locally, or price a contract
against a running pricing service.

Examples:
  lsmreport run --section put,benchmark --parallelism 8
  lsmreport run --paths 5000 --seed 7
  lsmreport remote --target localhost:50051 --symbol XYZ --spot 36 --strike 40`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetDefault(logger.New(os.Stderr, logger.Config{Level: logLevel, Format: "text"}))
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
