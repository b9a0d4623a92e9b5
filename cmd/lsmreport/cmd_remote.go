package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wyfcoding/lsmpricing/internal/pricing/application"
	grpchandler "github.com/wyfcoding/lsmpricing/internal/pricing/interfaces/grpc"
	"github.com/wyfcoding/lsmpricing/pkg/grpcclient"
)

var (
	remoteTarget  string
	remoteTimeout int
	remoteCmd     application.PriceAmericanOptionCommand
)

var remotePriceCmd = &cobra.Command{
	Use:   "remote",
	Short: "Price one contract on a running pricing service",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := grpcclient.NewClient(grpcclient.ClientConfig{
			Target:         remoteTarget,
			RequestTimeout: remoteTimeout,
			MaxRetries:     2,
			RetryDelay:     200,
		})
		if err != nil {
			return err
		}
		defer conn.Close()

		result, err := grpchandler.NewClient(conn).PriceAmericanOption(cmd.Context(), remoteCmd)
		if err != nil {
			return fmt.Errorf("remote pricing: %w", err)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "request_id\t%s\n", result.RequestID)
		fmt.Fprintf(tw, "symbol\t%s\n", result.Spec.Symbol)
		fmt.Fprintf(tw, "spot\t%g\n", result.Spec.Spot)
		fmt.Fprintf(tw, "american\t%s\n", result.OptionPrice.StringFixed(4))
		fmt.Fprintf(tw, "european\t%s\n", result.EuropeanPrice.StringFixed(4))
		fmt.Fprintf(tw, "premium\t%s\n", result.EarlyExercisePremium.StringFixed(4))
		fmt.Fprintf(tw, "std_error\t%s\n", result.StandardError.StringFixed(4))
		if !result.AnalyticEuropean.IsZero() {
			fmt.Fprintf(tw, "black_scholes\t%s\n", result.AnalyticEuropean.StringFixed(4))
		}
		fmt.Fprintf(tw, "degenerate_dates\t%d\n", result.DegenerateDates)
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(remotePriceCmd)
	f := remotePriceCmd.Flags()
	f.StringVar(&remoteTarget, "target", "localhost:50051", "pricing service gRPC address")
	f.IntVar(&remoteTimeout, "timeout", 60, "request timeout in seconds")
	f.StringVar(&remoteCmd.Symbol, "symbol", "", "underlying symbol")
	f.StringVar(&remoteCmd.OptionType, "type", "PUT", "PUT or CALL")
	f.Float64Var(&remoteCmd.Spot, "spot", 0, "spot price, 0 uses the latest stored quote")
	f.Float64Var(&remoteCmd.Strike, "strike", 40, "strike price")
	f.Float64Var(&remoteCmd.Maturity, "maturity", 1, "maturity in years")
	f.Float64Var(&remoteCmd.RiskFreeRate, "rate", 0.06, "risk-free rate")
	f.Float64Var(&remoteCmd.Volatility, "vol", 0.20, "volatility")
	f.StringVar(&remoteCmd.Process, "process", "GBM", "GBM or JUMP_DIFFUSION")
	f.Float64Var(&remoteCmd.JumpIntensity, "lambda", 0, "jump intensity")
	f.IntVar(&remoteCmd.NumPaths, "paths", 0, "simulated paths, 0 uses the service default")
	f.BoolVar(&remoteCmd.SkipCache, "skip-cache", false, "bypass the result cache")
	_ = remotePriceCmd.MarkFlagRequired("symbol")
}
