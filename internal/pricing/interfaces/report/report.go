// Package report 生成 LSM 定价诊断报告的文本表格
package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
	"golang.org/x/sync/errgroup"
)

// Section 报告章节
type Section string

const (
	SectionPut       Section = "put"
	SectionCall      Section = "call"
	SectionJump      Section = "jump"
	SectionBasis     Section = "basis"
	SectionPaths     Section = "paths"
	SectionOOS       Section = "oos"
	SectionBenchmark Section = "benchmark"
)

// AllSections 按输出顺序排列
var AllSections = []Section{SectionPut, SectionCall, SectionJump, SectionBasis, SectionPaths, SectionOOS, SectionBenchmark}

const (
	strike       = 40.0
	riskFreeRate = 0.06
	datesPerYear = 50
)

// Options 报告参数
type Options struct {
	Paths          int
	BenchmarkPaths int
	OOSPaths       int
	Trials         int
	Seed           int64
	Parallelism    int
	PathCounts     []int
	Sections       []Section
}

// DefaultOptions 与经典报告一致的参数
func DefaultOptions() Options {
	return Options{
		Paths:          10000,
		BenchmarkPaths: 20000,
		OOSPaths:       5000,
		Trials:         5,
		Seed:           42,
		Parallelism:    4,
		PathCounts:     []int{500, 1000, 2000, 5000, 10000, 20000},
		Sections:       AllSections,
	}
}

// ParseSections 解析逗号分隔的章节名，"all" 或空串表示全部
func ParseSections(s string) ([]Section, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return AllSections, nil
	}
	var out []Section
	for _, name := range strings.Split(s, ",") {
		sec := Section(strings.TrimSpace(name))
		known := false
		for _, k := range AllSections {
			if sec == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown section %q", name)
		}
		out = append(out, sec)
	}
	return out, nil
}

// BenchmarkCase Longstaff-Schwartz (2001) 表 1 的一个算例，FDRef 为有限差分参考值
type BenchmarkCase struct {
	Spot, Vol, Maturity, FDRef float64
}

// BenchmarkCases K=40 r=6% 的 20 个算例
var BenchmarkCases = []BenchmarkCase{
	{36, 0.20, 1, 4.478}, {36, 0.20, 2, 4.840}, {36, 0.40, 1, 7.101}, {36, 0.40, 2, 8.508},
	{38, 0.20, 1, 3.250}, {38, 0.20, 2, 3.745}, {38, 0.40, 1, 6.148}, {38, 0.40, 2, 7.670},
	{40, 0.20, 1, 2.314}, {40, 0.20, 2, 2.885}, {40, 0.40, 1, 5.312}, {40, 0.40, 2, 6.920},
	{42, 0.20, 1, 1.617}, {42, 0.20, 2, 2.212}, {42, 0.40, 1, 4.582}, {42, 0.40, 2, 6.248},
	{44, 0.20, 1, 1.110}, {44, 0.20, 2, 1.690}, {44, 0.40, 1, 3.948}, {44, 0.40, 2, 5.647},
}

// Reporter 报告生成器
type Reporter struct {
	opts     Options
	analyzer *domain.ConvergenceAnalyzer
}

// NewReporter 创建报告生成器
func NewReporter(opts Options) *Reporter {
	if len(opts.Sections) == 0 {
		opts.Sections = AllSections
	}
	return &Reporter{opts: opts, analyzer: domain.NewConvergenceAnalyzer(opts.Parallelism)}
}

// Write 依次输出所选章节
func (r *Reporter) Write(ctx context.Context, w io.Writer) error {
	sections := map[Section]func(context.Context, io.Writer) error{
		SectionPut:       r.writePut,
		SectionCall:      r.writeCall,
		SectionJump:      r.writeJump,
		SectionBasis:     r.writeBasis,
		SectionPaths:     r.writePaths,
		SectionOOS:       r.writeOOS,
		SectionBenchmark: r.writeBenchmark,
	}
	for _, sec := range r.opts.Sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sections[sec](ctx, w); err != nil {
			return fmt.Errorf("section %s: %w", sec, err)
		}
	}
	return nil
}

func (r *Reporter) config(paths int, maturity float64) domain.LSMConfig {
	return domain.LSMConfig{
		NumPaths:         paths,
		NumExerciseDates: int(datesPerYear * maturity),
		Maturity:         maturity,
		RiskFreeRate:     riskFreeRate,
		RNGSeed:          r.opts.Seed,
	}
}

func (r *Reporter) price(cfg domain.LSMConfig, process domain.StochasticProcess, optionType domain.OptionType, spot float64) (domain.SimulationResult, error) {
	payoff, err := domain.NewPayoff(optionType, strike)
	if err != nil {
		return domain.SimulationResult{}, err
	}
	basis, err := domain.NewLaguerreSet(domain.DefaultAnalysisBasisSize)
	if err != nil {
		return domain.SimulationResult{}, err
	}
	pricer, err := domain.NewLSMPricer(cfg, process, payoff, basis)
	if err != nil {
		return domain.SimulationResult{}, err
	}
	return pricer.Price(spot)
}

func (r *Reporter) pricePut(vol, maturity, spot float64, paths int) (domain.SimulationResult, error) {
	gbm, err := domain.NewGeometricBrownianMotion(riskFreeRate, vol)
	if err != nil {
		return domain.SimulationResult{}, err
	}
	return r.price(r.config(paths, maturity), gbm, domain.OptionTypePut, spot)
}

type resultRow struct {
	label string
	spot  float64
	res   domain.SimulationResult
}

// collect 并发计算各行，结果按下标写回
func (r *Reporter) collect(ctx context.Context, n int, fn func(i int) (resultRow, error)) ([]resultRow, error) {
	rows := make([]resultRow, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.opts.Parallelism, 1))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, err := fn(i)
			rows[i] = row
			return err
		})
	}
	return rows, g.Wait()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func heading(w io.Writer, title string, notes ...string) {
	fmt.Fprintf(w, "\n%s\n", title)
	for _, n := range notes {
		fmt.Fprintf(w, "    %s\n", n)
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
}

func writeResults(w io.Writer, rows []resultRow) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "Case\tSpot\tAm\tEu\tEEP\tSE\t")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t\n", row.label, row.spot,
			row.res.OptionValue, row.res.EuropeanValue, row.res.EarlyExercisePremium, row.res.StandardError)
	}
	return tw.Flush()
}

func (r *Reporter) writePut(ctx context.Context, w io.Writer) error {
	spots := []float64{36, 38, 40, 42, 44}
	maturities := []float64{0.5, 1, 2}
	vols := []float64{0.10, 0.20, 0.30, 0.40}

	heading(w, fmt.Sprintf("[1] American Put  K=40  r=6%%  sigma=20%%  T=1yr  N=%d", r.opts.Paths))
	rows, err := r.collect(ctx, len(spots), func(i int) (resultRow, error) {
		res, err := r.pricePut(0.20, 1, spots[i], r.opts.Paths)
		return resultRow{label: "AmericanPut", spot: spots[i], res: res}, err
	})
	if err != nil {
		return err
	}
	if err := writeResults(w, rows); err != nil {
		return err
	}

	heading(w, "[2] American Put: vary maturity  S=40  K=40  r=6%  sigma=20%")
	rows, err = r.collect(ctx, len(maturities), func(i int) (resultRow, error) {
		res, err := r.pricePut(0.20, maturities[i], 40, r.opts.Paths)
		return resultRow{label: fmt.Sprintf("T=%.1fyr", maturities[i]), spot: 40, res: res}, err
	})
	if err != nil {
		return err
	}
	if err := writeResults(w, rows); err != nil {
		return err
	}

	heading(w, "[3] American Put: vary sigma  S=40  K=40  r=6%  T=1yr")
	rows, err = r.collect(ctx, len(vols), func(i int) (resultRow, error) {
		res, err := r.pricePut(vols[i], 1, 40, r.opts.Paths)
		return resultRow{label: fmt.Sprintf("sigma=%.2f", vols[i]), spot: 40, res: res}, err
	})
	if err != nil {
		return err
	}
	return writeResults(w, rows)
}

func (r *Reporter) writeCall(ctx context.Context, w io.Writer) error {
	spots := []float64{36, 40, 44}
	heading(w, fmt.Sprintf("[4] American Call  K=40  r=6%%  sigma=20%%  T=1yr  N=%d", r.opts.Paths),
		"(non-dividend stock: American call equals European call, premium ~0)")
	gbm, err := domain.NewGeometricBrownianMotion(riskFreeRate, 0.20)
	if err != nil {
		return err
	}
	rows, err := r.collect(ctx, len(spots), func(i int) (resultRow, error) {
		res, err := r.price(r.config(r.opts.Paths, 1), gbm, domain.OptionTypeCall, spots[i])
		return resultRow{label: "AmericanCall", spot: spots[i], res: res}, err
	})
	if err != nil {
		return err
	}
	return writeResults(w, rows)
}

func (r *Reporter) writeJump(ctx context.Context, w io.Writer) error {
	lambdas := []float64{0, 0.05, 0.10}
	heading(w, fmt.Sprintf("[5] Jump-Diffusion Put  S=40  K=40  r=6%%  T=1yr  N=%d", r.opts.Paths),
		"(lambda=0 is pure GBM with sigma=30%; jump rows use sigma=20%)")
	rows, err := r.collect(ctx, len(lambdas), func(i int) (resultRow, error) {
		vol := 0.20
		if lambdas[i] == 0 {
			vol = 0.30
		}
		process, err := domain.NewJumpDiffusionProcess(riskFreeRate, vol, lambdas[i])
		if err != nil {
			return resultRow{}, err
		}
		res, err := r.price(r.config(r.opts.Paths, 1), process, domain.OptionTypePut, 40)
		return resultRow{label: fmt.Sprintf("lambda=%.2f", lambdas[i]), spot: 40, res: res}, err
	})
	if err != nil {
		return err
	}
	return writeResults(w, rows)
}

func (r *Reporter) writeBasis(ctx context.Context, w io.Writer) error {
	heading(w, "[6] Convergence vs. Basis Functions M",
		fmt.Sprintf("S=40  K=40  r=6%%  sigma=20%%  T=1yr  N=%d", r.opts.Paths),
		"(LSM value is a lower bound and should rise then stabilise with M)")
	rows, err := r.analyzer.AnalyzeByBasisFunctions(ctx, r.config(r.opts.Paths, 1), 40, strike, 0.20, 5)
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "M\tValue\tStd Error\t")
	for _, row := range rows {
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t\n", int(row.Parameter), row.Value, row.StandardError)
	}
	return tw.Flush()
}

func (r *Reporter) writePaths(ctx context.Context, w io.Writer) error {
	heading(w, "[7] Convergence vs. Path Count N",
		"S=40  K=40  r=6%  sigma=20%  T=1yr  M=3 Laguerre",
		"(standard error should fall in proportion to 1/sqrt(N))")
	cfg := r.config(r.opts.Paths, 1)
	rows, err := r.analyzer.AnalyzeByPathCount(ctx, cfg, 40, strike, 0.20, r.opts.PathCounts)
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "N\tValue\tStd Error\tSE * sqrt(N)\t")
	for _, row := range rows {
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.4f\t\n", int(row.Parameter), row.Value, row.StandardError,
			row.StandardError*math.Sqrt(row.Parameter))
	}
	return tw.Flush()
}

func (r *Reporter) writeOOS(ctx context.Context, w io.Writer) error {
	heading(w, "[8] Out-of-Sample Stability Test",
		fmt.Sprintf("S=40  K=40  r=6%%  sigma=20%%  T=1yr  N=%d  %d trials", r.opts.OOSPaths, r.opts.Trials),
		"(in-sample and out-of-sample values should be close)")
	trials, err := r.analyzer.OutOfSampleTest(ctx, r.config(r.opts.OOSPaths, 1), 40, strike, 0.20, r.opts.Trials)
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Trial\tIn-Sample\tOut-of-Sample\tDifference\t")
	for i, t := range trials {
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.4f\t\n", i+1, t.InSample.OptionValue, t.OutOfSample.OptionValue,
			t.OutOfSample.OptionValue-t.InSample.OptionValue)
	}
	return tw.Flush()
}

func (r *Reporter) writeBenchmark(ctx context.Context, w io.Writer) error {
	heading(w, "[9] Benchmark Table  (Longstaff-Schwartz 2001 Table 1)",
		fmt.Sprintf("K=40  r=6%%  N=%d  50 exercise dates/year", r.opts.BenchmarkPaths))
	rows, err := r.collect(ctx, len(BenchmarkCases), func(i int) (resultRow, error) {
		c := BenchmarkCases[i]
		res, err := r.pricePut(c.Vol, c.Maturity, c.Spot, r.opts.BenchmarkPaths)
		return resultRow{spot: c.Spot, res: res}, err
	})
	if err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "S\tsigma\tT\tLSM\tFD Ref\tDiff\tSE\t")
	for i, row := range rows {
		c := BenchmarkCases[i]
		fmt.Fprintf(tw, "%.0f\t%.2f\t%.0f\t%.3f\t%.3f\t%.3f\t%.3f\t\n", c.Spot, c.Vol, c.Maturity,
			row.res.OptionValue, c.FDRef, row.res.OptionValue-c.FDRef, row.res.StandardError)
	}
	return tw.Flush()
}
