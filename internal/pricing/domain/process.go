package domain

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Shock 一个时间步的随机冲击
// Jumps 为区间内的跳跃次数，JumpZ 为各次跳跃标准正态抽样之和。
type Shock struct {
	Z     float64
	Jumps int
	JumpZ float64
}

// Mirror 返回正态分量取反后的对偶冲击，跳跃次数不变
func (s Shock) Mirror() Shock {
	return Shock{Z: -s.Z, Jumps: s.Jumps, JumpZ: -s.JumpZ}
}

// StochasticProcess 标的价格随机过程
type StochasticProcess interface {
	// Draw 从 rng 抽取一个时间步所需的随机变量
	Draw(rng *rand.Rand, dt float64) Shock
	// Step 根据冲击推进一步价格
	Step(price, dt float64, shock Shock) float64
	// Name 过程名称
	Name() string
}

// GeometricBrownianMotion 几何布朗运动，精确对数正态步进
type GeometricBrownianMotion struct {
	drift float64
	vol   float64
}

// NewGeometricBrownianMotion 创建 GBM 过程
func NewGeometricBrownianMotion(drift, vol float64) (*GeometricBrownianMotion, error) {
	if vol < 0 || math.IsNaN(vol) {
		return nil, fmt.Errorf("NewGeometricBrownianMotion: volatility %g: %w", vol, ErrInvalidParameter)
	}
	return &GeometricBrownianMotion{drift: drift, vol: vol}, nil
}

func (p *GeometricBrownianMotion) Draw(rng *rand.Rand, _ float64) Shock {
	return Shock{Z: rng.NormFloat64()}
}

func (p *GeometricBrownianMotion) Step(price, dt float64, shock Shock) float64 {
	return price * math.Exp(diffusionIncrement(p.drift, p.vol, dt, shock.Z))
}

func (p *GeometricBrownianMotion) Name() string { return "GBM" }

// 默认跳跃幅度分布：对数跳幅 ~ N(-0.10, 0.25²)
const (
	DefaultJumpMean = -0.10
	DefaultJumpVol  = 0.25
)

// JumpDiffusionProcess Merton 跳跃扩散过程
type JumpDiffusionProcess struct {
	drift     float64
	vol       float64
	intensity float64
	jumpMean  float64
	jumpVol   float64
	kappa     float64
}

// NewJumpDiffusionProcess 使用默认跳幅分布创建跳跃扩散过程
func NewJumpDiffusionProcess(drift, vol, intensity float64) (*JumpDiffusionProcess, error) {
	return NewJumpDiffusionProcessWithJumps(drift, vol, intensity, DefaultJumpMean, DefaultJumpVol)
}

// NewJumpDiffusionProcessWithJumps 指定对数跳幅均值与波动率
func NewJumpDiffusionProcessWithJumps(drift, vol, intensity, jumpMean, jumpVol float64) (*JumpDiffusionProcess, error) {
	if vol < 0 || math.IsNaN(vol) {
		return nil, fmt.Errorf("NewJumpDiffusionProcess: volatility %g: %w", vol, ErrInvalidParameter)
	}
	if intensity < 0 || math.IsNaN(intensity) {
		return nil, fmt.Errorf("NewJumpDiffusionProcess: intensity %g: %w", intensity, ErrInvalidParameter)
	}
	if jumpVol < 0 || math.IsNaN(jumpVol) {
		return nil, fmt.Errorf("NewJumpDiffusionProcess: jump volatility %g: %w", jumpVol, ErrInvalidParameter)
	}
	return &JumpDiffusionProcess{
		drift:     drift,
		vol:       vol,
		intensity: intensity,
		jumpMean:  jumpMean,
		jumpVol:   jumpVol,
		kappa:     math.Exp(jumpMean+0.5*jumpVol*jumpVol) - 1,
	}, nil
}

func (p *JumpDiffusionProcess) Draw(rng *rand.Rand, dt float64) Shock {
	shock := Shock{Z: rng.NormFloat64()}
	lambda := p.intensity * dt
	if lambda == 0 {
		return shock
	}
	// *rand.Rand 满足 rand.Source，跳跃抽样与扩散抽样共用同一条随机流
	poisson := distuv.Poisson{Lambda: lambda, Src: rng}
	shock.Jumps = int(poisson.Rand())
	for i := 0; i < shock.Jumps; i++ {
		shock.JumpZ += rng.NormFloat64()
	}
	return shock
}

func (p *JumpDiffusionProcess) Step(price, dt float64, shock Shock) float64 {
	// 漂移扣除 λκ 补偿项，保证贴现价格为鞅
	x := diffusionIncrement(p.drift-p.intensity*p.kappa, p.vol, dt, shock.Z)
	if shock.Jumps > 0 {
		x += float64(shock.Jumps)*p.jumpMean + p.jumpVol*shock.JumpZ
	}
	return price * math.Exp(x)
}

func (p *JumpDiffusionProcess) Name() string { return "JumpDiffusion" }

func diffusionIncrement(drift, vol, dt, z float64) float64 {
	return (drift-0.5*vol*vol)*dt + vol*math.Sqrt(dt)*z
}
