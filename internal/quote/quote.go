// Package quote computes self-service price estimates for simulation projects.
//
// Estimates are pure: the same selection always yields the same result and
// nothing is read from or written to the outside world.
package quote

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ServiceType selects who produces the geometry.
type ServiceType string

const (
	ServiceFullService ServiceType = "full-service"
	ServiceSimOnly     ServiceType = "sim-only"
)

// BuildType distinguishes single parts from multi-part builds.
type BuildType string

const (
	BuildSingle BuildType = "single"
	BuildMulti  BuildType = "multi"
)

// Complexity is the geometric complexity tier.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Depth is the analysis thoroughness tier.
type Depth string

const (
	Depth1x  Depth = "1x"
	Depth2x  Depth = "2x"
	Depth4x  Depth = "4x"
	Depth10x Depth = "10x"
)

// Status describes which kind of answer an estimate carries.
type Status string

const (
	StatusPriced               Status = "priced"
	StatusCustomQuote          Status = "custom_quote"
	StatusConsultationRequired Status = "consultation_required"
)

// Selection is the set of options picked by a visitor.
type Selection struct {
	ServiceType ServiceType `json:"service_type"`
	BuildType   BuildType   `json:"build_type"`
	Complexity  Complexity  `json:"complexity"`
	Depth       Depth       `json:"depth"`
}

// Estimate is the outcome of Calculate. Low and High are only meaningful
// when Status is StatusPriced.
type Estimate struct {
	Status                 Status
	Low                    decimal.Decimal
	High                   decimal.Decimal
	MinimumTurnaroundHours int
}

// Priced reports whether the estimate carries a numeric range.
func (e Estimate) Priced() bool {
	return e.Status == StatusPriced
}

// ServiceOption describes a service tier and its base rate.
type ServiceOption struct {
	Value       ServiceType
	Label       string
	Description string
	BaseRate    decimal.Decimal
}

// ComplexityOption describes a complexity tier.
type ComplexityOption struct {
	Value      Complexity
	Label      string
	Multiplier decimal.Decimal
	MinHours   int
}

// DepthOption describes an analysis depth tier.
type DepthOption struct {
	Value                Depth
	Label                string
	Multiplier           decimal.Decimal
	MinHours             int
	RequiresConsultation bool
}

// BuildOption describes a build type.
type BuildOption struct {
	Value       BuildType
	Label       string
	CustomQuote bool
}

var (
	bandLow  = decimal.RequireFromString("0.8")
	bandHigh = decimal.RequireFromString("1.2")
	hundred  = decimal.NewFromInt(100)
)

var services = []ServiceOption{
	{Value: ServiceFullService, Label: "Full-Service", Description: "We design + simulate", BaseRate: decimal.NewFromInt(2000)},
	{Value: ServiceSimOnly, Label: "Simulation-Only", Description: "You provide CAD", BaseRate: decimal.NewFromInt(500)},
}

var builds = []BuildOption{
	{Value: BuildSingle, Label: "Single Part"},
	{Value: BuildMulti, Label: "Complete Build", CustomQuote: true},
}

var complexities = []ComplexityOption{
	{Value: ComplexitySimple, Label: "Simple", Multiplier: decimal.NewFromInt(1), MinHours: 24},
	{Value: ComplexityMedium, Label: "Medium", Multiplier: decimal.RequireFromString("1.5"), MinHours: 48},
	{Value: ComplexityComplex, Label: "Complex", Multiplier: decimal.RequireFromString("2.5"), MinHours: 72},
}

var depths = []DepthOption{
	{Value: Depth1x, Label: "Standard", Multiplier: decimal.NewFromInt(1), MinHours: 0},
	{Value: Depth2x, Label: "Detailed", Multiplier: decimal.RequireFromString("1.6"), MinHours: 48},
	{Value: Depth4x, Label: "Comprehensive", Multiplier: decimal.RequireFromString("2.5"), MinHours: 96},
	{Value: Depth10x, Label: "Exhaustive", Multiplier: decimal.NewFromInt(5), MinHours: 168, RequiresConsultation: true},
}

// Services returns the service tiers in display order.
func Services() []ServiceOption { return append([]ServiceOption(nil), services...) }

// Builds returns the build types in display order.
func Builds() []BuildOption { return append([]BuildOption(nil), builds...) }

// Complexities returns the complexity tiers in increasing order.
func Complexities() []ComplexityOption {
	return append([]ComplexityOption(nil), complexities...)
}

// Depths returns the depth tiers in increasing order.
func Depths() []DepthOption { return append([]DepthOption(nil), depths...) }

// LookupService finds a service tier.
func LookupService(v ServiceType) (ServiceOption, bool) {
	for _, opt := range services {
		if opt.Value == v {
			return opt, true
		}
	}
	return ServiceOption{}, false
}

// LookupBuild finds a build type.
func LookupBuild(v BuildType) (BuildOption, bool) {
	for _, opt := range builds {
		if opt.Value == v {
			return opt, true
		}
	}
	return BuildOption{}, false
}

// LookupComplexity finds a complexity tier.
func LookupComplexity(v Complexity) (ComplexityOption, bool) {
	for _, opt := range complexities {
		if opt.Value == v {
			return opt, true
		}
	}
	return ComplexityOption{}, false
}

// LookupDepth finds a depth tier. Callers use RequiresConsultation to
// divert visitors before asking for a price.
func LookupDepth(v Depth) (DepthOption, bool) {
	for _, opt := range depths {
		if opt.Value == v {
			return opt, true
		}
	}
	return DepthOption{}, false
}

// ParseSelection normalises raw option values. Empty values take the defaults
// used by the pricing page: full-service, single, medium, 1x.
func ParseSelection(service, build, complexity, depth string) Selection {
	sel := Selection{
		ServiceType: ServiceType(normalize(service)),
		BuildType:   BuildType(normalize(build)),
		Complexity:  Complexity(normalize(complexity)),
		Depth:       Depth(normalize(depth)),
	}
	if sel.ServiceType == "" {
		sel.ServiceType = ServiceFullService
	}
	if sel.BuildType == "" {
		sel.BuildType = BuildSingle
	}
	if sel.Complexity == "" {
		sel.Complexity = ComplexityMedium
	}
	if sel.Depth == "" {
		sel.Depth = Depth1x
	}
	return sel
}

// Calculate prices a selection.
//
// Multi-part builds always return StatusCustomQuote. Depth tiers that require
// consultation return StatusConsultationRequired and never a range.
func Calculate(sel Selection) (Estimate, error) {
	service, ok := LookupService(sel.ServiceType)
	if !ok {
		return Estimate{}, fmt.Errorf("unknown service type %q", sel.ServiceType)
	}
	build, ok := LookupBuild(sel.BuildType)
	if !ok {
		return Estimate{}, fmt.Errorf("unknown build type %q", sel.BuildType)
	}
	complexity, ok := LookupComplexity(sel.Complexity)
	if !ok {
		return Estimate{}, fmt.Errorf("unknown complexity %q", sel.Complexity)
	}
	depth, ok := LookupDepth(sel.Depth)
	if !ok {
		return Estimate{}, fmt.Errorf("unknown depth %q", sel.Depth)
	}

	if build.CustomQuote {
		return Estimate{Status: StatusCustomQuote}, nil
	}

	hours := max(complexity.MinHours, depth.MinHours)
	if depth.RequiresConsultation {
		return Estimate{Status: StatusConsultationRequired, MinimumTurnaroundHours: hours}, nil
	}

	total := service.BaseRate.Mul(complexity.Multiplier).Mul(depth.Multiplier)
	return Estimate{
		Status:                 StatusPriced,
		Low:                    roundToHundred(total.Mul(bandLow)),
		High:                   roundToHundred(total.Mul(bandHigh)),
		MinimumTurnaroundHours: hours,
	}, nil
}

// roundToHundred rounds half away from zero to the nearest multiple of 100.
func roundToHundred(v decimal.Decimal) decimal.Decimal {
	return v.Div(hundred).Round(0).Mul(hundred)
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
