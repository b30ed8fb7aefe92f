package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"
)

// MaxInstallments caps every plan regardless of brand policy.
const MaxInstallments = 21

// DefaultMonthlyInterest is the monthly rate, in percent, charged once a
// plan leaves its interest-free range.
var DefaultMonthlyInterest = decimal.RequireFromString("1.99")

var one = decimal.NewFromInt(1)

// conservativePolicy applies when a table has no entry for a brand and no
// entry for BrandUnknown either.
var conservativePolicy = InstallmentPolicy{MaxInstallments: 12, InterestFreeUpTo: 3}

// InstallmentOption is one row of an installment plan.
type InstallmentOption struct {
	N               int             `json:"n"`
	PerInstallment  decimal.Decimal `json:"per_installment"`
	InterestMonthly decimal.Decimal `json:"interest_monthly"`
	InterestApplied bool            `json:"interest_applied"`
	Label           string          `json:"label"`
}

// Total is what the shopper repays over the whole plan. It can differ from
// the payable base by a few cents because each installment is rounded on
// its own.
func (o InstallmentOption) Total() decimal.Decimal {
	return RoundMoney(o.PerInstallment.Mul(decimal.NewFromInt(int64(o.N))))
}

// InstallmentPolicy bounds the plan offered for one brand.
type InstallmentPolicy struct {
	MaxInstallments  int `json:"max_installments" yaml:"max_installments"`
	InterestFreeUpTo int `json:"interest_free_up_to" yaml:"interest_free_up_to"`
}

func (p InstallmentPolicy) normalized() InstallmentPolicy {
	if p.MaxInstallments < 1 {
		p.MaxInstallments = 1
	}
	if p.MaxInstallments > MaxInstallments {
		p.MaxInstallments = MaxInstallments
	}
	if p.InterestFreeUpTo < 1 {
		p.InterestFreeUpTo = 1
	}
	if p.InterestFreeUpTo > p.MaxInstallments {
		p.InterestFreeUpTo = p.MaxInstallments
	}
	return p
}

// InstallmentTable holds the brand policies and the monthly interest rate.
// A table is read-only once built and safe for concurrent use.
type InstallmentTable struct {
	MonthlyInterest decimal.Decimal
	Policies        map[CardBrand]InstallmentPolicy
}

// DefaultInstallmentTable returns the storefront's standard brand policies.
func DefaultInstallmentTable() *InstallmentTable {
	return &InstallmentTable{
		MonthlyInterest: DefaultMonthlyInterest,
		Policies: map[CardBrand]InstallmentPolicy{
			BrandVisa:       {MaxInstallments: 21, InterestFreeUpTo: 12},
			BrandMastercard: {MaxInstallments: 21, InterestFreeUpTo: 12},
			BrandElo:        {MaxInstallments: 18, InterestFreeUpTo: 10},
			BrandAmex:       {MaxInstallments: 15, InterestFreeUpTo: 10},
			BrandHipercard:  {MaxInstallments: 12, InterestFreeUpTo: 6},
			BrandDiners:     {MaxInstallments: 12, InterestFreeUpTo: 6},
			BrandDiscover:   {MaxInstallments: 12, InterestFreeUpTo: 6},
			BrandJCB:        {MaxInstallments: 12, InterestFreeUpTo: 6},
			BrandAura:       {MaxInstallments: 12, InterestFreeUpTo: 6},
			BrandMaestro:    {MaxInstallments: 12, InterestFreeUpTo: 3},
			BrandUnknown:    {MaxInstallments: 12, InterestFreeUpTo: 3},
		},
	}
}

// Policy returns the normalised policy for brand, falling back to the
// BrandUnknown entry.
func (t *InstallmentTable) Policy(brand CardBrand) InstallmentPolicy {
	p, ok := t.Policies[brand]
	if !ok {
		p, ok = t.Policies[BrandUnknown]
	}
	if !ok {
		p = conservativePolicy
	}
	return p.normalized()
}

// Fingerprint identifies the effective plan shape: the interest rate and
// the normalised policy of every brand. Tables that generate the same plans
// share a fingerprint.
func (t *InstallmentTable) Fingerprint() string {
	var b strings.Builder
	b.WriteString(t.MonthlyInterest.String())
	for _, brand := range AllBrands() {
		p := t.Policy(brand)
		fmt.Fprintf(&b, "|%s=%d/%d", brand, p.MaxInstallments, p.InterestFreeUpTo)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:6])
}

type installmentTableFile struct {
	MonthlyInterestPercent string                       `yaml:"monthly_interest_percent"`
	Brands                 map[string]InstallmentPolicy `yaml:"brands"`
}

// LoadInstallmentTable reads a YAML policy table:
//
//	monthly_interest_percent: "1.99"
//	brands:
//	  visa: {max_installments: 21, interest_free_up_to: 12}
//
// Brands missing from the file keep their default policy.
func LoadInstallmentTable(r io.Reader) (*InstallmentTable, error) {
	var f installmentTableFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode installment table: %w", err)
	}

	table := DefaultInstallmentTable()
	if f.MonthlyInterestPercent != "" {
		rate, err := decimal.NewFromString(f.MonthlyInterestPercent)
		if err != nil {
			return nil, fmt.Errorf("parse monthly_interest_percent %q: %w", f.MonthlyInterestPercent, err)
		}
		if rate.IsNegative() {
			return nil, fmt.Errorf("monthly_interest_percent must not be negative, got %s", rate)
		}
		table.MonthlyInterest = rate
	}

	for name, p := range f.Brands {
		brand := ParseCardBrand(name)
		if brand == BrandUnknown && name != string(BrandUnknown) {
			return nil, fmt.Errorf("unknown card brand %q in installment table", name)
		}
		if p.MaxInstallments < 1 || p.MaxInstallments > MaxInstallments {
			return nil, fmt.Errorf("brand %s: max_installments must be between 1 and %d", brand, MaxInstallments)
		}
		if p.InterestFreeUpTo < 1 || p.InterestFreeUpTo > p.MaxInstallments {
			return nil, fmt.Errorf("brand %s: interest_free_up_to must be between 1 and max_installments", brand)
		}
		table.Policies[brand] = p
	}
	return table, nil
}

// LoadInstallmentTableFile is LoadInstallmentTable over a file path.
func LoadInstallmentTableFile(path string) (*InstallmentTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open installment table: %w", err)
	}
	defer f.Close()
	return LoadInstallmentTable(f)
}

// InstallmentGenerator builds installment plans from a policy table.
type InstallmentGenerator struct {
	table *InstallmentTable
}

// NewInstallmentGenerator uses DefaultInstallmentTable when table is nil.
func NewInstallmentGenerator(table *InstallmentTable) *InstallmentGenerator {
	if table == nil {
		table = DefaultInstallmentTable()
	}
	return &InstallmentGenerator{table: table}
}

var defaultGenerator = NewInstallmentGenerator(nil)

// GenerateInstallments builds a plan with the default policy table.
func GenerateInstallments(total decimal.Decimal, brand CardBrand) []InstallmentOption {
	return defaultGenerator.Generate(total, brand)
}

// Table exposes the generator's policy table.
func (g *InstallmentGenerator) Table() *InstallmentTable {
	return g.table
}

// Generate returns the plan for n = 1..max. Options up to the brand's
// interest-free threshold split the total evenly; beyond it each
// installment is the annuity payment at the table's monthly rate. A
// negative total is treated as zero.
func (g *InstallmentGenerator) Generate(total decimal.Decimal, brand CardBrand) []InstallmentOption {
	total = RoundMoney(NonNegative(total))
	policy := g.table.Policy(brand)
	ratePercent := NonNegative(g.table.MonthlyInterest)
	rate := ratePercent.Div(decimal.NewFromInt(100))
	p := message.NewPrinter(language.BrazilianPortuguese)

	plan := make([]InstallmentOption, 0, policy.MaxInstallments)
	for n := 1; n <= policy.MaxInstallments; n++ {
		opt := InstallmentOption{N: n, InterestMonthly: decimal.Zero}
		if n > policy.InterestFreeUpTo && n > 1 && rate.IsPositive() {
			opt.InterestApplied = true
			opt.InterestMonthly = ratePercent
			opt.PerInstallment = RoundMoney(annuityPayment(total, rate, n))
		} else {
			opt.PerInstallment = RoundMoney(total.Div(decimal.NewFromInt(int64(n))))
		}
		opt.Label = installmentLabel(p, opt)
		plan = append(plan, opt)
	}
	return plan
}

// annuityPayment is total * f*i / (f-1) with f = (1+i)^n.
func annuityPayment(total, rate decimal.Decimal, n int) decimal.Decimal {
	base := one.Add(rate)
	factor := one
	for k := 0; k < n; k++ {
		factor = factor.Mul(base)
	}
	return total.Mul(factor.Mul(rate)).Div(factor.Sub(one))
}

func installmentLabel(p *message.Printer, o InstallmentOption) string {
	amount := number.Decimal(o.PerInstallment.InexactFloat64(), number.Scale(2))
	if o.InterestApplied {
		rate := number.Decimal(o.InterestMonthly.InexactFloat64(), number.Scale(2))
		return p.Sprintf("%dx de R$ %v — juros %v%% a.m.", o.N, amount, rate)
	}
	return p.Sprintf("%dx de R$ %v — sem juros", o.N, amount)
}

// FindInstallment returns the option with n installments.
func FindInstallment(plan []InstallmentOption, n int) (InstallmentOption, bool) {
	for _, o := range plan {
		if o.N == n {
			return o, true
		}
	}
	return InstallmentOption{}, false
}
