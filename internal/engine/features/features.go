// Package features defines the typed application feature vector evaluated by
// the decision engine, together with the per-field validation policy.
//
// The calling layer owns default resolution (extracted > user-supplied >
// declared default); by the time a vector reaches this package every field is
// expected to carry its single agreed-upon value. Validation here only checks
// presence, type and declared range.
package features

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ApplicationFeatures is one applicant's resolved feature vector. Numeric
// fields decoded from JSON start out as NaN so that an absent field is
// distinguishable from a legitimate zero.
type ApplicationFeatures struct {
	Age                    float64 `json:"age"`
	CreditScore            float64 `json:"credit_score"`
	MonthlyIncome          float64 `json:"monthly_income"`
	SavingsBalance         float64 `json:"savings_balance"`
	FixedMonthlyExpenses   float64 `json:"fixed_monthly_expenses"`
	EmploymentYears        float64 `json:"employment_years"`
	EmploymentType         string  `json:"employment_type"`
	UtilityBillOnTimeRatio float64 `json:"utility_bill_on_time_ratio"`
	IncomeInflationRatio   float64 `json:"income_inflation_ratio"`
	DebtToIncomeRatio      float64 `json:"debt_to_income_ratio"`
	LoanAmount             float64 `json:"loan_amount"`
	LoanDurationMonths     float64 `json:"loan_duration_months"`
	LatePayments12M        float64 `json:"late_payments_12m"`
	MissedPayments12M      float64 `json:"missed_payments_12m"`
	ApplicationVelocity    float64 `json:"application_velocity"`
	MetadataAnomalyScore   float64 `json:"metadata_anomaly_score"`
	DocumentMismatchFlag   float64 `json:"document_mismatch_flag"`
	GeoLocationMismatch    float64 `json:"geo_location_mismatch"`
}

// Kind classifies how a field is perturbed and validated.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

// Policy declares what happens to an out-of-range value.
type Policy int

const (
	// Clip pulls the value back to the nearest bound.
	Clip Policy = iota
	// Reject fails validation naming the field.
	Reject
)

// FieldSpec declares one field's identifier, valid range and range policy.
// Scale is the field's natural unit of variation, used to perturb and to
// normalize distances when building local explanations.
type FieldSpec struct {
	ID         string
	Kind       Kind
	Min        float64
	Max        float64
	Scale      float64
	Categories []string
	OutOfRange Policy
}

// EmploymentTypes is the declared category set for employment_type, ordered
// by increasing income-stability risk.
var EmploymentTypes = []string{"salaried", "self_employed", "contract", "unemployed"}

// registry is the fixed, ordered field table. Order matters: the explainer
// iterates it when perturbing, so it must be stable for determinism.
var registry = []FieldSpec{
	{ID: "age", Kind: Numeric, Min: 18, Max: 100, Scale: 10, OutOfRange: Reject},
	{ID: "credit_score", Kind: Numeric, Min: 300, Max: 850, Scale: 80, OutOfRange: Reject},
	{ID: "monthly_income", Kind: Numeric, Min: 0, Max: 10_000_000, Scale: 1500, OutOfRange: Reject},
	{ID: "savings_balance", Kind: Numeric, Min: 0, Max: 100_000_000, Scale: 4000, OutOfRange: Clip},
	{ID: "fixed_monthly_expenses", Kind: Numeric, Min: 0, Max: 10_000_000, Scale: 700, OutOfRange: Clip},
	{ID: "employment_years", Kind: Numeric, Min: 0, Max: 60, Scale: 3, OutOfRange: Clip},
	{ID: "employment_type", Kind: Categorical, Scale: 1, Categories: EmploymentTypes, OutOfRange: Reject},
	{ID: "utility_bill_on_time_ratio", Kind: Numeric, Min: 0, Max: 1, Scale: 0.1, OutOfRange: Clip},
	{ID: "income_inflation_ratio", Kind: Numeric, Min: 0, Max: 10, Scale: 0.3, OutOfRange: Clip},
	{ID: "debt_to_income_ratio", Kind: Numeric, Min: 0, Max: 3, Scale: 0.15, OutOfRange: Clip},
	{ID: "loan_amount", Kind: Numeric, Min: 100, Max: 5_000_000, Scale: 15000, OutOfRange: Reject},
	{ID: "loan_duration_months", Kind: Numeric, Min: 3, Max: 360, Scale: 18, OutOfRange: Reject},
	{ID: "late_payments_12m", Kind: Numeric, Min: 0, Max: 12, Scale: 1.5, OutOfRange: Clip},
	{ID: "missed_payments_12m", Kind: Numeric, Min: 0, Max: 12, Scale: 1, OutOfRange: Clip},
	{ID: "application_velocity", Kind: Numeric, Min: 0, Max: 20, Scale: 1, OutOfRange: Clip},
	{ID: "metadata_anomaly_score", Kind: Numeric, Min: 0, Max: 1, Scale: 0.2, OutOfRange: Clip},
	{ID: "document_mismatch_flag", Kind: Numeric, Min: 0, Max: 1, Scale: 0.3, OutOfRange: Clip},
	{ID: "geo_location_mismatch", Kind: Numeric, Min: 0, Max: 1, Scale: 0.3, OutOfRange: Clip},
}

// Registry returns the ordered field table. Callers must not mutate it.
func Registry() []FieldSpec {
	return registry
}

// Spec returns the field spec for id.
func Spec(id string) (FieldSpec, bool) {
	for _, fs := range registry {
		if fs.ID == id {
			return fs, true
		}
	}
	return FieldSpec{}, false
}

// Empty returns a vector with every numeric field marked missing.
func Empty() ApplicationFeatures {
	f := ApplicationFeatures{}
	nan := math.NaN()
	f.Age = nan
	f.CreditScore = nan
	f.MonthlyIncome = nan
	f.SavingsBalance = nan
	f.FixedMonthlyExpenses = nan
	f.EmploymentYears = nan
	f.UtilityBillOnTimeRatio = nan
	f.IncomeInflationRatio = nan
	f.DebtToIncomeRatio = nan
	f.LoanAmount = nan
	f.LoanDurationMonths = nan
	f.LatePayments12M = nan
	f.MissedPayments12M = nan
	f.ApplicationVelocity = nan
	f.MetadataAnomalyScore = nan
	f.DocumentMismatchFlag = nan
	f.GeoLocationMismatch = nan
	return f
}

// UnmarshalJSON decodes on top of an Empty vector so absent numeric fields
// come out as NaN instead of zero.
func (f *ApplicationFeatures) UnmarshalJSON(data []byte) error {
	type plain ApplicationFeatures
	p := plain(Empty())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = ApplicationFeatures(p)
	return nil
}

// Value returns the numeric value for a field id. Categorical fields are
// encoded as the ordinal index of their category; an unknown category or a
// missing numeric returns NaN.
func (f ApplicationFeatures) Value(id string) float64 {
	switch id {
	case "age":
		return f.Age
	case "credit_score":
		return f.CreditScore
	case "monthly_income":
		return f.MonthlyIncome
	case "savings_balance":
		return f.SavingsBalance
	case "fixed_monthly_expenses":
		return f.FixedMonthlyExpenses
	case "employment_years":
		return f.EmploymentYears
	case "employment_type":
		for i, c := range EmploymentTypes {
			if f.EmploymentType == c {
				return float64(i)
			}
		}
		return math.NaN()
	case "utility_bill_on_time_ratio":
		return f.UtilityBillOnTimeRatio
	case "income_inflation_ratio":
		return f.IncomeInflationRatio
	case "debt_to_income_ratio":
		return f.DebtToIncomeRatio
	case "loan_amount":
		return f.LoanAmount
	case "loan_duration_months":
		return f.LoanDurationMonths
	case "late_payments_12m":
		return f.LatePayments12M
	case "missed_payments_12m":
		return f.MissedPayments12M
	case "application_velocity":
		return f.ApplicationVelocity
	case "metadata_anomaly_score":
		return f.MetadataAnomalyScore
	case "document_mismatch_flag":
		return f.DocumentMismatchFlag
	case "geo_location_mismatch":
		return f.GeoLocationMismatch
	default:
		return math.NaN()
	}
}

// WithValue returns a copy with the named field set. Categorical fields take
// the ordinal index, rounded into the category range.
func (f ApplicationFeatures) WithValue(id string, v float64) ApplicationFeatures {
	switch id {
	case "age":
		f.Age = v
	case "credit_score":
		f.CreditScore = v
	case "monthly_income":
		f.MonthlyIncome = v
	case "savings_balance":
		f.SavingsBalance = v
	case "fixed_monthly_expenses":
		f.FixedMonthlyExpenses = v
	case "employment_years":
		f.EmploymentYears = v
	case "employment_type":
		i := int(math.Round(v))
		if i < 0 {
			i = 0
		}
		if i >= len(EmploymentTypes) {
			i = len(EmploymentTypes) - 1
		}
		f.EmploymentType = EmploymentTypes[i]
	case "utility_bill_on_time_ratio":
		f.UtilityBillOnTimeRatio = v
	case "income_inflation_ratio":
		f.IncomeInflationRatio = v
	case "debt_to_income_ratio":
		f.DebtToIncomeRatio = v
	case "loan_amount":
		f.LoanAmount = v
	case "loan_duration_months":
		f.LoanDurationMonths = v
	case "late_payments_12m":
		f.LatePayments12M = v
	case "missed_payments_12m":
		f.MissedPayments12M = v
	case "application_velocity":
		f.ApplicationVelocity = v
	case "metadata_anomaly_score":
		f.MetadataAnomalyScore = v
	case "document_mismatch_flag":
		f.DocumentMismatchFlag = v
	case "geo_location_mismatch":
		f.GeoLocationMismatch = v
	}
	return f
}

// FieldError names one field that failed validation and why.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every failing field of one vector.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Reason)
	}
	return "feature validation failed: " + strings.Join(parts, "; ")
}

// Sanitize validates the vector against the registry and returns a copy with
// clip-policy fields pulled into range. Missing required fields and
// reject-policy range violations fail with a ValidationError naming every
// offending field.
func Sanitize(f ApplicationFeatures) (ApplicationFeatures, error) {
	var fieldErrs []FieldError

	for _, fs := range registry {
		if fs.Kind == Categorical {
			if f.EmploymentType == "" {
				fieldErrs = append(fieldErrs, FieldError{Field: fs.ID, Reason: "required field missing"})
				continue
			}
			if math.IsNaN(f.Value(fs.ID)) {
				fieldErrs = append(fieldErrs, FieldError{
					Field:  fs.ID,
					Reason: fmt.Sprintf("unknown category %q, expected one of %v", f.EmploymentType, fs.Categories),
				})
			}
			continue
		}

		v := f.Value(fs.ID)
		if math.IsNaN(v) {
			fieldErrs = append(fieldErrs, FieldError{Field: fs.ID, Reason: "required field missing"})
			continue
		}
		if v < fs.Min || v > fs.Max {
			if fs.OutOfRange == Reject {
				fieldErrs = append(fieldErrs, FieldError{
					Field:  fs.ID,
					Reason: fmt.Sprintf("value %v outside declared range [%v, %v]", v, fs.Min, fs.Max),
				})
				continue
			}
			f = f.WithValue(fs.ID, math.Min(math.Max(v, fs.Min), fs.Max))
		}
	}

	if len(fieldErrs) > 0 {
		return f, &ValidationError{Fields: fieldErrs}
	}
	return f, nil
}
