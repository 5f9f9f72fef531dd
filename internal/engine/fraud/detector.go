// Package fraud screens applications for manipulation signals before any
// scoring happens. Hard flags block the application outright; soft flags
// accumulate into a suspicion score that accompanies the decision for the
// reviewing officer.
package fraud

import (
	"fmt"

	"decision-workers/internal/common/logger"
	"decision-workers/internal/engine/features"
)

// Severity of a raised flag.
const (
	SeverityHard = "hard"
	SeveritySoft = "soft"
)

// Flag codes.
const (
	FlagDocumentMismatch     = "document_mismatch"
	FlagMetadataAnomaly      = "metadata_anomaly"
	FlagIncomeInflation      = "income_inflation"
	FlagGeoMismatch          = "geo_location_mismatch"
	FlagExpensesExceedIncome = "expenses_exceed_income"
	FlagApplicationVelocity  = "application_velocity"
	FlagMissedPayments       = "missed_payments"
	FlagUtilityIrregular     = "utility_payment_irregular"
	FlagIncomeOverstated     = "income_overstated"
)

// Screening thresholds.
const (
	metadataAnomalyHard = 0.80
	incomeInflationHard = 2.50
	incomeInflationSoft = 1.50
	velocitySoft        = 3
	missedPaymentsSoft  = 3
	utilityOnTimeSoft   = 0.30
	hardFlagWeight      = 0.50
	softFlagWeight      = 0.15
)

// Flag is one raised fraud signal.
type Flag struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// Screen is the outcome of one fraud pass. Blocked is true iff at least one
// hard flag fired; Score is the clamped weighted sum of all flags.
type Screen struct {
	Flags   []Flag  `json:"flags"`
	Score   float64 `json:"score"`
	Blocked bool    `json:"blocked"`
}

// HardFlags returns only the blocking flags.
func (s Screen) HardFlags() []Flag {
	var hard []Flag
	for _, f := range s.Flags {
		if f.Severity == SeverityHard {
			hard = append(hard, f)
		}
	}
	return hard
}

// SoftFlags returns the non-blocking flags.
func (s Screen) SoftFlags() []Flag {
	var soft []Flag
	for _, f := range s.Flags {
		if f.Severity == SeveritySoft {
			soft = append(soft, f)
		}
	}
	return soft
}

// Detector runs the rule-based fraud screen.
type Detector struct {
	logger logger.Logger
}

func NewDetector(log logger.Logger) *Detector {
	return &Detector{logger: log}
}

// Screen evaluates every fraud rule against a sanitized vector. Rules fire
// in a fixed order so the flag list is deterministic.
func (d *Detector) Screen(f features.ApplicationFeatures) Screen {
	var flags []Flag

	// Hard rules.
	if f.DocumentMismatchFlag >= 1 {
		flags = append(flags, Flag{
			Code:     FlagDocumentMismatch,
			Severity: SeverityHard,
			Detail:   "submitted documents do not match declared identity or income",
		})
	}
	if f.MetadataAnomalyScore >= metadataAnomalyHard {
		flags = append(flags, Flag{
			Code:     FlagMetadataAnomaly,
			Severity: SeverityHard,
			Detail:   fmt.Sprintf("document metadata anomaly score %.2f at or above %.2f", f.MetadataAnomalyScore, metadataAnomalyHard),
		})
	}
	if f.IncomeInflationRatio >= incomeInflationHard {
		flags = append(flags, Flag{
			Code:     FlagIncomeInflation,
			Severity: SeverityHard,
			Detail:   fmt.Sprintf("declared income is %.2fx the verified figure", f.IncomeInflationRatio),
		})
	}

	// Soft rules.
	if f.GeoLocationMismatch >= 1 {
		flags = append(flags, Flag{
			Code:     FlagGeoMismatch,
			Severity: SeveritySoft,
			Detail:   "application origin does not match declared address region",
		})
	}
	if f.FixedMonthlyExpenses > f.MonthlyIncome {
		flags = append(flags, Flag{
			Code:     FlagExpensesExceedIncome,
			Severity: SeveritySoft,
			Detail:   fmt.Sprintf("fixed expenses %.0f exceed declared income %.0f", f.FixedMonthlyExpenses, f.MonthlyIncome),
		})
	}
	if f.ApplicationVelocity >= velocitySoft {
		flags = append(flags, Flag{
			Code:     FlagApplicationVelocity,
			Severity: SeveritySoft,
			Detail:   fmt.Sprintf("%.0f credit applications in the recent window", f.ApplicationVelocity),
		})
	}
	if f.MissedPayments12M >= missedPaymentsSoft {
		flags = append(flags, Flag{
			Code:     FlagMissedPayments,
			Severity: SeveritySoft,
			Detail:   fmt.Sprintf("%.0f missed payments in the last twelve months", f.MissedPayments12M),
		})
	}
	if f.UtilityBillOnTimeRatio < utilityOnTimeSoft {
		flags = append(flags, Flag{
			Code:     FlagUtilityIrregular,
			Severity: SeveritySoft,
			Detail:   fmt.Sprintf("utility bills paid on time only %.0f%% of the time", f.UtilityBillOnTimeRatio*100),
		})
	}
	if f.IncomeInflationRatio >= incomeInflationSoft && f.IncomeInflationRatio < incomeInflationHard {
		flags = append(flags, Flag{
			Code:     FlagIncomeOverstated,
			Severity: SeveritySoft,
			Detail:   fmt.Sprintf("declared income is %.2fx the verified figure", f.IncomeInflationRatio),
		})
	}

	screen := Screen{Flags: flags}
	for _, fl := range flags {
		if fl.Severity == SeverityHard {
			screen.Blocked = true
			screen.Score += hardFlagWeight
		} else {
			screen.Score += softFlagWeight
		}
	}
	if screen.Score > 1 {
		screen.Score = 1
	}

	if len(flags) > 0 {
		d.logger.Warn("fraud screen raised flags", map[string]interface{}{
			"flagCount": len(flags),
			"blocked":   screen.Blocked,
			"score":     screen.Score,
		})
	}
	return screen
}
