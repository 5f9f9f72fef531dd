package knowledge

// defaultRules is the built-in advisory table. Estimated PD deltas are
// per-action standalone figures; the advisor discounts them when stacking.
var defaultRules = []Rule{
	{
		FeatureID:           "credit_score",
		ExplanationTemplate: "Credit score of {value} weighs on the {band} outcome; scores below the portfolio average raise estimated default risk.",
		Questions: []QuestionTemplate{
			{ID: "credit_score_history", Text: "Your credit score is {value}. Have there been recent events (defaults, settlements, new credit lines) that affected it?"},
			{ID: "credit_score_disputes", Text: "Are any entries on your credit report under dispute or known to be inaccurate?"},
		},
		Documents: []DocumentTrigger{
			{Type: "full_credit_report", When: WhenAlways},
			{Type: "settlement_letters", When: WhenBelow, Threshold: 600},
		},
		Actions: []ImprovementAction{
			{Action: "Clear outstanding collection items and have them marked settled on the bureau report", Horizon: HorizonShortTerm, EstimatedPDDelta: 0.020},
			{Action: "Keep all credit lines current for six consecutive months", Horizon: HorizonLongTerm, EstimatedPDDelta: 0.015},
		},
	},
	{
		FeatureID:           "monthly_income",
		ExplanationTemplate: "Declared monthly income of {value} is a significant driver of the {band} outcome.",
		Questions: []QuestionTemplate{
			{ID: "income_sources", Text: "Your declared monthly income is {value}. Does this include all regular sources (salary, rental, side business)?"},
			{ID: "income_stability", Text: "Is your income fixed or does it vary month to month?"},
		},
		Documents: []DocumentTrigger{
			{Type: "salary_slips_3m", When: WhenAlways},
			{Type: "bank_statements_6m", When: WhenBelow, Threshold: 3000},
		},
		Actions: []ImprovementAction{
			{Action: "Document and declare secondary income sources with supporting statements", Horizon: HorizonImmediate, EstimatedPDDelta: 0.020},
			{Action: "Consolidate income into a single account to establish a verifiable history", Horizon: HorizonShortTerm, EstimatedPDDelta: 0.010},
		},
	},
	{
		FeatureID:           "debt_to_income_ratio",
		ExplanationTemplate: "A debt-to-income ratio of {value} indicates existing obligations consume a large share of income.",
		Questions: []QuestionTemplate{
			{ID: "dti_breakdown", Text: "Your debt-to-income ratio is {value}. Which existing loans or card balances make up the debt?"},
			{ID: "dti_plans", Text: "Do you plan to close any existing obligations before taking on this loan?"},
		},
		Documents: []DocumentTrigger{
			{Type: "loan_statements", When: WhenAbove, Threshold: 0.4},
		},
		Actions: []ImprovementAction{
			{Action: "Pay down the smallest outstanding balance to close one obligation entirely", Horizon: HorizonImmediate, EstimatedPDDelta: 0.025},
			{Action: "Refinance high-interest card debt into a lower-rate installment loan", Horizon: HorizonShortTerm, EstimatedPDDelta: 0.015},
		},
	},
	{
		FeatureID:           "savings_balance",
		ExplanationTemplate: "A savings balance of {value} offers limited buffer against payment disruption.",
		Questions: []QuestionTemplate{
			{ID: "savings_other", Text: "Beyond the declared {value} in savings, do you hold deposits, investments or assets elsewhere?"},
		},
		Documents: []DocumentTrigger{
			{Type: "savings_statements", When: WhenBelow, Threshold: 2000},
		},
		Actions: []ImprovementAction{
			{Action: "Build an emergency buffer of at least two monthly installments before disbursal", Horizon: HorizonShortTerm, EstimatedPDDelta: 0.015},
		},
	},
	{
		FeatureID:           "fixed_monthly_expenses",
		ExplanationTemplate: "Fixed monthly expenses of {value} leave a narrow margin for loan servicing.",
		Questions: []QuestionTemplate{
			{ID: "expenses_breakdown", Text: "Your fixed expenses are {value} per month. What are the main components (rent, utilities, support payments)?"},
			{ID: "expenses_reducible", Text: "Are any of these expenses ending soon or reducible?"},
		},
		Documents: []DocumentTrigger{
			{Type: "rent_agreement", When: WhenAbove, Threshold: 2000},
		},
		Actions: []ImprovementAction{
			{Action: "Reduce recurring commitments so expenses stay below half of income", Horizon: HorizonShortTerm, EstimatedPDDelta: 0.010},
		},
	},
	{
		FeatureID:           "employment_years",
		ExplanationTemplate: "Employment tenure of {value} years is shorter than the portfolio average.",
		Questions: []QuestionTemplate{
			{ID: "employment_continuity", Text: "You report {value} years in your current role. What was your employment before that?"},
		},
		Documents: []DocumentTrigger{
			{Type: "employment_contract", When: WhenBelow, Threshold: 2},
		},
		Actions: []ImprovementAction{
			{Action: "Provide a confirmed permanent contract or renewal letter from the employer", Horizon: HorizonImmediate, EstimatedPDDelta: 0.010},
		},
	},
	{
		FeatureID:           "employment_type",
		ExplanationTemplate: "The declared employment type weighs on income predictability for the {band} outcome.",
		Questions: []QuestionTemplate{
			{ID: "employment_type_detail", Text: "How long has your current employment arrangement been in place, and is it expected to continue?"},
		},
		Documents: []DocumentTrigger{
			{Type: "tax_returns_2y", When: WhenAlways},
		},
		Actions: []ImprovementAction{
			{Action: "Supply two years of tax filings to evidence stable self-generated income", Horizon: HorizonImmediate, EstimatedPDDelta: 0.010},
		},
	},
	{
		FeatureID:           "utility_bill_on_time_ratio",
		ExplanationTemplate: "An on-time utility payment ratio of {value} suggests irregular payment behavior.",
		Questions: []QuestionTemplate{
			{ID: "utility_late_reasons", Text: "Your utility bills were paid on time {value} of the time. Were the late payments due to cash flow or oversight?"},
		},
		Documents: []DocumentTrigger{
			{Type: "utility_bills_6m", When: WhenBelow, Threshold: 0.8},
		},
		Actions: []ImprovementAction{
			{Action: "Set up automatic payment for all recurring utility bills", Horizon: HorizonImmediate, EstimatedPDDelta: 0.010},
		},
	},
	{
		FeatureID:           "late_payments_12m",
		ExplanationTemplate: "{value} late payments in the last twelve months weigh on the {band} outcome.",
		Questions: []QuestionTemplate{
			{ID: "late_payments_context", Text: "You had {value} late payments in the past year. What caused them, and has the situation changed?"},
		},
		Documents: []DocumentTrigger{
			{Type: "account_statements_12m", When: WhenAbove, Threshold: 2},
		},
		Actions: []ImprovementAction{
			{Action: "Bring every account current and maintain three clean months", Horizon: HorizonShortTerm, EstimatedPDDelta: 0.015},
		},
	},
	{
		FeatureID:           "missed_payments_12m",
		ExplanationTemplate: "{value} missed payments in the last twelve months raise estimated default risk materially.",
		Questions: []QuestionTemplate{
			{ID: "missed_payments_context", Text: "You missed {value} payments in the past year. Were these resolved, and how?"},
		},
		Documents: []DocumentTrigger{
			{Type: "loan_closure_letters", When: WhenAbove, Threshold: 0},
		},
		Actions: []ImprovementAction{
			{Action: "Settle all currently overdue amounts and obtain closure confirmation", Horizon: HorizonImmediate, EstimatedPDDelta: 0.020},
		},
	},
	{
		FeatureID:           "loan_amount",
		ExplanationTemplate: "The requested loan amount of {value} is large relative to the declared financial profile.",
		Questions: []QuestionTemplate{
			{ID: "loan_amount_purpose", Text: "You requested {value}. What is the loan for, and is the amount flexible?"},
		},
		Documents: []DocumentTrigger{
			{Type: "purchase_quotation", When: WhenAbove, Threshold: 30000},
		},
		Actions: []ImprovementAction{
			{Action: "Reduce the requested amount or add a down payment to lower the financed share", Horizon: HorizonImmediate, EstimatedPDDelta: 0.015},
		},
	},
	{
		FeatureID:           "loan_duration_months",
		ExplanationTemplate: "The requested duration of {value} months extends risk exposure on the {band} outcome.",
		Questions: []QuestionTemplate{
			{ID: "loan_duration_fit", Text: "Would a shorter term with a higher installment be workable given your monthly budget?"},
		},
		Actions: []ImprovementAction{
			{Action: "Shorten the term to reduce total exposure if the installment remains affordable", Horizon: HorizonImmediate, EstimatedPDDelta: 0.005},
		},
	},
	{
		FeatureID:           "income_inflation_ratio",
		ExplanationTemplate: "Declared income exceeds the document-verified figure by a factor of {value}.",
		Questions: []QuestionTemplate{
			{ID: "income_inflation_explain", Text: "Your declared income is {value} times the amount we could verify. Can you account for the difference?"},
		},
		Documents: []DocumentTrigger{
			{Type: "bank_statements_6m", When: WhenAbove, Threshold: 1.2},
			{Type: "employer_income_letter", When: WhenAbove, Threshold: 1.5},
		},
		Actions: []ImprovementAction{
			{Action: "Provide verifiable documentation covering the full declared income", Horizon: HorizonImmediate, EstimatedPDDelta: 0.010},
		},
	},
	{
		FeatureID:           "application_velocity",
		ExplanationTemplate: "{value} recent credit applications suggest active credit seeking.",
		Questions: []QuestionTemplate{
			{ID: "velocity_reason", Text: "You have made {value} credit applications recently. What prompted them?"},
		},
		Actions: []ImprovementAction{
			{Action: "Pause new credit applications for ninety days before reapplying", Horizon: HorizonShortTerm, EstimatedPDDelta: 0.010},
		},
	},
	{
		FeatureID:           "age",
		ExplanationTemplate: "Applicant age of {value} contributes modestly to the {band} outcome.",
		Questions: []QuestionTemplate{
			{ID: "age_guarantor", Text: "Would you consider adding a co-signer or guarantor to the application?"},
		},
	},
}
