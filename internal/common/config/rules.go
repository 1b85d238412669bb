// internal/common/config/rules.go
package config

import (
	"fmt"
	"strings"
)

// RulesConfig is the rule table shared by every evaluator. It is read-only once loaded.
type RulesConfig struct {
	LeadScoring       LeadScoringRules            `mapstructure:"lead_scoring" json:"lead_scoring"`
	FollowupTemplates map[string]FollowupTemplate `mapstructure:"followup_templates" json:"followup_templates"`
	Quotation         QuotationRules              `mapstructure:"quotation" json:"quotation"`
	PipelineStages    []string                    `mapstructure:"pipeline_stages" json:"pipeline_stages"`
	RiskFactors       RiskFactors                 `mapstructure:"risk_factors" json:"risk_factors"`
	Coaching          CoachingRules               `mapstructure:"coaching" json:"coaching"`
}

// --- Lead scoring ---

type LeadScoringRules struct {
	DealSize     DealSizeRule   `mapstructure:"deal_size" json:"deal_size"`
	Urgency      WeightedLookup `mapstructure:"urgency" json:"urgency"`
	PastBehavior WeightedLookup `mapstructure:"past_behavior" json:"past_behavior"`
	// Segments are checked in order; the first whose MinScore the score reaches wins.
	Segments []Segment `mapstructure:"segments" json:"segments"`
}

type DealSizeRule struct {
	Weight     float64        `mapstructure:"weight" json:"weight"`
	Thresholds SizeThresholds `mapstructure:"thresholds" json:"thresholds"`
}

type SizeThresholds struct {
	High   float64 `mapstructure:"high" json:"high"`
	Medium float64 `mapstructure:"medium" json:"medium"`
	Low    float64 `mapstructure:"low" json:"low"`
}

// WeightedLookup scores a categorical field. Default applies to values missing from Values.
type WeightedLookup struct {
	Weight  float64            `mapstructure:"weight" json:"weight"`
	Values  map[string]float64 `mapstructure:"values" json:"values"`
	Default float64            `mapstructure:"default" json:"default"`
}

type Segment struct {
	Name     string   `mapstructure:"name" json:"name"`
	Priority string   `mapstructure:"priority" json:"priority"`
	MinScore float64  `mapstructure:"min_score" json:"min_score"`
	Actions  []string `mapstructure:"actions" json:"actions"`
}

// --- Follow-up ---

// FollowupTemplate placeholders: {name}, {custom_message}, {interaction_type}, {delay_days}.
type FollowupTemplate struct {
	Subject   string `mapstructure:"subject" json:"subject"`
	DelayDays int    `mapstructure:"delay_days" json:"delay_days"`
	Template  string `mapstructure:"template" json:"template"`
}

// --- Quotation ---

type QuotationRules struct {
	Templates           map[string]QuotationTemplate `mapstructure:"templates" json:"templates"`
	PricingFactors      PricingFactors               `mapstructure:"pricing_factors" json:"pricing_factors"`
	EnterpriseThreshold float64                      `mapstructure:"enterprise_threshold" json:"enterprise_threshold"`
	PremiumThreshold    float64                      `mapstructure:"premium_threshold" json:"premium_threshold"`
	DefaultBasePrice    float64                      `mapstructure:"default_base_price" json:"default_base_price"`
	Validity            string                       `mapstructure:"validity" json:"validity"`
}

type QuotationTemplate struct {
	Name     string `mapstructure:"name" json:"name"`
	Terms    string `mapstructure:"terms" json:"terms"`
	Delivery string `mapstructure:"delivery" json:"delivery"`
}

type PricingFactors struct {
	UrgencyMultiplier    map[string]float64 `mapstructure:"urgency_multiplier" json:"urgency_multiplier"`
	CustomerTypeDiscount map[string]float64 `mapstructure:"customer_type_discount" json:"customer_type_discount"`
}

// --- Pipeline ---

type RiskFactors struct {
	InactiveDays              int     `mapstructure:"inactive_days" json:"inactive_days"`
	PriceSensitivityThreshold float64 `mapstructure:"price_sensitivity_threshold" json:"price_sensitivity_threshold"`
	CompetitorMentioned       bool    `mapstructure:"competitor_mentioned" json:"competitor_mentioned"`
	DelayedResponse           int     `mapstructure:"delayed_response" json:"delayed_response"`

	InactivityWeight       float64 `mapstructure:"inactivity_weight" json:"inactivity_weight"`
	PriceSensitivityWeight float64 `mapstructure:"price_sensitivity_weight" json:"price_sensitivity_weight"`
	CompetitorWeight       float64 `mapstructure:"competitor_weight" json:"competitor_weight"`
	ResponseDelayWeight    float64 `mapstructure:"response_delay_weight" json:"response_delay_weight"`
	AtRiskThreshold        float64 `mapstructure:"at_risk_threshold" json:"at_risk_threshold"`
}

// --- Coaching ---

type CoachingRules struct {
	// LostReasons are matched in order against the feedback text.
	LostReasons []LossReason `mapstructure:"lost_reasons" json:"lost_reasons"`
	WinPatterns WinPatterns  `mapstructure:"win_patterns" json:"win_patterns"`
}

type LossReason struct {
	Keyword string   `mapstructure:"keyword" json:"keyword"`
	Tips    []string `mapstructure:"tips" json:"tips"`
}

type WinPatterns struct {
	QuickClose QuickClosePattern `mapstructure:"quick_close" json:"quick_close"`
	HighValue  HighValuePattern  `mapstructure:"high_value" json:"high_value"`
}

type QuickClosePattern struct {
	DaysToClose float64  `mapstructure:"days_to_close" json:"days_to_close"`
	KeyFactors  []string `mapstructure:"key_factors" json:"key_factors"`
}

type HighValuePattern struct {
	DealSizeThreshold float64  `mapstructure:"deal_size_threshold" json:"deal_size_threshold"`
	KeyFactors        []string `mapstructure:"key_factors" json:"key_factors"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() RulesConfig {
	return RulesConfig{
		LeadScoring: LeadScoringRules{
			DealSize: DealSizeRule{
				Weight:     0.4,
				Thresholds: SizeThresholds{High: 50000, Medium: 10000, Low: 0},
			},
			Urgency: WeightedLookup{
				Weight:  0.3,
				Values:  map[string]float64{"high": 1.0, "medium": 0.6, "low": 0.3},
				Default: 0.3,
			},
			PastBehavior: WeightedLookup{
				Weight:  0.3,
				Values:  map[string]float64{"positive": 1.0, "neutral": 0.5, "negative": 0.2},
				Default: 0.5,
			},
			Segments: []Segment{
				{
					Name: "hot", Priority: "high", MinScore: 70,
					Actions: []string{
						"Schedule immediate follow-up",
						"Prepare customized proposal",
						"Alert senior sales representative",
					},
				},
				{
					Name: "warm", Priority: "medium", MinScore: 40,
					Actions: []string{
						"Schedule follow-up within 48 hours",
						"Send relevant case studies",
						"Prepare standard proposal",
					},
				},
				{
					Name: "cold", Priority: "low", MinScore: 0,
					Actions: []string{
						"Add to nurture campaign",
						"Schedule follow-up in 1 week",
						"Send company information",
					},
				},
			},
		},
		FollowupTemplates: map[string]FollowupTemplate{
			"site_visit": {
				Subject:   "Thank you for your time during the site visit",
				DelayDays: 3,
				Template:  "Hi {name}, thank you for your time during the site visit. {custom_message} We'll follow up in {delay_days} days.",
			},
			"quotation_sent": {
				Subject:   "Following up on our quotation",
				DelayDays: 2,
				Template:  "Hi {name}, I wanted to follow up on the quotation we sent. {custom_message} Would you like to discuss any aspects in detail?",
			},
			"general": {
				Subject:   "Checking in",
				DelayDays: 5,
				Template:  "Hi {name}, just checking in after our {interaction_type}. {custom_message}",
			},
		},
		Quotation: QuotationRules{
			Templates: map[string]QuotationTemplate{
				"standard":   {Name: "Standard Quotation", Terms: "Net 30 days", Delivery: "7 days"},
				"premium":    {Name: "Premium Service Quotation", Terms: "Net 45 days", Delivery: "3 days"},
				"enterprise": {Name: "Enterprise Solution", Terms: "Custom terms", Delivery: "Negotiable"},
			},
			PricingFactors: PricingFactors{
				UrgencyMultiplier:    map[string]float64{"high": 1.15, "medium": 1.0, "low": 0.95},
				CustomerTypeDiscount: map[string]float64{"vip": 0.90, "regular": 1.0, "new": 1.05},
			},
			EnterpriseThreshold: 100000,
			PremiumThreshold:    50000,
			DefaultBasePrice:    10000,
			Validity:            "30 days",
		},
		PipelineStages: []string{
			"lead",
			"qualified",
			"meeting_scheduled",
			"proposal_sent",
			"negotiation",
			"closed_won",
			"closed_lost",
		},
		RiskFactors: RiskFactors{
			InactiveDays:              14,
			PriceSensitivityThreshold: 0.2,
			CompetitorMentioned:       true,
			DelayedResponse:           7,
			InactivityWeight:          0.4,
			PriceSensitivityWeight:    0.3,
			CompetitorWeight:          0.2,
			ResponseDelayWeight:       0.1,
			AtRiskThreshold:           0.5,
		},
		Coaching: CoachingRules{
			LostReasons: []LossReason{
				{Keyword: "price", Tips: []string{
					"Emphasize value proposition and ROI",
					"Explore flexible payment terms",
					"Highlight cost-saving features",
				}},
				{Keyword: "competition", Tips: []string{
					"Focus on unique differentiators",
					"Emphasize customer success stories",
					"Highlight superior support and service",
				}},
				{Keyword: "timing", Tips: []string{
					"Discuss phased implementation",
					"Offer early-bird incentives",
					"Present case studies with quick deployment",
				}},
			},
			WinPatterns: WinPatterns{
				QuickClose: QuickClosePattern{
					DaysToClose: 30,
					KeyFactors:  []string{"urgency", "clear_budget", "decision_maker"},
				},
				HighValue: HighValuePattern{
					DealSizeThreshold: 100000,
					KeyFactors:        []string{"roi_discussion", "multiple_stakeholders", "pilot_program"},
				},
			},
		},
	}
}

// ApplyDefaults fills every unset section of r from DefaultRules. isSet reports whether a
// boolean key was present in the source; it may be nil when r was not loaded from a file.
func (r *RulesConfig) ApplyDefaults(isSet func(key string) bool) {
	d := DefaultRules()

	ls := &r.LeadScoring
	if ls.DealSize.Weight == 0 && ls.DealSize.Thresholds == (SizeThresholds{}) {
		ls.DealSize = d.LeadScoring.DealSize
	}
	if ls.Urgency.Values == nil {
		ls.Urgency = d.LeadScoring.Urgency
	}
	if ls.PastBehavior.Values == nil {
		ls.PastBehavior = d.LeadScoring.PastBehavior
	}
	if len(ls.Segments) == 0 {
		ls.Segments = d.LeadScoring.Segments
	}

	if len(r.FollowupTemplates) == 0 {
		r.FollowupTemplates = d.FollowupTemplates
	}

	q := &r.Quotation
	if len(q.Templates) == 0 {
		q.Templates = d.Quotation.Templates
	}
	if q.PricingFactors.UrgencyMultiplier == nil {
		q.PricingFactors.UrgencyMultiplier = d.Quotation.PricingFactors.UrgencyMultiplier
	}
	if q.PricingFactors.CustomerTypeDiscount == nil {
		q.PricingFactors.CustomerTypeDiscount = d.Quotation.PricingFactors.CustomerTypeDiscount
	}
	if q.EnterpriseThreshold == 0 {
		q.EnterpriseThreshold = d.Quotation.EnterpriseThreshold
	}
	if q.PremiumThreshold == 0 {
		q.PremiumThreshold = d.Quotation.PremiumThreshold
	}
	if q.DefaultBasePrice == 0 {
		q.DefaultBasePrice = d.Quotation.DefaultBasePrice
	}
	if q.Validity == "" {
		q.Validity = d.Quotation.Validity
	}

	if len(r.PipelineStages) == 0 {
		r.PipelineStages = d.PipelineStages
	}

	rf := &r.RiskFactors
	if rf.InactiveDays == 0 {
		rf.InactiveDays = d.RiskFactors.InactiveDays
	}
	if rf.PriceSensitivityThreshold == 0 {
		rf.PriceSensitivityThreshold = d.RiskFactors.PriceSensitivityThreshold
	}
	if rf.DelayedResponse == 0 {
		rf.DelayedResponse = d.RiskFactors.DelayedResponse
	}
	if !rf.CompetitorMentioned && (isSet == nil || !isSet("rules.risk_factors.competitor_mentioned")) {
		rf.CompetitorMentioned = d.RiskFactors.CompetitorMentioned
	}
	if rf.InactivityWeight == 0 && rf.PriceSensitivityWeight == 0 && rf.CompetitorWeight == 0 && rf.ResponseDelayWeight == 0 {
		rf.InactivityWeight = d.RiskFactors.InactivityWeight
		rf.PriceSensitivityWeight = d.RiskFactors.PriceSensitivityWeight
		rf.CompetitorWeight = d.RiskFactors.CompetitorWeight
		rf.ResponseDelayWeight = d.RiskFactors.ResponseDelayWeight
	}
	if rf.AtRiskThreshold == 0 {
		rf.AtRiskThreshold = d.RiskFactors.AtRiskThreshold
	}

	c := &r.Coaching
	if len(c.LostReasons) == 0 {
		c.LostReasons = d.Coaching.LostReasons
	}
	if c.WinPatterns.QuickClose.DaysToClose == 0 && len(c.WinPatterns.QuickClose.KeyFactors) == 0 {
		c.WinPatterns.QuickClose = d.Coaching.WinPatterns.QuickClose
	}
	if c.WinPatterns.HighValue.DealSizeThreshold == 0 && len(c.WinPatterns.HighValue.KeyFactors) == 0 {
		c.WinPatterns.HighValue = d.Coaching.WinPatterns.HighValue
	}
}

// Validate checks the invariants evaluators rely on.
func (r RulesConfig) Validate() error {
	for name, w := range map[string]float64{
		"lead_scoring.deal_size.weight":              r.LeadScoring.DealSize.Weight,
		"lead_scoring.urgency.weight":                r.LeadScoring.Urgency.Weight,
		"lead_scoring.past_behavior.weight":          r.LeadScoring.PastBehavior.Weight,
		"risk_factors.inactivity_weight":             r.RiskFactors.InactivityWeight,
		"risk_factors.price_sensitivity_weight":      r.RiskFactors.PriceSensitivityWeight,
		"risk_factors.competitor_weight":             r.RiskFactors.CompetitorWeight,
		"risk_factors.response_delay_weight":         r.RiskFactors.ResponseDelayWeight,
		"risk_factors.price_sensitivity_threshold":   r.RiskFactors.PriceSensitivityThreshold,
		"quotation.default_base_price":               r.Quotation.DefaultBasePrice,
		"coaching.win_patterns.quick_close.days":     r.Coaching.WinPatterns.QuickClose.DaysToClose,
		"coaching.win_patterns.high_value.threshold": r.Coaching.WinPatterns.HighValue.DealSizeThreshold,
	} {
		if w < 0 {
			return fmt.Errorf("rules.%s must not be negative, got %v", name, w)
		}
	}

	t := r.LeadScoring.DealSize.Thresholds
	if t.High < t.Medium || t.Medium < t.Low {
		return fmt.Errorf("rules.lead_scoring.deal_size.thresholds must satisfy high >= medium >= low")
	}
	if len(r.LeadScoring.Segments) == 0 {
		return fmt.Errorf("rules.lead_scoring.segments must not be empty")
	}
	for i := 1; i < len(r.LeadScoring.Segments); i++ {
		if r.LeadScoring.Segments[i].MinScore > r.LeadScoring.Segments[i-1].MinScore {
			return fmt.Errorf("rules.lead_scoring.segments must be ordered by descending min_score")
		}
	}

	if _, ok := r.FollowupTemplates["general"]; !ok {
		return fmt.Errorf("rules.followup_templates.general is required")
	}
	for key, tpl := range r.FollowupTemplates {
		if tpl.DelayDays < 0 {
			return fmt.Errorf("rules.followup_templates.%s.delay_days must not be negative", key)
		}
	}

	for _, tier := range []string{"standard", "premium", "enterprise"} {
		if _, ok := r.Quotation.Templates[tier]; !ok {
			return fmt.Errorf("rules.quotation.templates.%s is required", tier)
		}
	}
	if r.Quotation.EnterpriseThreshold < r.Quotation.PremiumThreshold {
		return fmt.Errorf("rules.quotation.enterprise_threshold must be >= premium_threshold")
	}

	if len(r.PipelineStages) == 0 {
		return fmt.Errorf("rules.pipeline_stages must not be empty")
	}
	seen := make(map[string]bool, len(r.PipelineStages))
	for _, stage := range r.PipelineStages {
		s := strings.TrimSpace(stage)
		if s == "" {
			return fmt.Errorf("rules.pipeline_stages must not contain blank entries")
		}
		if seen[s] {
			return fmt.Errorf("rules.pipeline_stages contains duplicate stage %q", s)
		}
		seen[s] = true
	}

	for i, reason := range r.Coaching.LostReasons {
		if strings.TrimSpace(reason.Keyword) == "" {
			return fmt.Errorf("rules.coaching.lost_reasons[%d].keyword is required", i)
		}
	}

	return nil
}
