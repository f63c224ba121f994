package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/resolvebot/internal/domain"
)

// El catálogo de mercados es data, no código: cada pregunta resoluble es un
// record YAML que el mismo motor sirve sin duplicación. Este archivo es el
// único punto donde los DTOs del catálogo se traducen a domain.MarketSpec.

// marketFile es el DTO del record YAML de un mercado.
type marketFile struct {
	Subject  string `yaml:"subject" validate:"required"`
	Interval string `yaml:"interval"`
	RuleKind string `yaml:"rule_kind" validate:"required"`

	Window struct {
		Date      string `yaml:"date" validate:"required,datetime=2006-01-02"`
		TimeOfDay string `yaml:"time_of_day"`
		Timezone  string `yaml:"timezone" validate:"required"`
		Duration  string `yaml:"duration"` // time.ParseDuration, ej "1h"
	} `yaml:"window"`

	Rule struct {
		Threshold  string `yaml:"threshold"`
		Direction  string `yaml:"direction" validate:"omitempty,oneof=high low"`
		HomeTeam   string `yaml:"home_team"`
		AwayTeam   string `yaml:"away_team"`
		WinnerTeam string `yaml:"winner_team"`
		PlayerName string `yaml:"player_name"`
		StatField  string `yaml:"stat_field"`
	} `yaml:"rule"`

	Outcomes struct {
		Results    map[string]string `yaml:"results"`
		Unresolved string            `yaml:"unresolved" validate:"required"`
		TooEarly   string            `yaml:"too_early"`
		Split      string            `yaml:"split"`
	} `yaml:"outcomes"`
}

// LoadMarket carga y valida un record de mercado desde un archivo YAML.
func LoadMarket(path string) (domain.MarketSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.MarketSpec{}, fmt.Errorf("config.LoadMarket: read %q: %w", path, err)
	}
	return ParseMarket(data)
}

// ParseMarket valida y traduce un record YAML a domain.MarketSpec.
func ParseMarket(data []byte) (domain.MarketSpec, error) {
	var mf marketFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return domain.MarketSpec{}, fmt.Errorf("config.ParseMarket: parse YAML: %w", err)
	}

	if err := validator.New().Struct(&mf); err != nil {
		return domain.MarketSpec{}, fmt.Errorf("config.ParseMarket: validate: %w", err)
	}

	kind := domain.RuleKind(mf.RuleKind)
	if !kind.Valid() {
		return domain.MarketSpec{}, fmt.Errorf("config.ParseMarket: unknown rule_kind %q", mf.RuleKind)
	}

	spec := domain.MarketSpec{
		Subject:  mf.Subject,
		Interval: mf.Interval,
		RuleKind: kind,
		Window: domain.WindowSpec{
			Date:      mf.Window.Date,
			TimeOfDay: mf.Window.TimeOfDay,
			Timezone:  mf.Window.Timezone,
		},
		Rule: domain.RuleParams{
			Direction:  domain.ThresholdDirection(mf.Rule.Direction),
			HomeTeam:   mf.Rule.HomeTeam,
			AwayTeam:   mf.Rule.AwayTeam,
			WinnerTeam: mf.Rule.WinnerTeam,
			PlayerName: mf.Rule.PlayerName,
			StatField:  mf.Rule.StatField,
		},
		Outcomes: domain.OutcomeMap{
			Results:    make(map[domain.RuleResult]string, len(mf.Outcomes.Results)),
			Unresolved: mf.Outcomes.Unresolved,
			TooEarly:   mf.Outcomes.TooEarly,
			Split:      mf.Outcomes.Split,
		},
	}

	if mf.Window.TimeOfDay == "" {
		spec.Window.TimeOfDay = "00:00"
	}
	if mf.Interval == "" {
		spec.Interval = "1m"
	}

	if mf.Window.Duration != "" {
		d, err := time.ParseDuration(mf.Window.Duration)
		if err != nil {
			return domain.MarketSpec{}, fmt.Errorf("config.ParseMarket: window duration: %w", err)
		}
		spec.Window.Duration = d
	}

	if mf.Rule.Threshold != "" {
		threshold, err := decimal.NewFromString(mf.Rule.Threshold)
		if err != nil {
			return domain.MarketSpec{}, fmt.Errorf("config.ParseMarket: threshold: %w", err)
		}
		spec.Rule.Threshold = threshold
	}

	for result, token := range mf.Outcomes.Results {
		spec.Outcomes.Results[domain.RuleResult(result)] = token
	}

	if err := checkRuleParams(spec); err != nil {
		return domain.MarketSpec{}, fmt.Errorf("config.ParseMarket: %w", err)
	}
	return spec, nil
}

// checkRuleParams verifica que los parámetros requeridos por el kind estén
// presentes. La validación estructural no alcanza: depende del kind.
func checkRuleParams(spec domain.MarketSpec) error {
	switch spec.RuleKind {
	case domain.RuleThresholdOverWindow:
		if spec.Rule.Threshold.IsZero() {
			return fmt.Errorf("rule_kind %s requires a threshold", spec.RuleKind)
		}
	case domain.RuleEventOccurred:
		if spec.Rule.HomeTeam == "" || spec.Rule.AwayTeam == "" {
			return fmt.Errorf("rule_kind %s requires home_team and away_team", spec.RuleKind)
		}
		if spec.Rule.WinnerTeam == "" {
			return fmt.Errorf("rule_kind %s requires winner_team", spec.RuleKind)
		}
		if spec.Rule.PlayerName != "" && spec.Rule.StatField == "" {
			return fmt.Errorf("player_name without stat_field")
		}
	}
	return nil
}
