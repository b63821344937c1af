package privacy

import (
	"fmt"
	"sync/atomic"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
	"go.uber.org/zap"
)

// Detector handles PII detection and masking for the service
type Detector struct {
	state  atomic.Pointer[detectorState]
	logger *logger.Logger
}

// detectorState is replaced as a whole on reload
type detectorState struct {
	registry *Registry
	config   config.RedactionConfig
}

// New creates a new PII detector instance
func New(cfg config.RedactionConfig, log *logger.Logger) (*Detector, error) {
	registry, err := BuildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure detectors: %w", err)
	}

	detector := &Detector{logger: log}
	detector.state.Store(&detectorState{registry: registry, config: cfg})

	log.Info("Privacy detector initialized",
		zap.Int("enabled_rules", registry.Len()),
		zap.Strings("rules", registry.Names()),
		zap.Bool("ignore_fillers", cfg.IgnoreFillers),
	)

	return detector, nil
}

// BuildRegistry assembles the built-in rules, the configured custom rules and
// the rules file, then keeps the enabled ones. Custom rules are always enabled.
func BuildRegistry(cfg config.RedactionConfig) (*Registry, error) {
	registry, err := LoadDefaultRules()
	if err != nil {
		return nil, err
	}

	custom := cfg.CustomRules
	if cfg.RulesFile != "" {
		fromFile, err := config.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		custom = append(append([]config.RuleConfig{}, custom...), fromFile...)
	}

	names := append([]string{}, cfg.Detectors...)
	for _, rc := range custom {
		rule, err := CompileRule(RuleDef{
			Name:        rc.Name,
			Pattern:     rc.Pattern,
			Placeholder: rc.Placeholder,
			Style:       rc.Style,
		})
		if err != nil {
			return nil, err
		}
		if err := registry.AddRule(rule); err != nil {
			return nil, err
		}
		names = append(names, rc.Name)
	}

	return registry.Select(names)
}

// ProcessText redacts text with the currently enabled rules
func (d *Detector) ProcessText(text string) Outcome {
	state := d.state.Load()
	if !state.config.Enabled {
		return Outcome{
			MaskedText: text,
			Detections: []Detection{},
		}
	}

	var opts []Option
	if state.config.IgnoreFillers {
		opts = append(opts, WithFillerBlanking())
	}

	outcome := Redact(text, state.registry, opts...)

	for category, count := range outcome.CountByCategory() {
		d.logger.Debug("PII detected and masked",
			zap.String("entity_type", category),
			zap.Int("count", count),
		)
	}

	return outcome
}

// Reload rebuilds the registry from cfg and swaps it in. Redactions already
// running finish with the registry they started with.
func (d *Detector) Reload(cfg config.RedactionConfig) error {
	registry, err := BuildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to reload detectors: %w", err)
	}

	d.state.Store(&detectorState{registry: registry, config: cfg})
	d.logger.Info("Detection rules reloaded", zap.Strings("rules", registry.Names()))
	return nil
}

// Registry returns the registry currently in use
func (d *Detector) Registry() *Registry {
	return d.state.Load().registry
}

// EnabledRules returns the enabled rule names in application order
func (d *Detector) EnabledRules() []string {
	return d.Registry().Names()
}

// Enabled reports whether redaction is switched on
func (d *Detector) Enabled() bool {
	return d.state.Load().config.Enabled
}
